package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/Priya8975/webhook-exposee/internal/domain"
	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver.
)

const sqliteMigrationsDir = "migrations/sqlite"

// SQLiteStore is a Registry backed by a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Registry = (*SQLiteStore)(nil)

// NewSQLite opens (or creates) the database at dbPath and applies pending
// migrations.
func NewSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// SQLite is single-writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := NewSQLiteFromDB(db)
	if err := s.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteFromDB wraps an already-open handle without touching the schema.
func NewSQLiteFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// RunMigrations executes all embedded .up.sql migration files in order.
func (s *SQLiteStore) RunMigrations(ctx context.Context) error {
	return s.runMigrations(ctx, migrationsFS, sqliteMigrationsDir)
}

func (s *SQLiteStore) runMigrations(ctx context.Context, fsys fs.FS, dir string) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	migrations, err := upMigrations(fsys, dir)
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	for _, file := range migrations {
		version := path.Base(file)

		var exists bool
		err := s.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)",
			version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking migration %s: %w", version, err)
		}
		if exists {
			continue
		}

		stmt, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", version, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, string(stmt)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, s.now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", version, err)
		}
	}

	return nil
}

// Register inserts with ON CONFLICT DO NOTHING; zero affected rows means
// the pair already exists.
func (s *SQLiteStore) Register(ctx context.Context, url string, eventType domain.EventType) (*domain.RegisterResult, error) {
	if !eventType.IsValid() {
		return nil, invalidEventType(eventType)
	}
	name := eventType.String()

	for attempt := 0; attempt < registerAttempts; attempt++ {
		id := uuid.NewString()
		createdAt := s.now().UTC()

		res, err := s.db.ExecContext(ctx, `
			INSERT INTO subscriptions (id, url, event_type, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (url, event_type) DO NOTHING
		`, id, url, name, createdAt.Format(time.RFC3339Nano))
		if err != nil {
			return nil, storageErr("register", fmt.Errorf("inserting subscription: %w", err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, storageErr("register", fmt.Errorf("reading affected rows: %w", err))
		}
		if n > 0 {
			return newRegisterResult(id, url, eventType, createdAt, true), nil
		}

		var created string
		err = s.db.QueryRowContext(ctx, `
			SELECT id, created_at FROM subscriptions
			WHERE url = ? AND event_type = ?
		`, url, name).Scan(&id, &created)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, storageErr("register", fmt.Errorf("querying existing subscription: %w", err))
		}
		existingAt, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, storageErr("register", fmt.Errorf("parsing created_at: %w", err))
		}
		return newRegisterResult(id, url, eventType, existingAt, false), nil
	}

	return nil, storageErr("register", fmt.Errorf("subscription for %s kept changing under concurrent writes", name))
}

func (s *SQLiteStore) Unregister(ctx context.Context, url string, eventType domain.EventType) (*domain.UnregisterResult, error) {
	if !eventType.IsValid() {
		return nil, invalidEventType(eventType)
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE url = ? AND event_type = ?",
		url, eventType.String(),
	)
	if err != nil {
		return nil, storageErr("unregister", fmt.Errorf("deleting subscription: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, storageErr("unregister", fmt.Errorf("reading affected rows: %w", err))
	}

	return &domain.UnregisterResult{Removed: n > 0}, nil
}

func (s *SQLiteStore) ListByEvent(ctx context.Context, eventType domain.EventType) ([]domain.Subscription, error) {
	if !eventType.IsValid() {
		return nil, invalidEventType(eventType)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, event_type, created_at
		FROM subscriptions
		WHERE event_type = ?
		ORDER BY rowid
	`, eventType.String())
	if err != nil {
		return nil, storageErr("list by event", fmt.Errorf("querying subscriptions: %w", err))
	}
	return scanSQLiteSubscriptions(rows, "list by event")
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, event_type, created_at
		FROM subscriptions
		ORDER BY rowid
	`)
	if err != nil {
		return nil, storageErr("list all", fmt.Errorf("querying subscriptions: %w", err))
	}
	return scanSQLiteSubscriptions(rows, "list all")
}

func scanSQLiteSubscriptions(rows *sql.Rows, op string) ([]domain.Subscription, error) {
	defer rows.Close()

	subs := []domain.Subscription{}
	for rows.Next() {
		var sub domain.Subscription
		var name, created string
		if err := rows.Scan(&sub.ID, &sub.URL, &name, &created); err != nil {
			return nil, storageErr(op, fmt.Errorf("scanning subscription: %w", err))
		}
		et, err := domain.ParseEventType(name)
		if err != nil {
			return nil, storageErr(op, fmt.Errorf("subscription %s: %w", sub.ID, err))
		}
		createdAt, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, storageErr(op, fmt.Errorf("subscription %s: parsing created_at: %w", sub.ID, err))
		}
		sub.EventType = et
		sub.CreatedAt = createdAt
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, fmt.Errorf("iterating subscriptions: %w", err))
	}

	return subs, nil
}
