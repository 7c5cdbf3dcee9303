package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Priya8975/webhook-exposee/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ Registry = (*PostgresStore)(nil)

// Register inserts the (url, eventType) pair. The unique constraint decides
// races: a conflicting insert affects no rows and reports Created=false.
func (s *PostgresStore) Register(ctx context.Context, url string, eventType domain.EventType) (*domain.RegisterResult, error) {
	if !eventType.IsValid() {
		return nil, invalidEventType(eventType)
	}
	name := eventType.String()

	for attempt := 0; attempt < registerAttempts; attempt++ {
		var id string
		var createdAt time.Time
		err := s.pool.QueryRow(ctx, `
			INSERT INTO subscriptions (id, url, event_type)
			VALUES ($1, $2, $3)
			ON CONFLICT (url, event_type) DO NOTHING
			RETURNING id::text, created_at
		`, uuid.New(), url, name).Scan(&id, &createdAt)
		if err == nil {
			return newRegisterResult(id, url, eventType, createdAt, true), nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, storageErr("register", fmt.Errorf("inserting subscription: %w", err))
		}

		err = s.pool.QueryRow(ctx, `
			SELECT id::text, created_at FROM subscriptions
			WHERE url = $1 AND event_type = $2
		`, url, name).Scan(&id, &createdAt)
		if err == nil {
			return newRegisterResult(id, url, eventType, createdAt, false), nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, storageErr("register", fmt.Errorf("querying existing subscription: %w", err))
		}
		// The conflicting row was removed in between; insert again.
	}

	return nil, storageErr("register", fmt.Errorf("subscription for %s kept changing under concurrent writes", name))
}

func (s *PostgresStore) Unregister(ctx context.Context, url string, eventType domain.EventType) (*domain.UnregisterResult, error) {
	if !eventType.IsValid() {
		return nil, invalidEventType(eventType)
	}

	result, err := s.pool.Exec(ctx, `
		DELETE FROM subscriptions WHERE url = $1 AND event_type = $2
	`, url, eventType.String())
	if err != nil {
		return nil, storageErr("unregister", fmt.Errorf("deleting subscription: %w", err))
	}

	return &domain.UnregisterResult{Removed: result.RowsAffected() > 0}, nil
}

func (s *PostgresStore) ListByEvent(ctx context.Context, eventType domain.EventType) ([]domain.Subscription, error) {
	if !eventType.IsValid() {
		return nil, invalidEventType(eventType)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, url, event_type, created_at
		FROM subscriptions
		WHERE event_type = $1
		ORDER BY seq
	`, eventType.String())
	if err != nil {
		return nil, storageErr("list by event", fmt.Errorf("querying subscriptions: %w", err))
	}
	return collectSubscriptions(rows, "list by event")
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, url, event_type, created_at
		FROM subscriptions
		ORDER BY seq
	`)
	if err != nil {
		return nil, storageErr("list all", fmt.Errorf("querying subscriptions: %w", err))
	}
	return collectSubscriptions(rows, "list all")
}

func collectSubscriptions(rows pgx.Rows, op string) ([]domain.Subscription, error) {
	defer rows.Close()

	subs := []domain.Subscription{}
	for rows.Next() {
		var sub domain.Subscription
		var name string
		if err := rows.Scan(&sub.ID, &sub.URL, &name, &sub.CreatedAt); err != nil {
			return nil, storageErr(op, fmt.Errorf("scanning subscription: %w", err))
		}
		et, err := domain.ParseEventType(name)
		if err != nil {
			return nil, storageErr(op, fmt.Errorf("subscription %s: %w", sub.ID, err))
		}
		sub.EventType = et
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, fmt.Errorf("iterating subscriptions: %w", err))
	}

	return subs, nil
}

func newRegisterResult(id, url string, eventType domain.EventType, createdAt time.Time, created bool) *domain.RegisterResult {
	return &domain.RegisterResult{
		Subscription: domain.Subscription{
			ID:        id,
			URL:       url,
			EventType: eventType,
			CreatedAt: createdAt.UTC(),
		},
		Created: created,
	}
}
