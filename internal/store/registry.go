package store

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/Priya8975/webhook-exposee/internal/domain"
)

// Registry is the persistent subscription store. Implementations enforce
// uniqueness of (url, eventType) at the storage level and wrap I/O failures
// in *domain.StorageError.
type Registry interface {
	Register(ctx context.Context, url string, eventType domain.EventType) (*domain.RegisterResult, error)
	Unregister(ctx context.Context, url string, eventType domain.EventType) (*domain.UnregisterResult, error)
	ListByEvent(ctx context.Context, eventType domain.EventType) ([]domain.Subscription, error)
	ListAll(ctx context.Context) ([]domain.Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// registerAttempts bounds the insert/lookup loop that runs when a
// conflicting row is deleted between the insert and the lookup.
const registerAttempts = 3

func storageErr(op string, err error) error {
	return &domain.StorageError{Op: op, Err: err}
}

func invalidEventType(et domain.EventType) error {
	return &domain.InvalidEventTypeError{Value: et.String()}
}

// upMigrations returns the .up.sql files under dir, sorted by name.
func upMigrations(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, path.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
