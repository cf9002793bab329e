// Package storage keeps serialized tables between server runs. Each record is
// the JSON encoding of one table keyed by its numeric ID.
package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrNotFound       = errors.New("NOT_FOUND: No stored table with that ID")
	ErrUnknownBackend = errors.New("UNKNOWN_BACKEND: Storage backend must be file, postgres or redis")
)

type Record struct {
	ID   uint64
	Data []byte
}

// TableStore is implemented by every backend.
type TableStore interface {
	// Save writes or replaces the record for id.
	Save(ctx context.Context, id uint64, data []byte) error
	// List returns every stored record ordered by ID.
	List(ctx context.Context) ([]Record, error)
	// Delete removes one record. Deleting a missing record returns ErrNotFound.
	Delete(ctx context.Context, id uint64) error
	Close() error
}

type Options struct {
	Backend     string
	Dir         string
	DatabaseURL string
	RedisAddr   string
}

// Open connects the backend named in opts.
func Open(ctx context.Context, opts Options) (TableStore, error) {
	switch opts.Backend {
	case "", "file":
		return NewFileStore(opts.Dir), nil
	case "postgres":
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case "redis":
		return NewRedisStore(ctx, opts.RedisAddr)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

func sortRecords(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
