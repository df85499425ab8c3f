package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// KVStore represents the persistent key-value store holding sent records
type KVStore interface {
	// Get returns the value at key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value at key, expiring after ttl
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// List returns every key starting with prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases the connection
	Close() error
}
