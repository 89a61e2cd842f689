package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrClosed        = errors.New("storage closed")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Backend is a string-keyed byte store. Single-key reads and writes are
// atomic; nothing spans keys.
type Backend interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	Set(ctx context.Context, key string, value []byte) error

	// Delete is idempotent: deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error

	// Keys lists every key in the backend, including ones not written by
	// sealstore.
	Keys(ctx context.Context) ([]string, error)

	Close() error
}

// Compactor is implemented by backends that can reclaim disk space.
type Compactor interface {
	Compact() error
}
