package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get for missing keys.
	ErrNotFound = errors.New("storage: key not found")
	// ErrCorrupt marks a backing document that can no longer be decoded.
	ErrCorrupt = errors.New("storage: corrupt document")
)

// KV is the durable key-value storage the session is persisted in.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
