// Package store is the key-value persistence layer. Every backend offers
// single-key atomicity only: no transactions, no versioning, no expiry.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable wraps every I/O failure coming out of a backend.
var ErrUnavailable = errors.New("store unavailable")

type Store interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// SetNX writes value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string) (stored bool, err error)
	Ping(ctx context.Context) error
	Close() error
}

func unavailable(op, key string, err error) error {
	if key == "" {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	return fmt.Errorf("%w: %s %q: %w", ErrUnavailable, op, key, err)
}
