package blob

import (
	"context"
	"errors"
)

var (
	// ErrStorage wraps any persistence failure. A failed Store leaves no
	// retrievable reference behind, so callers may retry safely.
	ErrStorage  = errors.New("blob storage failure")
	ErrNotFound = errors.New("blob not found")
)

// Store persists opaque uploaded files (payment receipts) and hands back a
// retrievable reference.
type Store interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	Open(ctx context.Context, ref string) ([]byte, string, error)
	Delete(ctx context.Context, ref string) error
}
