// Package backend persists serialized snapshot bytes under opaque string
// keys.
//
// A Backend never inspects key semantics or the byte payload; formats and
// the snapshot serializer own the layout. Backend I/O is the only boundary
// in this module that may block, so every operation takes a context.
// Wrappers (Checksummed, Cached, Throttled) compose over any Backend.
package backend

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no value exists for the key.
var ErrNotFound = errors.New("backend: key not found")

// Backend stores and retrieves byte payloads by key.
type Backend interface {
	// Save persists the payload under the key, replacing any existing one.
	Save(ctx context.Context, key string, data []byte) error

	// Load retrieves the payload stored under the key. It returns
	// ErrNotFound when the key has never been saved.
	Load(ctx context.Context, key string) ([]byte, error)
}
