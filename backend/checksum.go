package backend

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ErrChecksum is returned by Checksummed.Load when the stored payload does
// not match its recorded digest.
var ErrChecksum = errors.New("backend: checksum mismatch")

// Checksummed wraps a Backend, appending an XXH64 digest to every payload
// on save and verifying it on load. It catches storage-level corruption
// before bytes reach a format.
type Checksummed struct {
	inner Backend
}

// WithChecksum wraps the backend with integrity checking.
func WithChecksum(inner Backend) *Checksummed {
	return &Checksummed{inner: inner}
}

func (c *Checksummed) Save(ctx context.Context, key string, data []byte) error {
	out := make([]byte, len(data)+8)
	copy(out, data)
	binary.BigEndian.PutUint64(out[len(data):], xxhash.Sum64(data))
	return c.inner.Save(ctx, key, out)
}

func (c *Checksummed) Load(ctx context.Context, key string) ([]byte, error) {
	stored, err := c.inner.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(stored) < 8 {
		return nil, fmt.Errorf("%w: payload too short", ErrChecksum)
	}
	data, trailer := stored[:len(stored)-8], stored[len(stored)-8:]
	if xxhash.Sum64(data) != binary.BigEndian.Uint64(trailer) {
		return nil, ErrChecksum
	}
	return data, nil
}
