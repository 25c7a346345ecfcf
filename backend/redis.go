package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores payloads as plain Redis strings, optionally expiring.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a backend over an existing client. keyPrefix namespaces
// every key (e.g. "keepsake:"); a zero ttl means entries never expire.
func NewRedis(client *redis.Client, keyPrefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: keyPrefix, ttl: ttl}
}

func (r *Redis) Save(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("backend: redis save: %w", err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("backend: redis load: %w", err)
	}
	return data, nil
}
