package backend

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled wraps a Backend with a rate limiter, protecting shared remote
// stores from tight checkpoint loops.
type Throttled struct {
	inner   Backend
	limiter *rate.Limiter
}

// WithThrottle wraps the backend, limiting combined saves and loads to the
// given operations per second with the given burst.
func WithThrottle(inner Backend, opsPerSecond float64, burst int) *Throttled {
	return &Throttled{inner: inner, limiter: rate.NewLimiter(rate.Limit(opsPerSecond), burst)}
}

func (t *Throttled) Save(ctx context.Context, key string, data []byte) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.inner.Save(ctx, key, data)
}

func (t *Throttled) Load(ctx context.Context, key string) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Load(ctx, key)
}
