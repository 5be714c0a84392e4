package storage

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedStore decorates an ObjectStore with a token-bucket limiter
// shared across all operation kinds, respecting store-side rate limits
// regardless of how many fetches are in flight.
type RateLimitedStore struct {
	inner   ObjectStore
	limiter *rate.Limiter
}

// NewRateLimitedStore wraps inner with an rps/burst token bucket.
func NewRateLimitedStore(inner ObjectStore, rps float64, burst int) *RateLimitedStore {
	return &RateLimitedStore{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (s *RateLimitedStore) GetText(ctx context.Context, key string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.inner.GetText(ctx, key)
}

func (s *RateLimitedStore) PutText(ctx context.Context, key, content string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.PutText(ctx, key, content)
}

func (s *RateLimitedStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.ListKeys(ctx, prefix)
}

func (s *RateLimitedStore) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.ListPrefixes(ctx, prefix)
}

func (s *RateLimitedStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}
	return s.inner.Exists(ctx, key)
}
