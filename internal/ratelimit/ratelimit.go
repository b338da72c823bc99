package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/WyZzYx/Jobsight/internal/model"
)

// Limiter enforces a minimum delay between requests to the same backend.
// Several providers can share a backend (every Greenhouse board hits one API),
// so limits are keyed by backend type rather than by provider name.
type Limiter struct {
	mu        sync.Mutex
	nextSlot  map[string]time.Time // key: backend type
	minDelay  time.Duration
	overrides map[string]time.Duration
}

// NewLimiter creates a limiter that spaces consecutive requests to the same
// backend by minDelay, or by the backend's entry in overrides when present.
func NewLimiter(minDelay time.Duration, overrides map[string]time.Duration) *Limiter {
	return &Limiter{
		nextSlot:  make(map[string]time.Time),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

func (r *Limiter) delayFor(key string) time.Duration {
	if d, ok := r.overrides[key]; ok {
		return d
	}
	return r.minDelay
}

// Wait blocks until the caller's reserved slot for key arrives.
// Returns an error if the context is cancelled while waiting.
func (r *Limiter) Wait(ctx context.Context, key string) error {
	delay := r.delayFor(key)
	if delay <= 0 {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	slot := now
	if next, ok := r.nextSlot[key]; ok && next.After(now) {
		slot = next
	}
	r.nextSlot[key] = slot.Add(delay)
	r.mu.Unlock()

	remaining := slot.Sub(now)
	if remaining <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", key, ctx.Err())
	case <-time.After(remaining):
		return nil
	}
}

// Provider is a decorator that waits on the limiter before delegating.
type Provider struct {
	model.Provider

	limiter *Limiter
	key     string
}

// Wrap returns inner rate limited under the backend key.
// All providers targeting the same backend should share one limiter.
func Wrap(inner model.Provider, limiter *Limiter, key string) *Provider {
	return &Provider{Provider: inner, limiter: limiter, key: key}
}

// Search waits for the limiter to allow a request, then delegates.
func (p *Provider) Search(ctx context.Context, q model.JobSearchQuery) ([]model.JobPosting, error) {
	if err := p.limiter.Wait(ctx, p.key); err != nil {
		return nil, err
	}
	return p.Provider.Search(ctx, q)
}
