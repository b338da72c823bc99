// Package cache short-circuits repeated provider searches within a TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/WyZzYx/Jobsight/internal/model"
)

// ErrMiss is returned by a Backend when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Backend stores opaque values with an expiry.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisBackend is a Backend on a go-redis client.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend parses redisURL and verifies connectivity.
func NewRedisBackend(ctx context.Context, redisURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return v, err
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the client's connections.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// Provider is a decorator that serves repeated searches from the backend.
// Backend failures degrade to a miss; they never fail the search.
type Provider struct {
	model.Provider

	backend Backend
	ttl     time.Duration
	logger  *slog.Logger
}

// Wrap decorates inner with a response cache.
func Wrap(inner model.Provider, backend Backend, ttl time.Duration, logger *slog.Logger) *Provider {
	return &Provider{Provider: inner, backend: backend, ttl: ttl, logger: logger}
}

// Search returns a cached result for an identical query or delegates and caches success.
func (p *Provider) Search(ctx context.Context, q model.JobSearchQuery) ([]model.JobPosting, error) {
	key, err := Key(p.Name(), q)
	if err != nil {
		return p.Provider.Search(ctx, q)
	}

	raw, err := p.backend.Get(ctx, key)
	switch {
	case err == nil:
		var postings []model.JobPosting
		if err := json.Unmarshal(raw, &postings); err == nil {
			p.logger.Debug("provider cache hit", "provider", p.Name(), "postings", len(postings))
			return postings, nil
		}
		p.logger.Warn("discarding unreadable cache entry", "provider", p.Name(), "key", key)
	case !errors.Is(err, ErrMiss):
		p.logger.Warn("provider cache read failed", "provider", p.Name(), "error", err)
	}

	postings, err := p.Provider.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(postings); err == nil {
		if err := p.backend.Set(ctx, key, raw, p.ttl); err != nil {
			p.logger.Warn("provider cache write failed", "provider", p.Name(), "error", err)
		}
	}
	return postings, nil
}

// Key derives the cache key for a provider and query. Queries that normalize
// to the same value share a key.
func Key(provider string, q model.JobSearchQuery) (string, error) {
	raw, err := json.Marshal(q.Normalized())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("jobsight:search:%s:%016x", provider, xxhash.Sum64(raw)), nil
}
