package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/WyZzYx/Jobsight/internal/model"
)

// DefaultMaxDelay bounds a single wait between attempts.
const DefaultMaxDelay = 10 * time.Second

// Provider is a decorator that retries transient failures with exponential
// backoff and jitter before delegating to the wrapped provider.
type Provider struct {
	model.Provider

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
}

// Option configures a retry Provider.
type Option func(*Provider)

// WithMaxDelay bounds a single wait. Backoff is clamped to d; a Retry-After
// longer than d ends the retries with the provider's error. Zero or less
// keeps DefaultMaxDelay.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.maxDelay = d
		}
	}
}

// Wrap decorates inner with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func Wrap(inner model.Provider, maxRetries int, baseDelay time.Duration, logger *slog.Logger, opts ...Option) *Provider {
	p := &Provider{
		Provider:   inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   DefaultMaxDelay,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Search attempts the search, retrying on transient errors.
func (p *Provider) Search(ctx context.Context, q model.JobSearchQuery) ([]model.JobPosting, error) {
	postings, err := p.Provider.Search(ctx, q)
	if err == nil {
		return postings, nil
	}

	if !isRetryable(err) {
		return nil, err
	}

	lastErr := err
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		delay, ok := p.backoffDelay(attempt, lastErr)
		if !ok {
			p.logger.Warn("provider asked to wait longer than the retry budget, giving up",
				"provider", p.Name(),
				"retry_after", delay,
				"max_delay", p.maxDelay,
				"error", lastErr,
			)
			return nil, lastErr
		}

		p.logger.Warn("retrying after transient error",
			"provider", p.Name(),
			"attempt", attempt,
			"max_retries", p.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		postings, err = p.Provider.Search(ctx, q)
		if err == nil {
			return postings, nil
		}

		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter,
// clamped to maxDelay. A Retry-After duration sent by the provider takes
// precedence; ok is false when it exceeds maxDelay.
func (p *Provider) backoffDelay(attempt int, err error) (delay time.Duration, ok bool) {
	var respErr *model.ResponseError
	if errors.As(err, &respErr) && respErr.RetryAfter > 0 {
		return respErr.RetryAfter, respErr.RetryAfter <= p.maxDelay
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay = p.baseDelay
	for i := 1; i < attempt && delay < p.maxDelay; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return min(delay, p.maxDelay), true
}

// isRetryable returns true for transport failures and bad responses.
// An open circuit and the caller's own cancellation are final.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, model.ErrCircuitOpen) {
		return false
	}

	var transportErr *model.TransportError
	var respErr *model.ResponseError
	return errors.As(err, &transportErr) || errors.As(err, &respErr)
}
