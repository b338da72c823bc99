package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/WyZzYx/Jobsight/internal/adapter"
	"github.com/WyZzYx/Jobsight/internal/aggregator"
	"github.com/WyZzYx/Jobsight/internal/breaker"
	"github.com/WyZzYx/Jobsight/internal/cache"
	"github.com/WyZzYx/Jobsight/internal/config"
	"github.com/WyZzYx/Jobsight/internal/metrics"
	"github.com/WyZzYx/Jobsight/internal/model"
	"github.com/WyZzYx/Jobsight/internal/ratelimit"
	"github.com/WyZzYx/Jobsight/internal/registry"
	"github.com/WyZzYx/Jobsight/internal/retry"
	"github.com/WyZzYx/Jobsight/internal/store"
)

// app holds everything a command needs to search and read postings.
type app struct {
	cfg      *config.Config
	store    model.Store
	registry *registry.Registry
	breakers *breaker.Set
	service  *aggregator.Service
	closers  []func() error
}

// buildApp opens the store, wraps every configured provider and assembles the service.
// n may be nil for read-only commands.
func buildApp(ctx context.Context, cfg *config.Config, n model.Notifier, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	var backend cache.Backend
	if cfg.Cache.RedisURL != "" {
		rb, err := cache.NewRedisBackend(ctx, cfg.Cache.RedisURL)
		if err != nil {
			// The cache is optional; searches go straight to the providers.
			logger.Warn("redis cache unavailable, continuing without it", "error", err)
		} else {
			backend = rb
			a.closers = append(a.closers, rb.Close)
			logger.Info("response cache enabled", "ttl", cfg.Cache.TTL.String())
		}
	}

	a.breakers = breaker.NewSet(breaker.Settings{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		CoolDown:         cfg.Resilience.CoolDown,
		OnStateChange: func(name string, from, to breaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
		},
	})

	providers, err := buildProviders(cfg, backend, a.breakers, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry = registry.New()
	for _, p := range providers {
		if err := a.registry.Register(p); err != nil {
			a.Close()
			return nil, err
		}
	}

	opts := []aggregator.Option{aggregator.WithConcurrency(cfg.Aggregation.Concurrency)}
	if n != nil {
		opts = append(opts, aggregator.WithNotifier(n))
	}
	a.service = aggregator.New(a.registry, st, logger, opts...)
	return a, nil
}

// Close releases the store and any backend connections in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func createAdapter(pc config.ProviderConfig, httpClient *http.Client, logger *slog.Logger) (model.Provider, error) {
	switch pc.Type {
	case config.TypeAdzuna:
		return adapter.NewAdzunaAdapter(adapter.AdzunaConfig{
			Name:    pc.Name,
			AppID:   pc.AppID,
			AppKey:  pc.AppKey,
			Country: pc.Country,
			BaseURL: pc.BaseURL,
		}, httpClient, logger)
	case config.TypeGreenhouse:
		return adapter.NewGreenhouseAdapter(pc.Name, pc.BoardToken, pc.Company, httpClient, logger), nil
	case config.TypeLever:
		return adapter.NewLeverAdapter(pc.Name, pc.BoardToken, pc.Company, httpClient, logger), nil
	case config.TypeAshby:
		return adapter.NewAshbyAdapter(pc.Name, pc.BoardToken, pc.Company, httpClient, logger), nil
	case config.TypeMock:
		return adapter.NewMockAdapter(pc.Name, logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", pc.Type)
	}
}

// buildProviders wraps each adapter, innermost first: rate limit, retry,
// circuit breaker, then the optional response cache.
func buildProviders(cfg *config.Config, backend cache.Backend, breakers *breaker.Set, logger *slog.Logger) ([]model.Provider, error) {
	httpClient := &http.Client{Timeout: cfg.Resilience.RequestTimeout}
	limiter := ratelimit.NewLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.Overrides)
	logger.Debug("rate limiter configured", "min_delay", cfg.RateLimit.MinDelay.String())

	providers := make([]model.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		inner, err := createAdapter(pc, httpClient, logger)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}

		var p model.Provider = ratelimit.Wrap(inner, limiter, pc.Type)
		p = retry.Wrap(p, cfg.Resilience.MaxRetries, cfg.Resilience.BaseDelay, logger,
			retry.WithMaxDelay(cfg.Resilience.MaxDelay))
		p = breaker.Wrap(p, breakers)
		if backend != nil {
			p = cache.Wrap(p, backend, cfg.Cache.TTL, logger)
		}
		p.SetEnabled(pc.Enabled)

		providers = append(providers, p)
		logger.Info("registered provider", "name", pc.Name, "type", pc.Type, "enabled", pc.Enabled)
	}
	return providers, nil
}
