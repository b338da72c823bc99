// Package aggregator fans a search out to every enabled provider, stores the
// postings it has not seen before and answers with a page from the store.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WyZzYx/Jobsight/internal/metrics"
	"github.com/WyZzYx/Jobsight/internal/model"
	"github.com/WyZzYx/Jobsight/internal/store"
)

const (
	// DefaultConcurrency is the number of providers searched at once unless WithConcurrency says otherwise.
	DefaultConcurrency = 4
	// DefaultSkillLimit is used when TopSkills is asked for zero or fewer skills.
	DefaultSkillLimit = 15
	// MaxSkillLimit caps the number of skills TopSkills returns.
	MaxSkillLimit = 100
)

// ProviderSource yields the providers to query, in registration order.
type ProviderSource interface {
	All() []model.Provider
}

// Service owns the search pipeline:
// fan out → concatenate → dedupe → insert new → notify → page from store.
type Service struct {
	providers   ProviderSource
	store       model.Store
	reader      *store.Reader
	notifier    model.Notifier
	logger      *slog.Logger
	concurrency int
}

// Option customizes a Service.
type Option func(*Service)

// WithConcurrency bounds how many providers are searched at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithNotifier sends newly stored postings to n after each run.
func WithNotifier(n model.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// New creates a Service wired with all its dependencies.
func New(providers ProviderSource, st model.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		providers:   providers,
		store:       st,
		reader:      store.NewReader(st),
		logger:      logger,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchAndStore runs one aggregation for q. Provider failures count as zero
// results; only a store failure (model.ErrStoreUnavailable) or the caller's
// context ends the run with an error.
func (s *Service) SearchAndStore(ctx context.Context, q model.JobSearchQuery) (model.PagedResult, error) {
	start := time.Now()
	defer func() { metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	q = q.Normalized()
	providers := s.providers.All()

	results, failed := s.fanOut(ctx, providers, q)
	if err := ctx.Err(); err != nil {
		return model.PagedResult{}, fmt.Errorf("aggregating: %w", err)
	}

	fetched := slices.Concat(results...)
	unique := Dedupe(fetched)

	inserted, duplicates, err := s.persist(ctx, unique)
	if err != nil {
		return model.PagedResult{}, err
	}

	if len(inserted) > 0 && s.notifier != nil {
		if err := s.notifier.Notify(ctx, inserted); err != nil {
			s.logger.Warn("notifying new postings failed", "postings", len(inserted), "error", err)
		}
	}

	page, err := s.reader.Page(ctx, q.Filter(), q.Page, q.Size)
	if err != nil {
		return model.PagedResult{}, fmt.Errorf("re-querying store: %w", err)
	}

	s.logger.Info("aggregated search",
		"title", q.Title,
		"location", q.Location,
		"providers", len(providers),
		"failed", failed,
		"fetched", len(fetched),
		"unique", len(unique),
		"inserted", len(inserted),
		"duplicates", duplicates,
		"total", page.TotalElements,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return page, nil
}

// Page reads one page from the store without contacting any provider.
func (s *Service) Page(ctx context.Context, q model.JobSearchQuery) (model.PagedResult, error) {
	q = q.Normalized()
	return s.reader.Page(ctx, q.Filter(), q.Page, q.Size)
}

// TopSkills returns the most frequent skills among stored postings matching
// title and location. limit <= 0 means DefaultSkillLimit.
func (s *Service) TopSkills(ctx context.Context, title, location string, limit int) ([]model.SkillCount, error) {
	switch {
	case limit <= 0:
		limit = DefaultSkillLimit
	case limit > MaxSkillLimit:
		limit = MaxSkillLimit
	}
	f := model.PageFilter{Title: strings.TrimSpace(title), Location: strings.TrimSpace(location)}
	counts, err := s.store.TopSkills(ctx, f, limit)
	if err != nil {
		return nil, storeErr("counting skills", err)
	}
	if counts == nil {
		counts = []model.SkillCount{}
	}
	return counts, nil
}

// fanOut searches every provider concurrently. Each provider writes only its
// own slot, so results stay in registration order.
func (s *Service) fanOut(ctx context.Context, providers []model.Provider, q model.JobSearchQuery) ([][]model.JobPosting, int) {
	results := make([][]model.JobPosting, len(providers))
	failures := make([]bool, len(providers))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, p := range providers {
		g.Go(func() error {
			postings, err := s.search(ctx, p, q)
			results[i] = postings
			failures[i] = err != nil
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, f := range failures {
		if f {
			failed++
		}
	}
	return results, failed
}

func (s *Service) search(ctx context.Context, p model.Provider, q model.JobSearchQuery) ([]model.JobPosting, error) {
	name := p.Name()
	start := time.Now()
	postings, err := p.Search(ctx, q)
	metrics.ProviderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	metrics.ProviderCalls.WithLabelValues(name, outcome(err)).Inc()

	switch {
	case err == nil:
		s.logger.Debug("provider search done", "provider", name, "postings", len(postings))
		return postings, nil
	case errors.Is(err, model.ErrCircuitOpen):
		s.logger.Warn("provider skipped", "provider", name, "error", err)
	default:
		s.logger.Warn("provider search failed", "provider", name, "error", err)
	}
	return nil, err
}

// persist inserts postings that are not stored yet and returns them with their ids.
func (s *Service) persist(ctx context.Context, postings []model.JobPosting) ([]model.JobPosting, int, error) {
	var (
		inserted   []model.JobPosting
		duplicates int
	)
	for _, p := range postings {
		p.Normalize()

		exists, err := s.store.Exists(ctx, p.Provider, p.ProviderID)
		if err != nil {
			return nil, 0, storeErr("checking "+p.Key(), err)
		}
		if exists {
			duplicates++
			metrics.DuplicatesSkipped.Inc()
			continue
		}

		id, err := s.store.Insert(ctx, p)
		switch {
		case errors.Is(err, model.ErrDuplicateKey):
			// Lost a race with a concurrent run; the row is there either way.
			duplicates++
			metrics.DuplicatesSkipped.Inc()
			continue
		case err != nil:
			return nil, 0, storeErr("inserting "+p.Key(), err)
		}

		p.ID = id
		inserted = append(inserted, p)
		metrics.PostingsIngested.WithLabelValues(p.Provider).Inc()
	}
	return inserted, duplicates, nil
}

// Dedupe drops postings whose provider::providerId key appeared earlier in ps.
func Dedupe(ps []model.JobPosting) []model.JobPosting {
	seen := make(map[string]struct{}, len(ps))
	out := make([]model.JobPosting, 0, len(ps))
	for _, p := range ps {
		if _, ok := seen[p.Key()]; ok {
			continue
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	return out
}

func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", model.ErrStoreUnavailable, op, err)
}

func outcome(err error) string {
	var (
		te *model.TransportError
		re *model.ResponseError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &te):
		return "transport_error"
	case errors.As(err, &re):
		return "response_error"
	default:
		return "error"
	}
}
