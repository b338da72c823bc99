// Package breaker isolates failing providers behind per-provider circuit breakers.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/WyZzYx/Jobsight/internal/model"
)

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Settings configure every breaker in a Set.
type Settings struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold int
	// CoolDown is how long the breaker stays open before admitting a trial call.
	CoolDown time.Duration
	// OnStateChange, if set, is called after every transition, outside the lock.
	OnStateChange func(name string, from, to State)
}

// Breaker is a consecutive-failure circuit breaker for one provider.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trial    bool // a half-open trial call is in flight
}

func newBreaker(name string, s Settings, now func() time.Time) *Breaker {
	if s.FailureThreshold < 1 {
		s.FailureThreshold = 1
	}
	return &Breaker{name: name, settings: s, now: now}
}

// State returns the current position, reporting an expired Open as HalfOpen.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && !b.now().Before(b.openedAt.Add(b.settings.CoolDown)) {
		return HalfOpen
	}
	return b.state
}

// Allow asks to make one call. On success the caller must invoke done exactly
// once with the call's error. While open, or while a half-open trial is in
// flight, Allow returns a *model.CircuitOpenError.
func (b *Breaker) Allow() (done func(err error), err error) {
	b.mu.Lock()
	from := b.state

	switch b.state {
	case Open:
		retryAt := b.openedAt.Add(b.settings.CoolDown)
		if b.now().Before(retryAt) {
			b.mu.Unlock()
			return nil, &model.CircuitOpenError{Provider: b.name, RetryAt: retryAt}
		}
		b.state = HalfOpen
		b.trial = true
	case HalfOpen:
		if b.trial {
			b.mu.Unlock()
			return nil, &model.CircuitOpenError{Provider: b.name, RetryAt: b.now()}
		}
		b.trial = true
	}

	to := b.state
	b.mu.Unlock()
	b.notify(from, to)

	var once sync.Once
	return func(err error) {
		once.Do(func() { b.record(err) })
	}, nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	from := b.state

	switch {
	case err == nil:
		b.failures = 0
		b.state = Closed
		b.trial = false
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// The caller gave up; this says nothing about the provider.
		b.trial = false
	case b.state == HalfOpen:
		b.trip()
	default:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			b.trip()
		}
	}

	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
}

// trip opens the breaker. Callers hold b.mu.
func (b *Breaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.failures = 0
	b.trial = false
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}

// Set owns one breaker per provider name. It is created once at startup and
// shared by everything that wraps providers.
type Set struct {
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewSet returns an empty set whose breakers use s.
func NewSet(s Settings) *Set {
	return &Set{settings: s, now: time.Now, breakers: make(map[string]*Breaker)}
}

// Get returns the breaker for name, creating it on first use.
func (s *Set) Get(name string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[name]
	if !ok {
		b = newBreaker(name, s.settings, s.now)
		s.breakers[name] = b
	}
	return b
}

// States reports the current state of every breaker created so far.
func (s *Set) States() map[string]State {
	s.mu.Lock()
	breakers := make([]*Breaker, 0, len(s.breakers))
	for _, b := range s.breakers {
		breakers = append(breakers, b)
	}
	s.mu.Unlock()

	out := make(map[string]State, len(breakers))
	for _, b := range breakers {
		out[b.name] = b.State()
	}
	return out
}

// Provider guards a provider with its breaker.
type Provider struct {
	model.Provider

	breaker *Breaker
}

// Wrap guards inner with the breaker registered under inner's name in set.
// One call to inner is one breaker outcome. When inner retries, a whole retry
// sequence counts as a single failure, and the one half-open trial may make
// several network requests.
func Wrap(inner model.Provider, set *Set) *Provider {
	return &Provider{Provider: inner, breaker: set.Get(inner.Name())}
}

// Search fails fast while the breaker is open and records the outcome otherwise.
func (p *Provider) Search(ctx context.Context, q model.JobSearchQuery) ([]model.JobPosting, error) {
	done, err := p.breaker.Allow()
	if err != nil {
		return nil, err
	}
	postings, err := p.Provider.Search(ctx, q)
	done(err)
	if err != nil {
		return nil, err
	}
	return postings, nil
}
