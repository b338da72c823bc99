package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/WyZzYx/Jobsight/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// countingProvider counts calls and returns err (or a fresh result when err is nil).
type countingProvider struct {
	model.Toggle
	name  string
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{}
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) Search(_ context.Context, _ model.JobSearchQuery) ([]model.JobPosting, error) {
	p.mu.Lock()
	p.calls++
	err := p.err
	block := p.block
	p.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return []model.JobPosting{{Provider: "P", ProviderID: "1"}}, nil
}

func (p *countingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *countingProvider) SetErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

var errUpstream = &model.ResponseError{Provider: "x", StatusCode: 502, Err: errors.New("bad gateway")}

func newTestSet(threshold int, coolDown time.Duration) (*Set, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	set := NewSet(Settings{FailureThreshold: threshold, CoolDown: coolDown})
	set.now = clock.Now
	return set, clock
}

func TestBreaker_OpensAfterThresholdAndFailsFast(t *testing.T) {
	set, _ := newTestSet(3, time.Minute)
	inner := &countingProvider{name: "x", err: errUpstream}
	p := Wrap(inner, set)

	for i := 0; i < 3; i++ {
		if _, err := p.Search(context.Background(), model.JobSearchQuery{}); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: expected upstream error, got %v", i+1, err)
		}
	}
	if got := set.Get("x").State(); got != Open {
		t.Fatalf("expected OPEN after 3 failures, got %s", got)
	}

	_, err := p.Search(context.Background(), model.JobSearchQuery{})
	var openErr *model.CircuitOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected CircuitOpenError, got %v", err)
	}
	if inner.Calls() != 3 {
		t.Fatalf("expected no network call while open, got %d calls", inner.Calls())
	}
}

func TestBreaker_SuccessResetsConsecutiveCount(t *testing.T) {
	set, _ := newTestSet(2, time.Minute)
	inner := &countingProvider{name: "x", err: errUpstream}
	p := Wrap(inner, set)
	ctx := context.Background()

	p.Search(ctx, model.JobSearchQuery{})
	inner.SetErr(nil)
	p.Search(ctx, model.JobSearchQuery{})
	inner.SetErr(errUpstream)
	p.Search(ctx, model.JobSearchQuery{})

	if got := set.Get("x").State(); got != Closed {
		t.Fatalf("failures were not consecutive, expected CLOSED, got %s", got)
	}
}

func TestBreaker_HalfOpenAdmitsExactlyOneTrial(t *testing.T) {
	set, clock := newTestSet(1, 30*time.Second)
	inner := &countingProvider{name: "x", err: errUpstream}
	p := Wrap(inner, set)
	ctx := context.Background()

	p.Search(ctx, model.JobSearchQuery{})
	if set.Get("x").State() != Open {
		t.Fatal("expected OPEN")
	}

	clock.Advance(30 * time.Second)
	if got := set.Get("x").State(); got != HalfOpen {
		t.Fatalf("expected HALF_OPEN after cool-down, got %s", got)
	}

	// Hold the trial call in flight.
	inner.SetErr(nil)
	inner.block = make(chan struct{})
	trialDone := make(chan error, 1)
	go func() {
		_, err := p.Search(ctx, model.JobSearchQuery{})
		trialDone <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for inner.Calls() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("trial call never reached the provider")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := p.Search(ctx, model.JobSearchQuery{})
	if !errors.Is(err, model.ErrCircuitOpen) {
		t.Fatalf("expected concurrent caller to fail fast, got %v", err)
	}

	close(inner.block)
	if err := <-trialDone; err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if inner.Calls() != 2 {
		t.Fatalf("expected exactly one trial call, got %d total calls", inner.Calls())
	}
	if got := set.Get("x").State(); got != Closed {
		t.Fatalf("expected CLOSED after successful trial, got %s", got)
	}
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	set, clock := newTestSet(1, 10*time.Second)
	inner := &countingProvider{name: "x", err: errUpstream}
	p := Wrap(inner, set)
	ctx := context.Background()

	p.Search(ctx, model.JobSearchQuery{})
	clock.Advance(10 * time.Second)

	if _, err := p.Search(ctx, model.JobSearchQuery{}); !errors.Is(err, errUpstream) {
		t.Fatalf("expected the trial to reach the provider, got %v", err)
	}
	if got := set.Get("x").State(); got != Open {
		t.Fatalf("expected OPEN after failed trial, got %s", got)
	}

	// Fresh cool-down: still open 5s later.
	clock.Advance(5 * time.Second)
	if _, err := p.Search(ctx, model.JobSearchQuery{}); !errors.Is(err, model.ErrCircuitOpen) {
		t.Fatalf("expected fail fast during new cool-down, got %v", err)
	}
	if inner.Calls() != 2 {
		t.Fatalf("expected 2 provider calls, got %d", inner.Calls())
	}
}

func TestBreaker_CancellationIsNotAFailure(t *testing.T) {
	set, _ := newTestSet(1, time.Minute)
	inner := &countingProvider{name: "x", err: context.Canceled}
	p := Wrap(inner, set)

	p.Search(context.Background(), model.JobSearchQuery{})
	if got := set.Get("x").State(); got != Closed {
		t.Fatalf("expected CLOSED after cancellation, got %s", got)
	}
}

func TestSet_IsolatesProviders(t *testing.T) {
	set, _ := newTestSet(1, time.Minute)
	failing := Wrap(&countingProvider{name: "a", err: errUpstream}, set)
	healthy := &countingProvider{name: "b"}
	ok := Wrap(healthy, set)

	failing.Search(context.Background(), model.JobSearchQuery{})

	if _, err := ok.Search(context.Background(), model.JobSearchQuery{}); err != nil {
		t.Fatalf("healthy provider affected by another breaker: %v", err)
	}
	states := set.States()
	if states["a"] != Open || states["b"] != Closed {
		t.Fatalf("unexpected states %v", states)
	}
	if set.Get("a") != set.Get("a") {
		t.Fatal("Get must return the same breaker for a name")
	}
}

func TestBreaker_ReportsTransitions(t *testing.T) {
	var mu sync.Mutex
	var transitions []string

	set, clock := newTestSet(1, time.Second)
	set.settings.OnStateChange = func(name string, from, to State) {
		mu.Lock()
		transitions = append(transitions, from.String()+">"+to.String())
		mu.Unlock()
	}
	inner := &countingProvider{name: "x", err: errUpstream}
	p := Wrap(inner, set)

	p.Search(context.Background(), model.JobSearchQuery{})
	clock.Advance(time.Second)
	inner.SetErr(nil)
	p.Search(context.Background(), model.JobSearchQuery{})

	want := []string{"CLOSED>OPEN", "OPEN>HALF_OPEN", "HALF_OPEN>CLOSED"}
	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}
