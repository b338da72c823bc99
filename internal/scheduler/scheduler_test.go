package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// --- Fakes ---

type recordingApplier struct {
	mu      sync.Mutex
	state   map[string]bool
	applied atomic.Int32
}

func (a *recordingApplier) Apply(enabled map[string]bool) []string {
	a.applied.Add(1)
	a.mu.Lock()
	defer a.mu.Unlock()
	var changed []string
	for name, on := range enabled {
		if cur, ok := a.state[name]; ok && cur != on {
			a.state[name] = on
			changed = append(changed, name)
		}
	}
	return changed
}

func (a *recordingApplier) snapshot() map[string]bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.state)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Tests ---

func TestReload_AppliesEnabledFlags(t *testing.T) {
	target := &recordingApplier{state: map[string]bool{"adzuna": true, "mock": true}}
	load := func() (map[string]bool, error) {
		return map[string]bool{"adzuna": false, "mock": true}, nil
	}

	NewReloader(time.Minute, load, target, discardLogger()).Reload()

	got := target.snapshot()
	if got["adzuna"] || !got["mock"] {
		t.Fatalf("state after reload = %v", got)
	}
}

func TestReload_InvalidConfigKeepsState(t *testing.T) {
	target := &recordingApplier{state: map[string]bool{"adzuna": true}}
	load := func() (map[string]bool, error) { return nil, errors.New("parse config: bad yaml") }

	NewReloader(time.Minute, load, target, discardLogger()).Reload()

	if target.applied.Load() != 0 {
		t.Fatal("Apply must not be called when the config cannot be loaded")
	}
	if !target.snapshot()["adzuna"] {
		t.Fatal("state changed after failed reload")
	}
}

func TestRun_FiresOnScheduleAndStopsOnCancel(t *testing.T) {
	target := &recordingApplier{state: map[string]bool{}}
	var loads atomic.Int32
	load := func() (map[string]bool, error) {
		loads.Add(1)
		return map[string]bool{}, nil
	}
	r := NewReloader(time.Second, load, target, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.After(3 * time.Second)
	for loads.Load() == 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatal("reload never fired")
		case <-time.After(50 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reloader did not return within 2s after cancel")
	}
}
