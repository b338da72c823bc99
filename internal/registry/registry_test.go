package registry

import (
	"context"
	"slices"
	"testing"

	"github.com/WyZzYx/Jobsight/internal/model"
)

type namedProvider struct {
	model.Toggle
	name string
}

func newProvider(name string, enabled bool) *namedProvider {
	p := &namedProvider{name: name}
	p.SetEnabled(enabled)
	return p
}

func (p *namedProvider) Name() string { return p.name }

func (p *namedProvider) Search(context.Context, model.JobSearchQuery) ([]model.JobPosting, error) {
	return nil, nil
}

func names(ps []model.Provider) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}

func TestAll_FiltersDisabledAndKeepsOrder(t *testing.T) {
	r := New(newProvider("c", true), newProvider("a", false), newProvider("b", true))

	if got := names(r.All()); !slices.Equal(got, []string{"c", "b"}) {
		t.Fatalf("All() = %v, want [c b]", got)
	}
	if got := names(r.Providers()); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Fatalf("Providers() = %v, want [c a b]", got)
	}
}

func TestAll_ReflectsRuntimeToggles(t *testing.T) {
	a := newProvider("a", true)
	r := New(a, newProvider("b", true))

	a.SetEnabled(false)
	if got := names(r.All()); !slices.Equal(got, []string{"b"}) {
		t.Fatalf("All() after disable = %v", got)
	}

	changed := r.Apply(map[string]bool{"a": true, "b": true, "unknown": false})
	if !slices.Equal(changed, []string{"a"}) {
		t.Fatalf("Apply changed = %v, want [a]", changed)
	}
	if got := names(r.All()); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("All() after Apply = %v", got)
	}
}

func TestRegister_RejectsDuplicateNames(t *testing.T) {
	r := New(newProvider("adzuna", true))
	if err := r.Register(newProvider("adzuna", true)); err == nil {
		t.Fatal("expected error for duplicate name")
	}
}

func TestAll_EmptyRegistry(t *testing.T) {
	r := New()
	if got := r.All(); len(got) != 0 {
		t.Fatalf("All() = %v, want empty", got)
	}
}
