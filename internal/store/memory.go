package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/WyZzYx/Jobsight/internal/model"
)

// MemoryStore keeps postings in process memory. It is used by tests and by
// the "memory" driver for throwaway runs.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []model.JobPosting
	keys   map[string]struct{}
	closed bool
}

var _ model.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]struct{})}
}

func (s *MemoryStore) Exists(ctx context.Context, provider, providerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	_, ok := s.keys[provider+"::"+providerID]
	return ok, nil
}

func (s *MemoryStore) Insert(ctx context.Context, p model.JobPosting) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	if _, ok := s.keys[p.Key()]; ok {
		return 0, model.ErrDuplicateKey
	}
	s.nextID++
	p.ID = s.nextID
	p.Skills = slices.Clone(nonNilSkills(p.Skills))
	if p.PostedAt != nil {
		t := *p.PostedAt
		p.PostedAt = &t
	}
	s.rows = append(s.rows, p)
	s.keys[p.Key()] = struct{}{}
	return p.ID, nil
}

func (s *MemoryStore) FindPage(ctx context.Context, f model.PageFilter, page, size int) ([]model.JobPosting, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, 0, err
	}

	matched := s.matching(f)
	slices.SortFunc(matched, comparePostings)

	total := int64(len(matched))
	start, ok := model.Offset(page, size)
	if !ok || start >= len(matched) {
		return []model.JobPosting{}, total, nil
	}
	end := min(start+size, len(matched))
	return slices.Clone(matched[start:end]), total, nil
}

func (s *MemoryStore) TopSkills(ctx context.Context, f model.PageFilter, limit int) ([]model.SkillCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, p := range s.matching(f) {
		for _, skill := range p.Skills {
			counts[skill]++
		}
	}
	out := make([]model.SkillCount, 0, len(counts))
	for skill, n := range counts {
		out = append(out, model.SkillCount{Skill: skill, Count: n})
	}
	slices.SortFunc(out, func(a, b model.SkillCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Skill, b.Skill)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) check(ctx context.Context) error {
	if s.closed {
		return errStoreClosed
	}
	return ctx.Err()
}

func (s *MemoryStore) matching(f model.PageFilter) []model.JobPosting {
	title := strings.ToLower(f.Title)
	location := strings.ToLower(f.Location)
	var out []model.JobPosting
	for _, p := range s.rows {
		if title != "" && !strings.Contains(strings.ToLower(p.Title), title) {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(p.Location), location) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// comparePostings orders newest first with missing dates last, then by id.
func comparePostings(a, b model.JobPosting) int {
	switch {
	case a.PostedAt == nil && b.PostedAt != nil:
		return 1
	case a.PostedAt != nil && b.PostedAt == nil:
		return -1
	case a.PostedAt != nil && b.PostedAt != nil:
		if c := b.PostedAt.Compare(*a.PostedAt); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.ID, b.ID)
}
