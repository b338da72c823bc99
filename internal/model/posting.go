package model

import (
	"context"
	"slices"
	"strings"
	"time"
)

// WorkArrangement is where the work happens.
type WorkArrangement string

const (
	WorkRemote  WorkArrangement = "REMOTE"
	WorkHybrid  WorkArrangement = "HYBRID"
	WorkOnsite  WorkArrangement = "ONSITE"
	WorkUnknown WorkArrangement = "UNKNOWN"
)

// Seniority is a best-effort inferred experience level.
type Seniority string

const (
	SeniorityJunior Seniority = "JUNIOR"
	SeniorityMid    Seniority = "MID"
	SenioritySenior Seniority = "SENIOR"
)

// SalaryRange holds optional bounds in the posting's currency.
type SalaryRange struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// JobPosting is the canonical, provider-agnostic job record.
// (Provider, ProviderID) identifies a posting across the whole store.
type JobPosting struct {
	ID              int64           `json:"id"`
	Provider        string          `json:"provider"`
	ProviderID      string          `json:"providerId"`
	Title           string          `json:"title"`
	Company         string          `json:"company"`
	Location        string          `json:"location"`
	WorkArrangement WorkArrangement `json:"workArrangement"`
	Seniority       Seniority       `json:"seniority"`
	Skills          []string        `json:"skills"`
	Salary          SalaryRange     `json:"salary"`
	Currency        string          `json:"currency,omitempty"`
	PostedAt        *time.Time      `json:"postedAt"`
	URL             string          `json:"url"`
	Description     string          `json:"description,omitempty"`
}

// Key returns the dedup key "provider::providerId".
func (p JobPosting) Key() string {
	return p.Provider + "::" + p.ProviderID
}

// Normalize enforces the posting invariants: unique lower-case skills,
// Min <= Max when both salary bounds are set, and explicit enum defaults.
func (p *JobPosting) Normalize() {
	p.Skills = NormalizeSkills(p.Skills)
	if p.Salary.Min != nil && p.Salary.Max != nil && *p.Salary.Min > *p.Salary.Max {
		p.Salary.Min, p.Salary.Max = p.Salary.Max, p.Salary.Min
	}
	if p.WorkArrangement == "" {
		p.WorkArrangement = WorkUnknown
	}
	if p.Seniority == "" {
		p.Seniority = SeniorityMid
	}
}

// NormalizeSkills lower-cases, trims and de-duplicates skills, returning them sorted.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Provider is one external job source behind a stable name and an enabled flag.
type Provider interface {
	Name() string
	Enabled() bool
	SetEnabled(on bool)
	Search(ctx context.Context, q JobSearchQuery) ([]JobPosting, error)
}

// PageFilter is the store-side subset of a query. Empty fields match all.
type PageFilter struct {
	Title    string
	Location string
}

// SkillCount is one row of the skill frequency report.
type SkillCount struct {
	Skill string `json:"skill"`
	Count int64  `json:"count"`
}

// Store persists postings with a uniqueness constraint on (provider, providerId).
type Store interface {
	Exists(ctx context.Context, provider, providerID string) (bool, error)
	// Insert returns ErrDuplicateKey when the key is already present.
	Insert(ctx context.Context, p JobPosting) (int64, error)
	FindPage(ctx context.Context, f PageFilter, page, size int) ([]JobPosting, int64, error)
	TopSkills(ctx context.Context, f PageFilter, limit int) ([]SkillCount, error)
	Close() error
}

// Notifier delivers postings that a run inserted for the first time.
type Notifier interface {
	Notify(ctx context.Context, postings []JobPosting) error
}
