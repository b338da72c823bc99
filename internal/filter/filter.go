package filter

import (
	"strings"

	"github.com/WyZzYx/Jobsight/internal/model"
)

// QueryFilter matches postings against a search query. Title and location are
// case-insensitive substrings, every tech stack entry must appear among the
// posting's skills or in its title, and remote-only keeps REMOTE postings.
// Empty fields match everything.
type QueryFilter struct {
	title      string
	location   string
	techStack  []string
	remoteOnly bool
}

// ForQuery returns a filter applying every field of q.
func ForQuery(q model.JobSearchQuery) *QueryFilter {
	return &QueryFilter{
		title:      strings.ToLower(strings.TrimSpace(q.Title)),
		location:   strings.ToLower(strings.TrimSpace(q.Location)),
		techStack:  model.NormalizeSkills(q.TechStack),
		remoteOnly: q.RemoteOnly,
	}
}

// TitleAndLocation returns a filter on the store-side fields only.
func TitleAndLocation(f model.PageFilter) *QueryFilter {
	return &QueryFilter{
		title:    strings.ToLower(strings.TrimSpace(f.Title)),
		location: strings.ToLower(strings.TrimSpace(f.Location)),
	}
}

// Match returns true if p satisfies every non-empty criterion.
func (f *QueryFilter) Match(p model.JobPosting) bool {
	if f.title != "" && !strings.Contains(strings.ToLower(p.Title), f.title) {
		return false
	}
	if f.location != "" && !strings.Contains(strings.ToLower(p.Location), f.location) {
		return false
	}
	if f.remoteOnly && p.WorkArrangement != model.WorkRemote {
		return false
	}

	if len(f.techStack) > 0 {
		titleLower := strings.ToLower(p.Title)
		for _, tech := range f.techStack {
			if !hasSkill(p.Skills, tech) && !strings.Contains(titleLower, tech) {
				return false
			}
		}
	}

	return true
}

// Apply returns the postings in ps that match, preserving order.
func (f *QueryFilter) Apply(ps []model.JobPosting) []model.JobPosting {
	out := make([]model.JobPosting, 0, len(ps))
	for _, p := range ps {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

func hasSkill(skills []string, tech string) bool {
	for _, s := range skills {
		if strings.EqualFold(s, tech) {
			return true
		}
	}
	return false
}
