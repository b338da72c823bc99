package model

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage bounds caller-supplied page indexes where they are validated.
	MaxPage = 100_000
)

// JobSearchQuery drives both the provider calls and the store re-query.
// It is passed by value and never modified in place.
type JobSearchQuery struct {
	Title      string   `json:"title"`
	Location   string   `json:"location"`
	TechStack  []string `json:"techStack"`
	RemoteOnly bool     `json:"remoteOnly"`
	Page       int      `json:"page"`
	Size       int      `json:"size"`
}

// Normalized returns a trimmed copy with page and size brought into range.
// A zero size means the default page size.
func (q JobSearchQuery) Normalized() JobSearchQuery {
	out := JobSearchQuery{
		Title:      strings.TrimSpace(q.Title),
		Location:   strings.TrimSpace(q.Location),
		TechStack:  NormalizeSkills(q.TechStack),
		RemoteOnly: q.RemoteOnly,
		Page:       max(q.Page, 0),
		Size:       q.Size,
	}
	switch {
	case out.Size <= 0:
		out.Size = DefaultPageSize
	case out.Size > MaxPageSize:
		out.Size = MaxPageSize
	}
	return out
}

// Validate reports out-of-range paging values. Size 0 is accepted as "default".
func (q JobSearchQuery) Validate() error {
	if q.Page < 0 || q.Page > MaxPage {
		return fmt.Errorf("page must be between 0 and %d, got %d", MaxPage, q.Page)
	}
	if q.Size < 0 || q.Size > MaxPageSize {
		return fmt.Errorf("size must be between 1 and %d, got %d", MaxPageSize, q.Size)
	}
	return nil
}

// Offset returns the index of the first row of page. ok is false when the
// page lies beyond any addressable row, so callers return an empty page.
func Offset(page, size int) (offset int, ok bool) {
	if page < 0 || size <= 0 {
		return 0, page == 0 && size >= 0
	}
	if page > (math.MaxInt-size)/size {
		return 0, false
	}
	return page * size, true
}

// Filter returns the store-side filter for the query.
func (q JobSearchQuery) Filter() PageFilter {
	return PageFilter{Title: q.Title, Location: q.Location}
}

// HasTech reports whether tech is one of the query's tech stack entries.
func (q JobSearchQuery) HasTech(tech string) bool {
	return slices.Contains(q.TechStack, strings.ToLower(tech))
}

// PagedResult is one page of persisted postings.
type PagedResult struct {
	Content       []JobPosting `json:"content"`
	TotalElements int64        `json:"totalElements"`
	Page          int          `json:"page"`
	Size          int          `json:"size"`
}

// TotalPages returns the number of pages at the result's page size.
func (r PagedResult) TotalPages() int {
	if r.Size <= 0 || r.TotalElements == 0 {
		return 0
	}
	return int((r.TotalElements + int64(r.Size) - 1) / int64(r.Size))
}
