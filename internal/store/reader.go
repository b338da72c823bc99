// Package store persists job postings and reads them back in pages.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/WyZzYx/Jobsight/internal/model"
)

var errStoreClosed = errors.New("store is closed")

// Reader serves paged, filtered views over a Store.
type Reader struct {
	store model.Store
}

func NewReader(s model.Store) *Reader {
	return &Reader{store: s}
}

// Page returns postings whose title and location contain the filter values
// (case-insensitive), newest first. Page is clamped to >= 0 and size to
// [1, model.MaxPageSize], with 0 or less meaning model.DefaultPageSize.
// A page past the end returns no content and the real total.
func (r *Reader) Page(ctx context.Context, f model.PageFilter, page, size int) (model.PagedResult, error) {
	page = max(page, 0)
	switch {
	case size <= 0:
		size = model.DefaultPageSize
	case size > model.MaxPageSize:
		size = model.MaxPageSize
	}
	f = model.PageFilter{
		Title:    strings.TrimSpace(f.Title),
		Location: strings.TrimSpace(f.Location),
	}

	content, total, err := r.store.FindPage(ctx, f, page, size)
	if err != nil {
		return model.PagedResult{}, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	if content == nil {
		content = []model.JobPosting{}
	}
	return model.PagedResult{Content: content, TotalElements: total, Page: page, Size: size}, nil
}
