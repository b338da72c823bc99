package adapter

import (
	"github.com/WyZzYx/Jobsight/internal/filter"
	"github.com/WyZzYx/Jobsight/internal/model"
)

// searchBoard applies q to a full company board and returns the requested
// zero-based page. Job boards have no server-side search, so filtering and
// paging happen here.
func searchBoard(all []model.JobPosting, q model.JobSearchQuery) []model.JobPosting {
	q = q.Normalized()
	matched := filter.ForQuery(q).Apply(all)

	start, ok := model.Offset(q.Page, q.Size)
	if !ok || start >= len(matched) {
		return []model.JobPosting{}
	}
	end := min(start+q.Size, len(matched))
	return matched[start:end]
}
