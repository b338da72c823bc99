package filter

import (
	"testing"

	"github.com/WyZzYx/Jobsight/internal/model"
)

func posting(title, location string, work model.WorkArrangement, skills ...string) model.JobPosting {
	return model.JobPosting{Title: title, Location: location, WorkArrangement: work, Skills: skills}
}

func TestForQuery_Match(t *testing.T) {
	tests := []struct {
		name      string
		query     model.JobSearchQuery
		posting   model.JobPosting
		wantMatch bool
	}{
		{
			name:      "empty query matches all",
			query:     model.JobSearchQuery{},
			posting:   posting("Anything", "Anywhere", model.WorkUnknown),
			wantMatch: true,
		},
		{
			name:      "title and location substring, case-insensitive",
			query:     model.JobSearchQuery{Title: "java", Location: "warsaw"},
			posting:   posting("Senior Java Developer", "Warsaw, Poland", model.WorkOnsite),
			wantMatch: true,
		},
		{
			name:      "location miss",
			query:     model.JobSearchQuery{Title: "java", Location: "Krakow"},
			posting:   posting("Java Developer", "Warsaw", model.WorkOnsite),
			wantMatch: false,
		},
		{
			name:      "whitespace-only title is no filter",
			query:     model.JobSearchQuery{Title: "   "},
			posting:   posting("Go Engineer", "Berlin", model.WorkHybrid),
			wantMatch: true,
		},
		{
			name:      "remote only rejects hybrid",
			query:     model.JobSearchQuery{RemoteOnly: true},
			posting:   posting("Go Engineer", "Berlin", model.WorkHybrid),
			wantMatch: false,
		},
		{
			name:      "remote only accepts remote",
			query:     model.JobSearchQuery{RemoteOnly: true},
			posting:   posting("Go Engineer", "Remote", model.WorkRemote),
			wantMatch: true,
		},
		{
			name:      "tech stack requires every entry",
			query:     model.JobSearchQuery{TechStack: []string{"Docker", "kafka"}},
			posting:   posting("Backend Engineer", "Remote", model.WorkRemote, "docker"),
			wantMatch: false,
		},
		{
			name:      "tech stack satisfied by skills and title",
			query:     model.JobSearchQuery{TechStack: []string{"docker", "golang"}},
			posting:   posting("Golang Engineer", "Remote", model.WorkRemote, "docker"),
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForQuery(tt.query).Match(tt.posting)
			if got != tt.wantMatch {
				t.Errorf("Match() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestTitleAndLocation_IgnoresQueryOnlyFields(t *testing.T) {
	f := TitleAndLocation(model.PageFilter{Title: "engineer"})
	p := posting("Platform Engineer", "Onsite", model.WorkOnsite)
	if !f.Match(p) {
		t.Error("expected match on title only")
	}
}

func TestApply_PreservesOrder(t *testing.T) {
	ps := []model.JobPosting{
		posting("Go Engineer", "Remote", model.WorkRemote),
		posting("Designer", "Remote", model.WorkRemote),
		posting("Staff Go Engineer", "Remote", model.WorkRemote),
	}
	got := ForQuery(model.JobSearchQuery{Title: "go"}).Apply(ps)
	if len(got) != 2 || got[0].Title != "Go Engineer" || got[1].Title != "Staff Go Engineer" {
		t.Errorf("Apply() = %v", got)
	}
}
