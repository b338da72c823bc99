package adapter

import (
	"context"
	"log/slog"
	"time"

	"github.com/WyZzYx/Jobsight/internal/model"
)

// SourceMock is the posting source tag for the built-in sample provider.
const SourceMock = "MOCK"

// MockAdapter returns a fixed set of sample postings so the pipeline can run
// without provider credentials. Results honour the query like a job board.
type MockAdapter struct {
	model.Toggle

	name   string
	now    func() time.Time
	logger *slog.Logger
}

var _ model.Provider = (*MockAdapter)(nil)

// NewMockAdapter creates an enabled sample provider. An empty name defaults to "mock".
func NewMockAdapter(name string, logger *slog.Logger) *MockAdapter {
	if name == "" {
		name = "mock"
	}
	a := &MockAdapter{name: name, now: time.Now, logger: logger}
	a.SetEnabled(true)
	return a
}

func (a *MockAdapter) Name() string { return a.name }

// Search returns the sample postings placed in the query location (Warsaw by default).
func (a *MockAdapter) Search(_ context.Context, q model.JobSearchQuery) ([]model.JobPosting, error) {
	a.logger.Debug("calling provider", "provider", a.name, "title", q.Title, "location", q.Location)

	location := q.Location
	if location == "" {
		location = "Warsaw"
	}
	day := a.now().UTC().Truncate(24 * time.Hour)

	samples := []struct {
		id, title, company string
		work               model.WorkArrangement
		skills             []string
		min, max           int
		age                time.Duration
	}{
		{"mock-1", "Junior Java Developer", "Acme", model.WorkHybrid, []string{"java", "spring", "docker"}, 8000, 12000, 0},
		{"mock-2", "Senior Golang Engineer", "Globex", model.WorkRemote, []string{"golang", "kubernetes", "postgresql"}, 22000, 30000, 24 * time.Hour},
		{"mock-3", "Backend Developer", "Initech", model.WorkOnsite, []string{"python", "redis", "rest api"}, 14000, 19000, 48 * time.Hour},
	}

	all := make([]model.JobPosting, 0, len(samples))
	for _, s := range samples {
		posted := day.Add(-s.age)
		minSalary, maxSalary := s.min, s.max
		all = append(all, model.JobPosting{
			Provider:        SourceMock,
			ProviderID:      s.id,
			Title:           s.title,
			Company:         s.company,
			Location:        location,
			WorkArrangement: s.work,
			Seniority:       inferSeniority(s.title),
			Skills:          s.skills,
			Salary:          model.SalaryRange{Min: &minSalary, Max: &maxSalary},
			Currency:        "PLN",
			PostedAt:        &posted,
			URL:             "https://example.com/jobs/" + s.id,
			Description:     "Sample posting from the built-in provider.",
		})
	}

	return searchBoard(all, q), nil
}
