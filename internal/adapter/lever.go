package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/WyZzYx/Jobsight/internal/model"
)

const (
	leverBaseURL = "https://api.lever.co/v0/postings"

	// SourceLever is the posting source tag for Lever boards.
	SourceLever = "LEVER"
)

// leverCategories represents the categories object in a Lever job.
type leverCategories struct {
	Team         string   `json:"team"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

// leverJob represents a single job in the Lever API response.
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"`
	WorkplaceType    string          `json:"workplaceType"`
	HostedURL        string          `json:"hostedUrl"`
}

// LeverAdapter searches one company's Lever postings.
type LeverAdapter struct {
	model.Toggle

	name        string
	companySlug string
	companyName string
	client      *http.Client
	logger      *slog.Logger
}

var _ model.Provider = (*LeverAdapter)(nil)

// NewLeverAdapter creates an enabled adapter for a Lever board.
// An empty name defaults to "lever:<companySlug>".
func NewLeverAdapter(name, companySlug, companyName string, client *http.Client, logger *slog.Logger) *LeverAdapter {
	if name == "" {
		name = "lever:" + companySlug
	}
	a := &LeverAdapter{
		name:        name,
		companySlug: companySlug,
		companyName: companyName,
		client:      client,
		logger:      logger,
	}
	a.SetEnabled(true)
	return a
}

func (a *LeverAdapter) Name() string { return a.name }

// Search fetches all postings for the company and applies q locally.
func (a *LeverAdapter) Search(ctx context.Context, q model.JobSearchQuery) ([]model.JobPosting, error) {
	url := fmt.Sprintf("%s/%s?mode=json", leverBaseURL, a.companySlug)
	a.logger.Debug("calling provider", "provider", a.name, "url", url)

	var leverJobs []leverJob
	if err := getJSON(ctx, a.client, a.name, url, &leverJobs); err != nil {
		return nil, err
	}

	all := make([]model.JobPosting, 0, len(leverJobs))
	for _, lj := range leverJobs {
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}

		// createdAt is Unix milliseconds.
		var postedAt *time.Time
		if lj.CreatedAt > 0 {
			t := time.UnixMilli(lj.CreatedAt).UTC()
			postedAt = &t
		}

		all = append(all, model.JobPosting{
			Provider:        SourceLever,
			ProviderID:      lj.ID,
			Company:         a.companyName,
			Title:           lj.Text,
			Location:        location,
			WorkArrangement: workArrangementFromLabel(lj.WorkplaceType, lj.Text, location),
			Seniority:       inferSeniority(lj.Text),
			Skills:          inferSkills(lj.Text, lj.DescriptionPlain),
			URL:             lj.HostedURL,
			PostedAt:        postedAt,
			Description:     lj.DescriptionPlain,
		})
	}

	return searchBoard(all, q), nil
}
