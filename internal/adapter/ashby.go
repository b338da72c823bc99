package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/WyZzYx/Jobsight/internal/model"
)

const (
	ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

	// SourceAshby is the posting source tag for Ashby boards.
	SourceAshby = "ASHBY"
)

// ashbyJob represents a single job in the Ashby API response.
type ashbyJob struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Location         string `json:"location"`
	JobURL           string `json:"jobUrl"`
	PublishedAt      string `json:"publishedAt"`
	IsListed         bool   `json:"isListed"`
	IsRemote         bool   `json:"isRemote"`
	WorkplaceType    string `json:"workplaceType"`
	DescriptionPlain string `json:"descriptionPlain"`
}

// ashbyResponse is the top-level Ashby job board API response.
type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// AshbyAdapter searches one company's Ashby job board.
type AshbyAdapter struct {
	model.Toggle

	name        string
	boardToken  string
	companyName string
	client      *http.Client
	logger      *slog.Logger
}

var _ model.Provider = (*AshbyAdapter)(nil)

// NewAshbyAdapter creates an enabled adapter for an Ashby job board.
// An empty name defaults to "ashby:<boardToken>".
func NewAshbyAdapter(name, boardToken, companyName string, client *http.Client, logger *slog.Logger) *AshbyAdapter {
	if name == "" {
		name = "ashby:" + boardToken
	}
	a := &AshbyAdapter{
		name:        name,
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
		logger:      logger,
	}
	a.SetEnabled(true)
	return a
}

func (a *AshbyAdapter) Name() string { return a.name }

// Search fetches the listed jobs on the board and applies q locally.
func (a *AshbyAdapter) Search(ctx context.Context, q model.JobSearchQuery) ([]model.JobPosting, error) {
	url := fmt.Sprintf("%s/%s", ashbyBaseURL, a.boardToken)
	a.logger.Debug("calling provider", "provider", a.name, "url", url)

	var ashbyResp ashbyResponse
	if err := getJSON(ctx, a.client, a.name, url, &ashbyResp); err != nil {
		return nil, err
	}

	all := make([]model.JobPosting, 0, len(ashbyResp.Jobs))
	for _, aj := range ashbyResp.Jobs {
		if !aj.IsListed {
			continue
		}

		// Older boards omit the id; the job URL is stable per posting.
		id := aj.ID
		if id == "" {
			id = aj.JobURL
		}

		work := workArrangementFromLabel(aj.WorkplaceType, aj.Title, aj.Location)
		if aj.IsRemote && work == model.WorkUnknown {
			work = model.WorkRemote
		}

		p := model.JobPosting{
			Provider:        SourceAshby,
			ProviderID:      id,
			Company:         a.companyName,
			Title:           aj.Title,
			Location:        aj.Location,
			WorkArrangement: work,
			Seniority:       inferSeniority(aj.Title),
			Skills:          inferSkills(aj.Title, aj.DescriptionPlain),
			URL:             aj.JobURL,
			Description:     aj.DescriptionPlain,
		}

		if aj.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, aj.PublishedAt); err == nil {
				p.PostedAt = &t
			}
		}

		all = append(all, p)
	}

	return searchBoard(all, q), nil
}
