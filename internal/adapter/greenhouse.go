package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/WyZzYx/Jobsight/internal/model"
)

const (
	greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

	// SourceGreenhouse is the posting source tag for Greenhouse boards.
	SourceGreenhouse = "GREENHOUSE"
)

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	UpdatedAt      string             `json:"updated_at"`
	FirstPublished string             `json:"first_published"`
	Content        string             `json:"content"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// GreenhouseAdapter searches one company's Greenhouse public board.
type GreenhouseAdapter struct {
	model.Toggle

	name        string
	boardToken  string
	companyName string
	client      *http.Client
	logger      *slog.Logger
}

var _ model.Provider = (*GreenhouseAdapter)(nil)

// NewGreenhouseAdapter creates an enabled adapter for a Greenhouse board.
// An empty name defaults to "greenhouse:<boardToken>".
func NewGreenhouseAdapter(name, boardToken, companyName string, client *http.Client, logger *slog.Logger) *GreenhouseAdapter {
	if name == "" {
		name = "greenhouse:" + boardToken
	}
	a := &GreenhouseAdapter{
		name:        name,
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
		logger:      logger,
	}
	a.SetEnabled(true)
	return a
}

func (a *GreenhouseAdapter) Name() string { return a.name }

// Search fetches the whole board and applies q locally.
func (a *GreenhouseAdapter) Search(ctx context.Context, q model.JobSearchQuery) ([]model.JobPosting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", greenhouseBaseURL, a.boardToken)
	a.logger.Debug("calling provider", "provider", a.name, "url", url)

	var ghResp greenhouseResponse
	if err := getJSON(ctx, a.client, a.name, url, &ghResp); err != nil {
		return nil, err
	}

	all := make([]model.JobPosting, 0, len(ghResp.Jobs))
	for _, gj := range ghResp.Jobs {
		description := extractText(gj.Content)
		p := model.JobPosting{
			Provider:        SourceGreenhouse,
			ProviderID:      strconv.FormatInt(gj.ID, 10),
			Company:         a.companyName,
			Title:           gj.Title,
			Location:        gj.Location.Name,
			WorkArrangement: inferWorkArrangement(gj.Title, gj.Location.Name),
			Seniority:       inferSeniority(gj.Title),
			Skills:          inferSkills(gj.Title, description),
			URL:             gj.AbsoluteURL,
			Description:     description,
		}

		// Prefer the original publish date; updated_at moves on every edit.
		published := gj.FirstPublished
		if published == "" {
			published = gj.UpdatedAt
		}
		if published != "" {
			if t, err := time.Parse(time.RFC3339, published); err == nil {
				p.PostedAt = &t
			}
		}

		all = append(all, p)
	}

	return searchBoard(all, q), nil
}
