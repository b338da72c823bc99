package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/WyZzYx/Jobsight/internal/model"
)

const (
	adzunaDefaultBaseURL = "https://api.adzuna.com/v1/api/jobs"
	adzunaDefaultCountry = "pl"
	adzunaMaxPerPage     = 50

	// SourceAdzuna is the posting source tag for Adzuna results.
	SourceAdzuna = "ADZUNA"
)

// adzunaSecrets are the query parameters redacted from logs and errors.
var adzunaSecrets = []string{"app_id", "app_key"}

// adzunaCurrencies maps the country segment of the API path to the currency
// salaries are reported in.
var adzunaCurrencies = map[string]string{
	"at": "EUR", "au": "AUD", "be": "EUR", "br": "BRL", "ca": "CAD", "ch": "CHF",
	"de": "EUR", "es": "EUR", "fr": "EUR", "gb": "GBP", "in": "INR", "it": "EUR",
	"mx": "MXN", "nl": "EUR", "nz": "NZD", "pl": "PLN", "sg": "SGD", "us": "USD",
	"za": "ZAR",
}

type adzunaResponse struct {
	Count   int         `json:"count"`
	Results []adzunaJob `json:"results"`
}

type adzunaJob struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Created      string     `json:"created"`
	RedirectURL  string     `json:"redirect_url"`
	ContractTime string     `json:"contract_time"`
	SalaryMin    *float64   `json:"salary_min"`
	SalaryMax    *float64   `json:"salary_max"`
	Company      adzunaName `json:"company"`
	Location     adzunaName `json:"location"`
}

type adzunaName struct {
	DisplayName string `json:"display_name"`
}

// AdzunaConfig holds the credentials and endpoint for the Adzuna search API.
type AdzunaConfig struct {
	Name    string
	AppID   string
	AppKey  string
	Country string
	BaseURL string
}

// AdzunaAdapter searches the Adzuna job search API.
type AdzunaAdapter struct {
	model.Toggle

	name    string
	appID   string
	appKey  string
	country string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ model.Provider = (*AdzunaAdapter)(nil)

// NewAdzunaAdapter validates cfg and returns an enabled adapter.
func NewAdzunaAdapter(cfg AdzunaConfig, client *http.Client, logger *slog.Logger) (*AdzunaAdapter, error) {
	if cfg.AppID == "" || cfg.AppKey == "" {
		return nil, fmt.Errorf("adzuna: app_id and app_key are required")
	}
	if cfg.Name == "" {
		cfg.Name = "adzuna"
	}
	if cfg.Country == "" {
		cfg.Country = adzunaDefaultCountry
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = adzunaDefaultBaseURL
	}

	a := &AdzunaAdapter{
		name:    cfg.Name,
		appID:   cfg.AppID,
		appKey:  cfg.AppKey,
		country: strings.ToLower(cfg.Country),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		logger:  logger,
	}
	a.SetEnabled(true)
	return a, nil
}

func (a *AdzunaAdapter) Name() string { return a.name }

// Search runs one Adzuna search. Adzuna pages are one-based and hold at most
// adzunaMaxPerPage results, so a larger page is assembled from the provider
// pages that span it.
func (a *AdzunaAdapter) Search(ctx context.Context, q model.JobSearchQuery) ([]model.JobPosting, error) {
	q = q.Normalized()
	offset, ok := model.Offset(q.Page, q.Size)
	if !ok {
		return []model.JobPosting{}, nil
	}
	perPage := min(q.Size, adzunaMaxPerPage)
	first, last := offset/perPage, (offset+q.Size-1)/perPage

	var jobs []adzunaJob
	for page := first; page <= last; page++ {
		reqURL := a.searchURL(q, page+1, perPage)
		a.logger.Debug("calling provider",
			"provider", a.name,
			"url", redactURL(reqURL, adzunaSecrets...),
		)

		var resp adzunaResponse
		if err := getJSON(ctx, a.client, a.name, reqURL, &resp, adzunaSecrets...); err != nil {
			return nil, err
		}
		jobs = append(jobs, resp.Results...)
		if len(resp.Results) < perPage {
			break
		}
	}

	skip := offset - first*perPage
	if skip >= len(jobs) {
		return []model.JobPosting{}, nil
	}
	jobs = jobs[skip:min(skip+q.Size, len(jobs))]

	postings := make([]model.JobPosting, 0, len(jobs))
	for _, j := range jobs {
		p := a.mapJob(j)
		if q.RemoteOnly && p.WorkArrangement != model.WorkRemote {
			continue
		}
		postings = append(postings, p)
	}
	return postings, nil
}

func (a *AdzunaAdapter) searchURL(q model.JobSearchQuery, page, perPage int) string {
	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(perPage))
	params.Set("sort_by", "date")
	params.Set("content-type", "application/json")
	if q.Title != "" {
		params.Set("what", q.Title)
	}
	if len(q.TechStack) > 0 {
		params.Set("what_and", strings.Join(q.TechStack, " "))
	}
	if q.Location != "" {
		params.Set("where", q.Location)
	}

	return fmt.Sprintf("%s/%s/search/%d?%s", a.baseURL, url.PathEscape(a.country), page, params.Encode())
}

func (a *AdzunaAdapter) mapJob(j adzunaJob) model.JobPosting {
	description := extractText(j.Description)
	p := model.JobPosting{
		Provider:        SourceAdzuna,
		ProviderID:      j.ID,
		Title:           j.Title,
		Company:         j.Company.DisplayName,
		Location:        j.Location.DisplayName,
		WorkArrangement: inferWorkArrangement(j.Title, description),
		Seniority:       inferSeniority(j.Title),
		Skills:          inferSkills(j.Title, description),
		Currency:        adzunaCurrencies[a.country],
		URL:             j.RedirectURL,
		Description:     description,
	}

	if j.SalaryMin != nil {
		v := int(*j.SalaryMin)
		p.Salary.Min = &v
	}
	if j.SalaryMax != nil {
		v := int(*j.SalaryMax)
		p.Salary.Max = &v
	}

	if j.Created != "" {
		if t, err := time.Parse(time.RFC3339, j.Created); err == nil {
			p.PostedAt = &t
		}
	}

	return p
}
