package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/WyZzYx/Jobsight/internal/model"
)

func TestAshbySearch_Success(t *testing.T) {
	payload := `{
		"jobs": [
			{
				"id": "c1",
				"title": "Staff Platform Engineer",
				"location": "Remote - Europe",
				"jobUrl": "https://jobs.ashbyhq.com/acme/c1",
				"publishedAt": "2026-02-10T09:00:00.000+00:00",
				"isListed": true,
				"isRemote": true,
				"descriptionPlain": "Terraform, AWS and Go"
			},
			{
				"title": "Office Manager",
				"location": "Warsaw",
				"jobUrl": "https://jobs.ashbyhq.com/acme/legacy",
				"isListed": true,
				"workplaceType": "OnSite"
			},
			{
				"id": "hidden",
				"title": "Unlisted Role",
				"location": "Warsaw",
				"jobUrl": "https://jobs.ashbyhq.com/acme/hidden",
				"isListed": false
			}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	adapter := newAshbyTestAdapter(srv, "acme", "Acme Corp")

	jobs, err := adapter.Search(context.Background(), model.JobSearchQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 listed jobs, got %d", len(jobs))
	}

	j := jobs[0]
	if j.Key() != "ASHBY::c1" {
		t.Errorf("unexpected key %s", j.Key())
	}
	if j.WorkArrangement != model.WorkRemote {
		t.Errorf("expected REMOTE, got %s", j.WorkArrangement)
	}
	if j.Seniority != model.SenioritySenior {
		t.Errorf("expected SENIOR for staff title, got %s", j.Seniority)
	}
	if j.PostedAt == nil {
		t.Error("expected PostedAt to be parsed")
	}

	legacy := jobs[1]
	if legacy.ProviderID != "https://jobs.ashbyhq.com/acme/legacy" {
		t.Errorf("expected job URL as fallback id, got %s", legacy.ProviderID)
	}
	if legacy.WorkArrangement != model.WorkOnsite {
		t.Errorf("expected ONSITE from workplaceType, got %s", legacy.WorkArrangement)
	}
}

func TestAshbySearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	adapter := newAshbyTestAdapter(srv, "acme", "Acme Corp")

	_, err := adapter.Search(context.Background(), model.JobSearchQuery{})
	var respErr *model.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected ResponseError with 404, got %v", err)
	}
}

// newAshbyTestAdapter creates an AshbyAdapter wired to a test server.
func newAshbyTestAdapter(srv *httptest.Server, token, company string) *AshbyAdapter {
	return NewAshbyAdapter("", token, company, rewriteClient(srv), discardLogger())
}
