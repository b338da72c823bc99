package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/WyZzYx/Jobsight/internal/model"
)

func TestLeverAdapter_Search_Success(t *testing.T) {
	payload := `[
		{
			"id": "ff7ef527-b0d3-4c44-836a-8d6b58ac321e",
			"text": "Software Engineer",
			"descriptionPlain": "Plain text job description with Kubernetes",
			"categories": {
				"team": "Engineering",
				"location": "San Francisco, CA",
				"commitment": "Full-time",
				"allLocations": ["San Francisco, CA", "Remote"]
			},
			"createdAt": 1769784074110,
			"workplaceType": "hybrid",
			"hostedUrl": "https://jobs.lever.co/acme/ff7ef527-b0d3-4c44-836a-8d6b58ac321e"
		},
		{
			"id": "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
			"text": "Junior Backend Engineer",
			"descriptionPlain": "Backend job description",
			"categories": {
				"team": "Engineering",
				"location": "Remote",
				"commitment": "Full-time",
				"allLocations": ["Remote"]
			},
			"createdAt": 1769870474110,
			"workplaceType": "remote",
			"hostedUrl": "https://jobs.lever.co/acme/a1b2c3d4-e5f6-7890-abcd-ef1234567890"
		}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	adapter := newLeverTestAdapter(srv, "acme", "Acme Corp")

	jobs, err := adapter.Search(context.Background(), model.JobSearchQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}

	j := jobs[0]
	if j.Key() != "LEVER::ff7ef527-b0d3-4c44-836a-8d6b58ac321e" {
		t.Errorf("unexpected key %s", j.Key())
	}
	if j.Location != "San Francisco, CA, Remote" {
		t.Errorf("expected location 'San Francisco, CA, Remote', got %s", j.Location)
	}
	if j.WorkArrangement != model.WorkHybrid {
		t.Errorf("expected HYBRID from workplaceType, got %s", j.WorkArrangement)
	}
	if j.PostedAt == nil {
		t.Fatal("expected PostedAt to be set from createdAt")
	}
	expected := time.UnixMilli(1769784074110).UTC()
	if !j.PostedAt.Equal(expected) {
		t.Errorf("expected PostedAt %v, got %v", expected, j.PostedAt)
	}
	if len(j.Skills) != 1 || j.Skills[0] != "kubernetes" {
		t.Errorf("expected kubernetes skill, got %v", j.Skills)
	}

	j2 := jobs[1]
	if j2.Seniority != model.SeniorityJunior {
		t.Errorf("expected JUNIOR, got %s", j2.Seniority)
	}
	if j2.WorkArrangement != model.WorkRemote {
		t.Errorf("expected REMOTE, got %s", j2.WorkArrangement)
	}
}

func TestLeverAdapter_Search_RemoteOnly(t *testing.T) {
	payload := `[
		{"id": "1", "text": "Engineer", "categories": {"location": "Berlin"}, "workplaceType": "onsite"},
		{"id": "2", "text": "Engineer", "categories": {"location": "Anywhere"}, "workplaceType": "remote"}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	adapter := newLeverTestAdapter(srv, "acme", "Acme Corp")

	jobs, err := adapter.Search(context.Background(), model.JobSearchQuery{RemoteOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ProviderID != "2" {
		t.Fatalf("expected only the remote posting, got %v", jobs)
	}
	if jobs[0].PostedAt != nil {
		t.Errorf("expected nil PostedAt when createdAt is missing, got %v", jobs[0].PostedAt)
	}
}

func TestLeverAdapter_Search_LocationFallback(t *testing.T) {
	payload := `[
		{
			"id": "test-id-123",
			"text": "Test Engineer",
			"categories": {"location": "New York, NY", "allLocations": []},
			"createdAt": 1769784074110,
			"workplaceType": "onsite",
			"hostedUrl": "https://jobs.lever.co/acme/test-id-123"
		}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	adapter := newLeverTestAdapter(srv, "acme", "Acme Corp")

	jobs, err := adapter.Search(context.Background(), model.JobSearchQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Location != "New York, NY" {
		t.Errorf("expected fallback to categories.location, got %s", jobs[0].Location)
	}
	if jobs[0].WorkArrangement != model.WorkOnsite {
		t.Errorf("expected ONSITE, got %s", jobs[0].WorkArrangement)
	}
}

func TestLeverAdapter_Search_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := newLeverTestAdapter(srv, "acme", "Acme Corp")

	_, err := adapter.Search(context.Background(), model.JobSearchQuery{})
	var respErr *model.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected ResponseError with 500, got %v", err)
	}
}

// newLeverTestAdapter creates a LeverAdapter wired to a test server.
func newLeverTestAdapter(srv *httptest.Server, slug, company string) *LeverAdapter {
	return NewLeverAdapter("", slug, company, rewriteClient(srv), discardLogger())
}
