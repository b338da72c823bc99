package notifier

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/WyZzYx/Jobsight/internal/model"
)

func TestLogNotifier_Notify_zeroPostings(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if err := n.Notify(context.Background(), []model.JobPosting{}); err != nil {
		t.Errorf("Notify([]) = %v, want nil", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestLogNotifier_Notify_logsEachPosting(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	posted := time.Now().Add(-30 * time.Minute)
	postings := []model.JobPosting{
		{Provider: "ADZUNA", Company: "Acme", Title: "Engineer", Location: "Remote", URL: "https://example.com/1", PostedAt: &posted},
		{Provider: "LEVER", Company: "Beta", Title: "Developer", Location: "Warsaw", URL: "https://example.com/2"},
	}
	if err := n.Notify(context.Background(), postings); err != nil {
		t.Errorf("Notify(postings) = %v, want nil", err)
	}

	out := buf.String()
	if got := strings.Count(out, "msg=\"new posting\""); got != 2 {
		t.Errorf("expected 2 log lines, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "company=Beta") || !strings.Contains(out, "provider=ADZUNA") {
		t.Errorf("missing attributes in %q", out)
	}
}

func TestNopNotifier(t *testing.T) {
	if err := (NopNotifier{}).Notify(context.Background(), []model.JobPosting{{Title: "x"}}); err != nil {
		t.Errorf("Notify = %v, want nil", err)
	}
}

func TestSendTestMessage(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := SendTestMessage(context.Background(), n); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if !strings.Contains(buf.String(), "Test Notification") {
		t.Errorf("sample posting not logged: %q", buf.String())
	}
}
