package notifier

import (
	"context"
	"log/slog"

	"github.com/WyZzYx/Jobsight/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes newly stored postings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each posting via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each posting. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, postings []model.JobPosting) error {
	for _, p := range postings {
		args := []any{
			"provider", p.Provider,
			"company", p.Company,
			"title", p.Title,
			"location", p.Location,
			"work", p.WorkArrangement,
			"url", p.URL,
		}
		if p.PostedAt != nil {
			args = append(args, "posted_at", *p.PostedAt)
		}
		n.logger.Info("new posting", args...)
	}
	return nil
}

// Ensure NopNotifier implements model.Notifier.
var _ model.Notifier = NopNotifier{}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, []model.JobPosting) error { return nil }
