// Package scheduler periodically re-reads the configuration and applies
// provider enabled flags to the running registry.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Applier receives the desired enabled flag per provider name and reports
// which providers changed.
type Applier interface {
	Apply(enabled map[string]bool) []string
}

// LoadFunc returns the enabled flag per provider name from the current config.
type LoadFunc func() (map[string]bool, error)

// Reloader wraps robfig/cron and owns the reload loop.
type Reloader struct {
	cron   *cron.Cron
	spec   string
	load   LoadFunc
	target Applier
	logger *slog.Logger
}

// NewReloader creates a Reloader that fires every interval.
func NewReloader(interval time.Duration, load LoadFunc, target Applier, logger *slog.Logger) *Reloader {
	cl := cronLogger{logger: logger}
	return &Reloader{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		spec:   "@every " + interval.String(),
		load:   load,
		target: target,
		logger: logger,
	}
}

// Run registers the reload job and blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.spec, r.Reload); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	r.cron.Start()
	r.logger.Info("config reload scheduled", "spec", r.spec)

	<-ctx.Done()
	<-r.cron.Stop().Done()
	r.logger.Info("config reload stopped")
	return nil
}

// Reload reads the config once and applies it. An invalid config is logged
// and the running state is kept.
func (r *Reloader) Reload() {
	enabled, err := r.load()
	if err != nil {
		r.logger.Error("config reload failed, keeping current providers", "error", err)
		return
	}

	changed := r.target.Apply(enabled)
	if len(changed) == 0 {
		r.logger.Debug("config reloaded, no provider changes")
		return
	}
	for _, name := range changed {
		r.logger.Info("provider toggled by config reload", "provider", name, "enabled", enabled[name])
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
