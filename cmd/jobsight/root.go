package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/WyZzYx/Jobsight/internal/config"
	"github.com/WyZzYx/Jobsight/internal/model"
	"github.com/WyZzYx/Jobsight/internal/notifier"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobsight",
	Short: "Job posting aggregator",
	Long:  "Jobsight searches several job boards at once, stores what it finds and serves it back page by page.",
	// `jobsight` with no subcommand runs the API server.
	RunE:         runServe,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSIGHT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSIGHT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	return config.Load(config.ResolvePath(path))
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// setupNotifier builds the configured notifier. The returned close func is never nil.
func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.Notifier, func() error, error) {
	nop := func() error { return nil }
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger), nop, nil
	case "amqp":
		n, err := notifier.NewAMQPNotifier(cfg.Notification.AMQPURL, cfg.Notification.Exchange, logger)
		if err != nil {
			return nil, nop, fmt.Errorf("amqp notifier: %w", err)
		}
		logger.Info("using amqp notifier", "exchange", cfg.Notification.Exchange)
		return n, n.Close, nil
	case "none":
		return notifier.NopNotifier{}, nop, nil
	default:
		return notifier.NewLogNotifier(logger), nop, nil
	}
}
