package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/WyZzYx/Jobsight/internal/browse"
	"github.com/WyZzYx/Jobsight/internal/model"
)

var browseFlags struct {
	title    string
	location string
	size     int
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Page through stored postings in the terminal",
	Long:  "Opens an interactive pager over the posting store. Nothing is fetched from the providers.",
	RunE:  runBrowse,
}

func init() {
	f := browseCmd.Flags()
	f.StringVarP(&browseFlags.title, "title", "t", "", "title keyword")
	f.StringVarP(&browseFlags.location, "location", "l", "", "location keyword")
	f.IntVar(&browseFlags.size, "size", model.DefaultPageSize, "page size (max 100)")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logs would corrupt the alternate screen.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := buildApp(context.Background(), cfg, nil, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	fetch := func(ctx context.Context, page, size int) (model.PagedResult, error) {
		return a.service.Page(ctx, model.JobSearchQuery{
			Title:    browseFlags.title,
			Location: browseFlags.location,
			Page:     page,
			Size:     size,
		})
	}
	return browse.Run(fetch, browseFlags.title, browseFlags.size)
}
