package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WyZzYx/Jobsight/internal/model"
)

var searchFlags struct {
	title    string
	location string
	tech     []string
	remote   bool
	page     int
	size     int
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one aggregated search and print the stored page",
	Long:  "Queries every enabled provider once, stores new postings and prints the requested page of matches.",
	RunE:  runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchFlags.title, "title", "t", "", "title keyword")
	f.StringVarP(&searchFlags.location, "location", "l", "", "location keyword")
	f.StringSliceVar(&searchFlags.tech, "tech", nil, "required skills, comma separated")
	f.BoolVar(&searchFlags.remote, "remote", false, "remote postings only")
	f.IntVar(&searchFlags.page, "page", 0, "zero-based page")
	f.IntVar(&searchFlags.size, "size", model.DefaultPageSize, "page size (max 100)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	q := model.JobSearchQuery{
		Title:      searchFlags.title,
		Location:   searchFlags.location,
		TechStack:  searchFlags.tech,
		RemoteOnly: searchFlags.remote,
		Page:       searchFlags.page,
		Size:       searchFlags.size,
	}
	if err := q.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, nil, logger)
	if err != nil {
		logger.Error("failed to build app", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	res, err := a.service.SearchAndStore(ctx, q)
	if err != nil {
		logger.Error("search failed", "error", err)
		return err
	}

	printPage(res)
	return nil
}

func printPage(res model.PagedResult) {
	fmt.Printf("%-10s %-40s %-22s %-8s %s\n", "Posted", "Title", "Company", "Work", "Source")
	fmt.Println(strings.Repeat("─", 96))
	for _, p := range res.Content {
		posted := "-"
		if p.PostedAt != nil {
			posted = p.PostedAt.Format("2006-01-02")
		}
		fmt.Printf("%-10s %-40s %-22s %-8s %s\n",
			posted, truncate(p.Title, 40), truncate(p.Company, 22), p.WorkArrangement, p.Provider)
	}
	fmt.Printf("\nPage %d of %d (%d postings total)\n", res.Page+1, max(res.TotalPages(), 1), res.TotalElements)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
