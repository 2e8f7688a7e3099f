package main

import (
	"flag"
	"log"
	"strings"

	"scrape-stream-go/pkg/cli"
	"scrape-stream-go/pkg/config"
	"scrape-stream-go/pkg/models"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	var (
		url        = flag.String("url", "", "Start URL to crawl (required)")
		tags       = flag.String("tags", "", "Comma-separated field tags for AI extraction")
		model      = flag.String("model", "", "Model identifier (default from server config)")
		scrape     = flag.Bool("scrape", false, "Enable AI extraction")
		paginate   = flag.Bool("paginate", false, "Follow discovered links")
		pageHint   = flag.String("pagination-details", "", "Hint for locating pagination")
		serverBase = flag.String("server", "", "API base URL (overrides config)")
	)
	flag.Parse()

	if *url == "" {
		log.Fatal("-url is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	baseURL := cfg.CLI.BaseURL
	if *serverBase != "" {
		baseURL = *serverBase
	}

	req := models.CrawlRequest{
		URL:               *url,
		Model:             *model,
		EnableScraping:    *scrape,
		EnablePagination:  *paginate,
		PaginationDetails: *pageHint,
	}
	for _, tag := range strings.Split(*tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			req.Tags = append(req.Tags, tag)
		}
	}

	client := cli.NewClient(baseURL)
	if _, err := tea.NewProgram(cli.NewCrawlModel(client, req)).Run(); err != nil {
		log.Fatalf("failed to run: %v", err)
	}
}
