package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scrape-stream-go/pkg/ai"
	"scrape-stream-go/pkg/api"
	"scrape-stream-go/pkg/config"
	"scrape-stream-go/pkg/crawler"
	"scrape-stream-go/pkg/events"
	"scrape-stream-go/pkg/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Server-side selectors are validated at boot; a malformed one is a
	// config mistake, not something to crash on mid-session.
	if _, err := crawler.NewExtractor(cfg.Crawler.Selectors); err != nil {
		log.Fatalf("invalid crawler selectors in config: %v", err)
	}

	hub := events.NewHub(cfg.Events.BufferSize)
	fetcher := crawler.NewFetcher(time.Duration(cfg.Crawler.FetchTimeoutSec) * time.Second)
	scheduler := crawler.NewScheduler(
		fetcher,
		time.Duration(cfg.Crawler.DelayMS)*time.Millisecond,
		cfg.Crawler.MaxConcurrency,
		cfg.Crawler.MaxPages,
	)
	aiClient := ai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL)
	service := services.NewSessionService(hub, scheduler, aiClient, cfg.Crawler.Selectors)

	router := api.NewRouter(service, hub)

	// Create server. Write timeout is disabled: the events endpoint
	// streams for the lifetime of a session.
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
