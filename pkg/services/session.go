package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"scrape-stream-go/pkg/ai"
	"scrape-stream-go/pkg/crawler"
	"scrape-stream-go/pkg/events"
	"scrape-stream-go/pkg/models"

	"github.com/google/uuid"
)

// State tracks a session through its lifecycle. Both terminal states
// are final; a new request always starts a new session.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the runtime handle for one crawl-and-extract run.
type Session struct {
	ID    string
	State State
}

// SessionService binds one client request to one scheduler run plus the
// AI extraction step, publishing all events through the hub and
// returning the final aggregate result.
type SessionService struct {
	hub       *events.Hub
	scheduler *crawler.Scheduler
	ai        *ai.Client
	selectors []string
}

// NewSessionService creates a session service. The hub, scheduler and
// AI client are process-wide collaborators passed in explicitly so one
// session can be tested in isolation.
func NewSessionService(hub *events.Hub, scheduler *crawler.Scheduler, aiClient *ai.Client, selectors []string) *SessionService {
	return &SessionService{
		hub:       hub,
		scheduler: scheduler,
		ai:        aiClient,
		selectors: selectors,
	}
}

// Run executes one session to a terminal state. Validation failures
// reject the request before any fetch; per-page failures are surfaced
// as Error events and absorbed. Cancelling ctx stops dispatch and
// discards the session without a result.
func (s *SessionService) Run(ctx context.Context, req models.CrawlRequest) (*Session, *models.ScrapeResult, error) {
	sess := &Session{ID: uuid.NewString(), State: StateIdle}

	ex, err := s.validate(req)
	if err != nil {
		sess.State = StateFailed
		return sess, nil, err
	}

	sess.State = StateRunning
	s.hub.Publish(models.ProgressEvent(sess.ID, fmt.Sprintf("Crawl session started: %s", req.URL)))

	results := s.scheduler.Run(ctx, []string{req.URL}, ex, req.EnablePagination)

	items := []json.RawMessage{}
	var usage ai.Usage
	var pageURLs []string

	for res := range results {
		if res.Err != nil {
			s.hub.Publish(models.ErrorEvent(sess.ID, userMessage(res.Err)))
			continue
		}
		pageURLs = append(pageURLs, res.URL)

		for _, fragment := range res.Items {
			s.hub.Publish(models.RawItemEvent(sess.ID, fragment))
		}

		if !req.EnableScraping {
			continue
		}
		pageItems, pageUsage, err := s.ai.Extract(ctx, sess.ID, res.Content, req, s.hub.Publish)
		usage.Add(pageUsage)
		if err != nil {
			// The AI step already published the Error event; the page
			// simply contributes no items.
			continue
		}
		items = append(items, pageItems...)
		s.hub.Publish(models.SuccessEvent(sess.ID, pageItems))
	}

	if ctx.Err() != nil {
		sess.State = StateFailed
		return sess, nil, ctx.Err()
	}

	model := req.Model
	if model == "" {
		model = ai.DefaultModel
	}
	result := &models.ScrapeResult{
		Items:        items,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalCost:    usage.Cost(model),
	}
	if req.EnablePagination {
		result.PaginationInfo = &models.PaginationInfo{
			PageURLs: pageURLs,
			TokenCounts: models.TokenCounts{
				InputTokens:  usage.InputTokens,
				OutputTokens: usage.OutputTokens,
			},
			Price: usage.Cost(model),
		}
	}

	s.hub.Publish(models.SuccessEvent(sess.ID, items))
	sess.State = StateCompleted
	return sess, result, nil
}

// validate checks the request and compiles the extractor before any
// work starts. Every rejection is an invalid-request error.
func (s *SessionService) validate(req models.CrawlRequest) (*crawler.Extractor, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, crawler.NewInvalidRequestError("start URL is required")
	}
	if _, err := crawler.NormalizeURL(req.URL); err != nil {
		return nil, crawler.NewInvalidRequestError(fmt.Sprintf("invalid start URL %q", req.URL))
	}
	if req.EnableScraping {
		if len(req.Tags) == 0 {
			return nil, crawler.NewInvalidRequestError("at least one extraction tag is required when scraping is enabled")
		}
		if !s.ai.HasKey() {
			return nil, crawler.NewInvalidRequestError("AI extraction requested but no API key is configured")
		}
	}
	return crawler.NewExtractor(s.selectors)
}

func userMessage(err error) string {
	var cerr *crawler.Error
	if errors.As(err, &cerr) {
		return cerr.UserMessage()
	}
	return err.Error()
}
