package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"scrape-stream-go/pkg/models"
)

// Client is an HTTP client for the scrape-stream API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client. No client-side timeout is set:
// both the crawl call and the event stream are long-lived and bounded
// by their contexts instead.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// StartCrawl submits a crawl request and blocks until the session
// reaches a terminal state, returning the aggregate result and the
// session ID assigned by the server.
func (c *Client) StartCrawl(ctx context.Context, crawlReq models.CrawlRequest) (*models.ScrapeResult, string, error) {
	payload, err := json.Marshal(crawlReq)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/crawl", bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to call API: %w", err)
	}
	defer resp.Body.Close()

	session := resp.Header.Get("X-Session-ID")
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, session, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, session, fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, session, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result models.ScrapeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, session, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, session, nil
}

// StreamEvents subscribes to the server's SSE stream and forwards
// decoded events on the returned channel until the connection drops or
// ctx is cancelled. The channel is closed when the stream ends.
func (c *Client) StreamEvents(ctx context.Context) (<-chan models.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/events", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream error: status %d", resp.StatusCode)
	}

	ch := make(chan models.Event, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			var ev models.Event
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
