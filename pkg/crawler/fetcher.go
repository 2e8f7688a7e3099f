package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultUserAgent = "scrape-stream/0.1"

// Fetcher performs single-page HTTP GETs with a fixed timeout.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewFetcher creates a fetcher whose requests are bounded by timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
		timeout:   timeout,
	}
}

// Fetch retrieves one page body. Every failure path returns a fetch
// error with no retry; a timeout is terminal for that URL within the
// session.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	// Each page fetch gets its own timeout budget.
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", NewFetchError(fmt.Sprintf("build request for %s", url), err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", NewFetchError(fmt.Sprintf("fetch %s", url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", NewFetchError(fmt.Sprintf("fetch %s: status %d", url, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewFetchError(fmt.Sprintf("read body of %s", url), err)
	}
	return string(body), nil
}
