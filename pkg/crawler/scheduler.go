package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// PageResult is the outcome of one fetch+extract operation. It is
// produced by exactly one worker and consumed exactly once by the
// session aggregator. A per-page failure is carried in Err and never
// aborts the session.
type PageResult struct {
	URL     string
	Content string
	Items   []string
	Links   []string
	Err     error
}

// Scheduler drives fetch+extract workers across a frontier of URLs,
// enforcing the politeness delay, the concurrency limit and the page
// cap. The frontier and visited set are owned exclusively by the
// coordinating goroutine; workers only return results for it to apply.
type Scheduler struct {
	fetcher        *Fetcher
	delay          time.Duration
	maxConcurrency int
	maxPages       int
}

// NewScheduler creates a scheduler. Zero or negative bounds fall back
// to conservative defaults.
func NewScheduler(fetcher *Fetcher, delay time.Duration, maxConcurrency, maxPages int) *Scheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 2
	}
	if maxPages < 1 {
		maxPages = 500
	}
	return &Scheduler{
		fetcher:        fetcher,
		delay:          delay,
		maxConcurrency: maxConcurrency,
		maxPages:       maxPages,
	}
}

// Run crawls from the seed URLs and streams PageResults in completion
// order. The returned channel is closed when the frontier is exhausted
// with no work in flight, or when the page cap is reached. Cancelling
// ctx stops new dispatch; in-flight operations run to completion and
// their results are discarded.
func (s *Scheduler) Run(ctx context.Context, seeds []string, ex *Extractor, followLinks bool) <-chan PageResult {
	out := make(chan PageResult)
	go s.coordinate(ctx, seeds, ex, followLinks, out)
	return out
}

func (s *Scheduler) coordinate(ctx context.Context, seeds []string, ex *Extractor, followLinks bool, out chan<- PageResult) {
	defer close(out)

	// Global throttle: at least one delay between consecutive dispatches,
	// regardless of how many workers are free.
	every := rate.Inf
	if s.delay > 0 {
		every = rate.Every(s.delay)
	}
	throttle := rate.NewLimiter(every, 1)

	var frontier []string
	seen := make(map[string]struct{})
	for _, seed := range seeds {
		n, err := NormalizeURL(seed)
		if err != nil {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		frontier = append(frontier, n)
	}

	results := make(chan PageResult)
	inFlight := 0
	fetched := 0

	drain := func() {
		for inFlight > 0 {
			<-results
			inFlight--
		}
	}

	for {
		for len(frontier) > 0 && inFlight < s.maxConcurrency && fetched+inFlight < s.maxPages {
			if err := throttle.Wait(ctx); err != nil {
				drain()
				return
			}
			next := frontier[0]
			frontier = frontier[1:]
			inFlight++
			go func(u string) {
				results <- s.crawlPage(ctx, u, ex, followLinks)
			}(next)
		}

		if inFlight == 0 {
			// Frontier exhausted or page cap reached with nothing running.
			return
		}

		select {
		case <-ctx.Done():
			drain()
			return
		case res := <-results:
			inFlight--
			fetched++

			if followLinks && res.Err == nil && fetched < s.maxPages {
				for _, link := range res.Links {
					n, err := NormalizeURL(link)
					if err != nil {
						continue
					}
					if _, dup := seen[n]; dup {
						continue
					}
					seen[n] = struct{}{}
					frontier = append(frontier, n)
				}
			}

			select {
			case out <- res:
			case <-ctx.Done():
				drain()
				return
			}
		}
	}
}

func (s *Scheduler) crawlPage(ctx context.Context, url string, ex *Extractor, followLinks bool) PageResult {
	content, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return PageResult{URL: url, Err: err}
	}
	items, links, err := ex.Extract(url, content, followLinks)
	if err != nil {
		return PageResult{URL: url, Content: content, Err: err}
	}
	return PageResult{URL: url, Content: content, Items: items, Links: links}
}
