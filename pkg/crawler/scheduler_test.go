package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"
)

// pageServer serves a fixed set of HTML pages and records every hit.
type pageServer struct {
	*httptest.Server

	mu        sync.Mutex
	hits      map[string]int
	arrivals  []time.Time
	active    int
	maxActive int
}

func newPageServer(t *testing.T, pages map[string]string, perPageDelay time.Duration) *pageServer {
	t.Helper()
	ps := &pageServer{hits: make(map[string]int)}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.hits[r.URL.Path]++
		ps.arrivals = append(ps.arrivals, time.Now())
		ps.active++
		if ps.active > ps.maxActive {
			ps.maxActive = ps.active
		}
		body, ok := pages[r.URL.Path]
		ps.mu.Unlock()

		if perPageDelay > 0 {
			time.Sleep(perPageDelay)
		}

		ps.mu.Lock()
		ps.active--
		ps.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *pageServer) totalHits() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	n := 0
	for _, c := range ps.hits {
		n += c
	}
	return n
}

func testExtractor(t *testing.T) *Extractor {
	t.Helper()
	ex, err := NewExtractor([]string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ex
}

func collect(results <-chan PageResult) []PageResult {
	var all []PageResult
	for res := range results {
		all = append(all, res)
	}
	return all
}

func TestRun_NeverExceedsMaxPages(t *testing.T) {
	ps := newPageServer(t, map[string]string{
		"/a": `<p>a</p><a href="/b">b</a><a href="/c">c</a><a href="/d">d</a><a href="/e">e</a>`,
		"/b": `<p>b</p>`,
		"/c": `<p>c</p>`,
		"/d": `<p>d</p>`,
		"/e": `<p>e</p>`,
	}, 0)

	s := NewScheduler(NewFetcher(time.Second), 0, 2, 2)
	results := collect(s.Run(context.Background(), []string{ps.URL + "/a"}, testExtractor(t), true))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if hits := ps.totalHits(); hits > 2 {
		t.Fatalf("expected at most 2 fetches, got %d", hits)
	}
}

func TestRun_FetchesEachURLOnce(t *testing.T) {
	// /b is discoverable through three spellings of the same URL.
	ps := newPageServer(t, map[string]string{
		"/a": `<p>a</p><a href="/b">1</a><a href="/b/">2</a><a href="/b#frag">3</a>`,
		"/b": `<p>b</p><a href="/a">back</a>`,
	}, 0)

	s := NewScheduler(NewFetcher(time.Second), 0, 2, 10)
	results := collect(s.Run(context.Background(), []string{ps.URL + "/a"}, testExtractor(t), true))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for path, count := range ps.hits {
		if count != 1 {
			t.Fatalf("expected %s fetched once, got %d", path, count)
		}
	}
}

func TestRun_PolitenessDelayBetweenDispatches(t *testing.T) {
	ps := newPageServer(t, map[string]string{
		"/a": `<p>a</p><a href="/b">b</a><a href="/c">c</a>`,
		"/b": `<p>b</p>`,
		"/c": `<p>c</p>`,
	}, 0)

	const delay = 60 * time.Millisecond
	s := NewScheduler(NewFetcher(time.Second), delay, 2, 3)
	collect(s.Run(context.Background(), []string{ps.URL + "/a"}, testExtractor(t), true))

	ps.mu.Lock()
	arrivals := append([]time.Time(nil), ps.arrivals...)
	ps.mu.Unlock()

	if len(arrivals) != 3 {
		t.Fatalf("expected 3 fetches, got %d", len(arrivals))
	}
	sort.Slice(arrivals, func(i, j int) bool { return arrivals[i].Before(arrivals[j]) })
	for i := 1; i < len(arrivals); i++ {
		// Arrival time trails dispatch time slightly; allow some slack.
		if gap := arrivals[i].Sub(arrivals[i-1]); gap < delay-15*time.Millisecond {
			t.Fatalf("dispatch gap %v below politeness delay %v", gap, delay)
		}
	}
}

func TestRun_SingleConcurrencyNeverOverlaps(t *testing.T) {
	ps := newPageServer(t, map[string]string{
		"/a": `<p>a</p><a href="/b">b</a><a href="/c">c</a>`,
		"/b": `<p>b</p>`,
		"/c": `<p>c</p>`,
	}, 30*time.Millisecond)

	s := NewScheduler(NewFetcher(time.Second), 0, 1, 3)
	collect(s.Run(context.Background(), []string{ps.URL + "/a"}, testExtractor(t), true))

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.maxActive != 1 {
		t.Fatalf("expected no overlapping fetches, saw %d concurrent", ps.maxActive)
	}
}

func TestRun_CapPicksExactlyOneDiscoveredLink(t *testing.T) {
	ps := newPageServer(t, map[string]string{
		"/a": `<p>a</p><a href="/b">b</a><a href="/c">c</a>`,
		"/b": `<p>b</p>`,
		"/c": `<p>c</p>`,
	}, 0)

	s := NewScheduler(NewFetcher(time.Second), 0, 1, 2)
	results := collect(s.Run(context.Background(), []string{ps.URL + "/a"}, testExtractor(t), true))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	visited := map[string]bool{}
	for _, res := range results {
		visited[res.URL] = true
	}
	if !visited[ps.URL+"/a"] {
		t.Fatalf("seed not visited: %v", visited)
	}
	b, c := visited[ps.URL+"/b"], visited[ps.URL+"/c"]
	if b == c {
		t.Fatalf("expected exactly one of /b and /c, got b=%v c=%v", b, c)
	}
}

func TestRun_PageErrorDoesNotAbortSession(t *testing.T) {
	ps := newPageServer(t, map[string]string{
		"/a": `<p>a</p><a href="/missing">dead</a><a href="/c">c</a>`,
		"/c": `<p>c</p>`,
	}, 0)

	s := NewScheduler(NewFetcher(time.Second), 0, 1, 10)
	results := collect(s.Run(context.Background(), []string{ps.URL + "/a"}, testExtractor(t), true))

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	var failed, succeeded int
	for _, res := range results {
		if res.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	if failed != 1 || succeeded != 2 {
		t.Fatalf("expected 1 failure and 2 successes, got %d/%d", failed, succeeded)
	}
}

func TestRun_CancelStopsDispatch(t *testing.T) {
	ps := newPageServer(t, map[string]string{
		"/a": `<p>a</p><a href="/b">b</a><a href="/c">c</a><a href="/d">d</a>`,
		"/b": `<p>b</p>`,
		"/c": `<p>c</p>`,
		"/d": `<p>d</p>`,
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(NewFetcher(time.Second), 0, 1, 10)
	results := s.Run(ctx, []string{ps.URL + "/a"}, testExtractor(t), true)

	<-results // first completed page
	cancel()

	done := make(chan struct{})
	go func() {
		for range results {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestRun_InvalidSeedProducesNoResults(t *testing.T) {
	s := NewScheduler(NewFetcher(time.Second), 0, 1, 10)
	results := collect(s.Run(context.Background(), []string{"not a url"}, testExtractor(t), false))
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}
