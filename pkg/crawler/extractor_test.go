package crawler

import (
	"errors"
	"reflect"
	"testing"
)

func TestExtract_SelectorThenDocumentOrder(t *testing.T) {
	html := `
	<html><body>
		<h1>Heading</h1>
		<p>first</p>
		<div><p>second</p></div>
	</body></html>`

	ex, err := NewExtractor([]string{"p", "h1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first", "second", "Heading"}
	for run := 0; run < 3; run++ {
		items, _, err := ex.Extract("https://example.com", html, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(items, want) {
			t.Fatalf("run %d: got %v, want %v", run, items, want)
		}
	}
}

func TestExtract_OverlappingSelectorsKeepDuplicates(t *testing.T) {
	html := `<html><body><p class="x">only</p></body></html>`

	ex, err := NewExtractor([]string{"p", "p.x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, _, err := ex.Extract("https://example.com", html, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected duplicate matches preserved, got %v", items)
	}
}

func TestExtract_DiscoversAndResolvesLinks(t *testing.T) {
	html := `
	<html><body>
		<a href="/absolute">a</a>
		<a href="relative">b</a>
		<a href="https://other.example.org/page">c</a>
		<a href="#section">frag</a>
		<a href="mailto:x@example.com">mail</a>
		<a href="javascript:void(0)">js</a>
		<a href="http://%zz">broken</a>
	</body></html>`

	ex, err := NewExtractor([]string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, links, err := ex.Extract("https://example.com/dir/", html, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"https://example.com/absolute",
		"https://example.com/dir/relative",
		"https://other.example.org/page",
	}
	if !reflect.DeepEqual(links, want) {
		t.Fatalf("got %v, want %v", links, want)
	}
}

func TestExtract_NoLinksWhenDisabled(t *testing.T) {
	html := `<html><body><a href="/next">next</a></body></html>`

	ex, err := NewExtractor([]string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, links, err := ex.Extract("https://example.com", html, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if links != nil {
		t.Fatalf("expected no link discovery, got %v", links)
	}
}

func TestNewExtractor_InvalidSelector(t *testing.T) {
	_, err := NewExtractor([]string{"p["})
	if err == nil {
		t.Fatal("expected error for malformed selector")
	}

	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Type != ErrorTypeInvalidRequest {
		t.Fatalf("expected invalid_request error, got %v", err)
	}
}

func TestNewExtractor_EmptySelectors(t *testing.T) {
	if _, err := NewExtractor(nil); err == nil {
		t.Fatal("expected error for empty selector set")
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"trailing slash stripped", "https://example.com/path/", "https://example.com/path", false},
		{"root slash stripped", "https://example.com/", "https://example.com", false},
		{"fragment dropped", "https://example.com/a#top", "https://example.com/a", false},
		{"host lowercased", "https://EXAMPLE.com/A", "https://example.com/A", false},
		{"query preserved", "https://example.com/a?b=2&a=1", "https://example.com/a?b=2&a=1", false},
		{"whitespace trimmed", "  https://example.com/a  ", "https://example.com/a", false},
		{"unsupported scheme", "ftp://example.com/a", "", true},
		{"no host", "https:///path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
