package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Extractor applies an ordered set of CSS selectors against fetched
// pages. It holds no mutable state and is safe to share across any
// number of workers.
type Extractor struct {
	raw       []string
	selectors []cascadia.Selector
}

// NewExtractor compiles the given selectors. A selector that does not
// parse rejects the whole set with an invalid-request error; user
// input must never reach the panicking MustCompile path.
func NewExtractor(selectors []string) (*Extractor, error) {
	if len(selectors) == 0 {
		return nil, NewInvalidRequestError("at least one selector is required")
	}

	compiled := make([]cascadia.Selector, 0, len(selectors))
	for _, raw := range selectors {
		sel, err := cascadia.Compile(raw)
		if err != nil {
			return nil, NewInvalidRequestError(fmt.Sprintf("invalid selector %q: %v", raw, err))
		}
		compiled = append(compiled, sel)
	}

	return &Extractor{raw: selectors, selectors: compiled}, nil
}

// Extract applies the selectors in order and returns every match's
// inner HTML. Overlapping selectors keep their duplicates: items follow
// selector-then-document order. When withLinks is set, anchor targets
// are resolved against pageURL and returned for frontier expansion;
// malformed targets are silently dropped.
func (e *Extractor) Extract(pageURL, content string, withLinks bool) (items []string, links []string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, nil, NewParseError(fmt.Sprintf("parse document at %s", pageURL), err)
	}

	for _, sel := range e.selectors {
		doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
			if html, err := s.Html(); err == nil {
				items = append(items, html)
			}
		})
	}

	if withLinks {
		links = e.discoverLinks(pageURL, doc)
	}
	return items, links, nil
}

func (e *Extractor) discoverLinks(pageURL string, doc *goquery.Document) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		links = append(links, resolved.String())
	})
	return links
}

// NormalizeURL maps URL spellings that address the same resource to a
// single dedup key: scheme and host are lowercased, the fragment is
// dropped, and a trailing slash is stripped. Query strings are kept
// byte-for-byte since their order can be meaningful.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", NewParseError(fmt.Sprintf("parse url %q", raw), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", NewParseError(fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return "", NewParseError(fmt.Sprintf("url %q has no host", raw), nil)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}
