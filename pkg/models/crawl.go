package models

import "encoding/json"

// CrawlRequest is the inbound request that starts one scrape session.
// Tags name the fields the AI step should extract; pagination toggles
// link discovery. Immutable once a session starts.
type CrawlRequest struct {
	URL               string   `json:"url" binding:"required"`
	Model             string   `json:"model"`
	EnableScraping    bool     `json:"enableScraping"`
	Tags              []string `json:"tags"`
	EnablePagination  bool     `json:"enablePagination"`
	PaginationDetails string   `json:"paginationDetails,omitempty"`
}

// ScrapeResult is the final aggregate returned when a session completes.
// Items are opaque structured values: the extraction schema is
// user-specified per request, so no fixed struct can represent them.
type ScrapeResult struct {
	Items          []json.RawMessage `json:"items"`
	InputTokens    uint32            `json:"inputTokens"`
	OutputTokens   uint32            `json:"outputTokens"`
	TotalCost      float64           `json:"totalCost"`
	PaginationInfo *PaginationInfo   `json:"paginationInfo,omitempty"`
}

// PaginationInfo reports the pages visited during a paginated session.
type PaginationInfo struct {
	PageURLs    []string    `json:"pageUrls"`
	TokenCounts TokenCounts `json:"tokenCounts"`
	Price       float64     `json:"price"`
}

// TokenCounts holds model token accounting for one session.
type TokenCounts struct {
	InputTokens  uint32 `json:"inputTokens"`
	OutputTokens uint32 `json:"outputTokens"`
}
