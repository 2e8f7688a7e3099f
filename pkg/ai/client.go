package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scrape-stream-go/pkg/crawler"
	"scrape-stream-go/pkg/models"
)

// DefaultBaseURL is the Gemini REST endpoint root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModel is used when a request does not name one.
const DefaultModel = "gemini-1.5-flash"

const maxOutputTokens = 8192

const systemPrompt = `You are an intelligent text extraction and conversion assistant. Your task is to extract structured information
from the given HTML and convert it into a pure JSON format. The JSON should contain only the structured data extracted from the HTML,
with no additional commentary, explanations, or extraneous information.
You may encounter cases where you can't find the data for the fields you need to extract, or the data may be in a foreign language.
Process the following HTML and provide the output in pure JSON format with no words before or after the JSON.`

// Client talks to the generative backend. One Extract call makes
// exactly one in-flight backend request; chunk delivery and the final
// parse happen on the caller's goroutine, so callers can treat the call
// as a single operation bounded by the backend timeout.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a backend client. An empty baseURL selects the
// public Gemini endpoint.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// HasKey reports whether an API key is configured. Sessions that
// require AI extraction must fail fast without one.
func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

// Usage accumulates the backend's token accounting.
type Usage struct {
	InputTokens  uint32
	OutputTokens uint32
}

// Add merges another usage sample into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Gemini wire shapes, request side.
type generateRequest struct {
	Contents          []contentBlock   `json:"contents"`
	SystemInstruction *contentBlock    `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type contentBlock struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens  int    `json:"maxOutputTokens"`
	ResponseMIMEType string `json:"responseMimeType"`
}

// streamChunk is one `data:` frame of the streamed response.
type streamChunk struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     uint32 `json:"promptTokenCount"`
		CandidatesTokenCount uint32 `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// streamEvent bridges the background request goroutine to the consumer
// loop. End of stream is the explicit eof field, never a value that
// real content could collide with.
type streamEvent struct {
	text  string
	usage *Usage
	err   error
	eof   bool
}

// Extract runs one structured-extraction call over the page content.
// Each streamed chunk is forwarded through publish as it arrives and
// concatenated in arrival order; after the stream ends the buffer is
// parsed as a single JSON array. Transport failures and malformed
// output both publish an Error event and return a failure; a partial
// item list is never returned.
func (c *Client) Extract(ctx context.Context, session, pageContent string, req models.CrawlRequest, publish func(models.Event)) ([]json.RawMessage, Usage, error) {
	var usage Usage
	if !c.HasKey() {
		return nil, usage, crawler.NewAIError("no API key configured", nil)
	}

	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	publish(models.ProgressEvent(session, "Starting AI processing..."))

	stream := make(chan streamEvent, 16)
	go c.streamRequest(ctx, model, buildPrompt(pageContent, req), stream)

	var buf strings.Builder
	for ev := range stream {
		if ev.eof {
			break
		}
		if ev.err != nil {
			msg := fmt.Sprintf("AI processing failed: %v", ev.err)
			publish(models.ErrorEvent(session, msg))
			return nil, usage, crawler.NewAIError("backend request failed", ev.err)
		}
		if ev.usage != nil {
			usage = *ev.usage
			continue
		}
		buf.WriteString(ev.text)
		publish(models.ScrapingChunkEvent(session, ev.text))
	}

	items, err := parseResponse(buf.String())
	if err != nil {
		msg := fmt.Sprintf("Failed to parse AI response: %v", err)
		publish(models.ErrorEvent(session, msg))
		return nil, usage, crawler.NewAIError("malformed model output", err)
	}

	publish(models.ProgressEvent(session, "AI processing completed"))
	return items, usage, nil
}

// streamRequest performs the backend call and feeds the stream channel.
// It always terminates the channel with the eof sentinel and closes it,
// so the consumer is never left waiting.
func (c *Client) streamRequest(ctx context.Context, model, prompt string, stream chan<- streamEvent) {
	defer close(stream)
	defer func() {
		stream <- streamEvent{eof: true}
	}()

	payload := generateRequest{
		Contents: []contentBlock{{
			Role:  "user",
			Parts: []part{{Text: prompt}},
		}},
		SystemInstruction: &contentBlock{
			Parts: []part{{Text: systemPrompt}},
		},
		GenerationConfig: generationConfig{
			MaxOutputTokens:  maxOutputTokens,
			ResponseMIMEType: "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		stream <- streamEvent{err: err}
		return
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		stream <- streamEvent{err: err}
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		stream <- streamEvent{err: err}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		stream <- streamEvent{err: fmt.Errorf("backend status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))}
		return
	}

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

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			stream <- streamEvent{err: fmt.Errorf("malformed stream frame: %w", err)}
			return
		}
		for _, cand := range chunk.Candidates {
			for _, p := range cand.Content.Parts {
				if p.Text != "" {
					stream <- streamEvent{text: p.Text}
				}
			}
		}
		if chunk.UsageMetadata != nil {
			stream <- streamEvent{usage: &Usage{
				InputTokens:  chunk.UsageMetadata.PromptTokenCount,
				OutputTokens: chunk.UsageMetadata.CandidatesTokenCount,
			}}
		}
	}
	if err := scanner.Err(); err != nil {
		stream <- streamEvent{err: err}
	}
}

func buildPrompt(pageContent string, req models.CrawlRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract the following information: %s.\n", strings.Join(req.Tags, ", "))
	b.WriteString("Return the result as a JSON array of objects, where each object represents an item with the specified fields.\n")
	b.WriteString("Only include the JSON array in your response, nothing else.\n")
	if req.EnablePagination && req.PaginationDetails != "" {
		fmt.Fprintf(&b, "Pagination hint: %s\n", req.PaginationDetails)
	}
	b.WriteString("\nHTML:\n")
	b.WriteString(pageContent)
	return b.String()
}

// parseResponse parses the accumulated buffer as one JSON array of
// opaque values. There is no best-effort recovery of truncated output.
func parseResponse(response string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(response), &items); err != nil {
		return nil, err
	}
	return items, nil
}
