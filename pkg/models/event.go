package models

import "encoding/json"

// EventType tags the variants carried on a session's event stream.
type EventType string

const (
	EventProgress      EventType = "progress"
	EventRawItem       EventType = "rawItem"
	EventScrapingChunk EventType = "scrapingChunk"
	EventSuccess       EventType = "success"
	EventError         EventType = "error"
)

// Event is one message on a session's event stream. Events are
// transient: they exist only on the wire between the orchestrator and
// its subscribers and are never persisted.
type Event struct {
	Session string            `json:"session"`
	Type    EventType         `json:"type"`
	Text    string            `json:"text,omitempty"`
	Items   []json.RawMessage `json:"items,omitempty"`
}

// ProgressEvent reports a coarse session milestone.
func ProgressEvent(session, text string) Event {
	return Event{Session: session, Type: EventProgress, Text: text}
}

// RawItemEvent carries one selector-extracted fragment.
func RawItemEvent(session, text string) Event {
	return Event{Session: session, Type: EventRawItem, Text: text}
}

// ScrapingChunkEvent carries one incremental piece of streamed model
// output, forwarded as it arrives.
func ScrapingChunkEvent(session, text string) Event {
	return Event{Session: session, Type: EventScrapingChunk, Text: text}
}

// SuccessEvent carries extracted items for a completed page or session.
func SuccessEvent(session string, items []json.RawMessage) Event {
	return Event{Session: session, Type: EventSuccess, Items: items}
}

// ErrorEvent carries a human-readable failure message.
func ErrorEvent(session, text string) Event {
	return Event{Session: session, Type: EventError, Text: text}
}
