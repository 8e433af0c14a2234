package models

import (
	"strings"
	"time"
)

// Announcement is a raw event announcement pulled from a mailbox or a
// bulletin page, before any structure has been extracted from it.
type Announcement struct {
	ID         string
	Source     string
	Subject    string
	Body       string
	ReceivedAt time.Time
	Metadata   map[string]interface{}
}

// Event is a structured event record extracted from an announcement.
type Event struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Date     string                 `json:"date"`
	Time     string                 `json:"time"`
	Location string                 `json:"location"`
	Audience string                 `json:"target_audience"`
	Summary  string                 `json:"summary"`
	Category string                 `json:"category"`
	Source   string                 `json:"source,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// EmbeddingText is the text an event is embedded under: title, location,
// summary and audience joined, in that order.
func (e Event) EmbeddingText() string {
	return strings.TrimSpace(strings.Join([]string{
		e.Title, e.Location, e.Summary, e.Audience,
	}, " "))
}

// ScoredEvent pairs an event with its cosine similarity to a query vector.
type ScoredEvent struct {
	Event
	Score float32 `json:"score"`
}

// SearchFilter narrows a similarity search. Dates are ISO yyyy-mm-dd
// strings compared lexicographically; empty fields are ignored.
type SearchFilter struct {
	DateFrom string
	DateTo   string
	Category string
}

// IngestStats summarizes one pipeline run.
type IngestStats struct {
	Announcements int
	Extracted     int
	Stored        int
	Duplicates    int
	Failures      int
}
