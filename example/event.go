// Package event provides an example demonstrating a way of using the
// dynamodol package. It includes a simple struct, Event, and a Store that
// persists Events in a composite-key table partitioned by stream.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a simple example struct stored one item per event, partitioned
// by Stream and ordered by ID.
type Event struct {
	ID      string         `json:"id"`
	Stream  string         `json:"stream"`
	At      time.Time      `json:"at"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NewEvent returns an Event for the given stream and kind, stamped with the
// current time and a sortable time-prefixed ID.
func NewEvent(stream, kind string) Event {
	now := time.Now().UTC()
	return Event{
		ID:     now.Format("2006-01-02T15:04:05.000") + "_" + uuid.NewString(),
		Stream: stream,
		At:     now,
		Kind:   kind,
	}
}

// Validate checks whether the Event has all required fields, returning a
// list of problems. If the list is empty, the Event is valid.
func (e Event) Validate() []string {
	var problems []string
	if e.ID == "" {
		problems = append(problems, "ID is missing")
	}
	if e.Stream == "" {
		problems = append(problems, "Stream is missing")
	}
	if e.Kind == "" {
		problems = append(problems, "Kind is missing")
	}
	if e.At.IsZero() {
		problems = append(problems, "At is missing")
	}
	return problems
}

// Day returns an ISO-8601 formatted date from the At timestamp. It is
// useful as a sort-key prefix for grouping events by date.
func (e Event) Day() string {
	if e.At.IsZero() {
		return ""
	}
	return e.At.Format("2006-01-02")
}
