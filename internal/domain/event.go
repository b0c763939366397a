package domain

import "time"

const (
	EventStreamCreated = "stream_created"
	EventStreamUpdated = "stream_updated"
)

// StreamEvent is published whenever a fetched stream is new or its content hash changed.
type StreamEvent struct {
	Type       string    `json:"event_type"`
	StreamID   string    `json:"stream_id"`
	Stream     Stream    `json:"stream"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewStreamEvent(eventType string, s Stream, at time.Time) StreamEvent {
	return StreamEvent{
		Type:       eventType,
		StreamID:   s.ID,
		Stream:     s,
		OccurredAt: at,
	}
}
