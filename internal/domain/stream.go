package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Stream represents a normalized streaming resource exposed by the catalog API.
type Stream struct {
	ID           string    `json:"id" bson:"_id"`
	Source       string    `json:"source" bson:"source"` // mapper that produced it, e.g. "catalog"
	Title        string    `json:"title" bson:"title"`
	Channel      string    `json:"channel" bson:"channel"`
	URL          string    `json:"url" bson:"url"`
	ThumbnailURL string    `json:"thumbnail_url" bson:"thumbnail_url"`
	Category     string    `json:"category" bson:"category"`
	Live         bool      `json:"live" bson:"live"`
	ViewerCount  int       `json:"viewer_count" bson:"viewer_count"`
	Tags         []string  `json:"tags" bson:"tags"`
	StartedAt    time.Time `json:"started_at" bson:"started_at"`
	FetchedAt    time.Time `json:"fetched_at" bson:"fetched_at"`
	ContentHash  string    `json:"content_hash" bson:"content_hash"`
}

// RawStreamRecord is one undecoded element of the API's stream array.
type RawStreamRecord = json.RawMessage

// ComputeHash generates a deterministic hash of the stream's descriptive fields.
// ViewerCount and FetchedAt are excluded so that audience churn is not reported as a change.
func (s *Stream) ComputeHash() string {
	hasher := sha256.New()
	hasher.Write([]byte(s.Source))
	hasher.Write([]byte(s.ID))
	hasher.Write([]byte(s.Title))
	hasher.Write([]byte(s.Channel))
	hasher.Write([]byte(s.URL))
	hasher.Write([]byte(s.Category))
	if s.Live {
		hasher.Write([]byte{1})
	} else {
		hasher.Write([]byte{0})
	}
	hasher.Write([]byte(strings.Join(s.Tags, ",")))
	return hex.EncodeToString(hasher.Sum(nil))
}

// StreamWriter handles stream persistence operations.
type StreamWriter interface {
	BulkUpsert(ctx context.Context, streams []Stream) error
}

// StreamReader handles stream retrieval operations.
type StreamReader interface {
	GetByID(ctx context.Context, id string) (*Stream, error)
	ListLive(ctx context.Context, limit int) ([]Stream, error)
}

// HashReader handles content hash retrieval for change detection.
type HashReader interface {
	GetContentHashes(ctx context.Context, ids []string) (map[string]string, error)
}

// Repository is the composite persistence port.
type Repository interface {
	StreamWriter
	StreamReader
	HashReader
}

// EventProducer publishes stream change events to a queue.
type EventProducer interface {
	Publish(ctx context.Context, event *StreamEvent) error
	PublishBatch(ctx context.Context, events []StreamEvent) error
	Close() error
}

// Notifier delivers stream change events to a downstream consumer.
type Notifier interface {
	Notify(ctx context.Context, event *StreamEvent) error
}
