package transformer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/StreamCatalog/internal/domain"
)

const CatalogName = "catalog"

// CatalogRecord is the record shape served by the catalog API.
type CatalogRecord struct {
	ID        json.Number `json:"id"`
	Title     string      `json:"title"`
	Channel   string      `json:"channel"`
	URL       string      `json:"url"`
	Thumbnail string      `json:"thumbnail"`
	Category  string      `json:"category"`
	Live      bool        `json:"live"`
	Viewers   int         `json:"viewers"`
	StartedAt string      `json:"startedAt"`
	Tags      []string    `json:"tags"`
}

// UnmarshalJSON accepts the id either as a JSON string or a number.
func (r *CatalogRecord) UnmarshalJSON(data []byte) error {
	type alias CatalogRecord
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.ID = ""
	if len(aux.ID) == 0 || string(aux.ID) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.ID, &s); err == nil {
		r.ID = json.Number(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(aux.ID, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	r.ID = n
	return nil
}

type CatalogMapper struct{}

func NewCatalogMapper() *CatalogMapper {
	return &CatalogMapper{}
}

func (m *CatalogMapper) Map(raw domain.RawStreamRecord) (domain.Stream, error) {
	var rec CatalogRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Stream{}, fmt.Errorf("failed to decode catalog record: %w", err)
	}
	if strings.TrimSpace(rec.ID.String()) == "" {
		return domain.Stream{}, fmt.Errorf("%w: missing id", domain.ErrInvalidRecord)
	}
	return m.normalize(rec), nil
}

func (m *CatalogMapper) normalize(rec CatalogRecord) domain.Stream {
	// Unparseable timestamps are left zero rather than failing the record
	var started time.Time
	if rec.StartedAt != "" {
		if t, err := time.Parse(time.RFC3339, rec.StartedAt); err == nil {
			started = t.UTC()
		}
	}

	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}

	return domain.Stream{
		ID:           rec.ID.String(),
		Source:       CatalogName,
		Title:        rec.Title,
		Channel:      rec.Channel,
		URL:          rec.URL,
		ThumbnailURL: rec.Thumbnail,
		Category:     rec.Category,
		Live:         rec.Live,
		ViewerCount:  rec.Viewers,
		Tags:         tags,
		StartedAt:    started,
	}
}
