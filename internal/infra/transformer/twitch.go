package transformer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/StreamCatalog/internal/domain"
)

const (
	TwitchName = "twitch"

	thumbnailWidth  = "440"
	thumbnailHeight = "248"
)

// TwitchRecord is a Helix-style stream record.
type TwitchRecord struct {
	ID           string   `json:"id"`
	UserLogin    string   `json:"user_login"`
	UserName     string   `json:"user_name"`
	GameName     string   `json:"game_name"`
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	ViewerCount  int      `json:"viewer_count"`
	StartedAt    string   `json:"started_at"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Tags         []string `json:"tags"`
}

type TwitchMapper struct{}

func NewTwitchMapper() *TwitchMapper {
	return &TwitchMapper{}
}

func (m *TwitchMapper) Map(raw domain.RawStreamRecord) (domain.Stream, error) {
	var rec TwitchRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Stream{}, fmt.Errorf("failed to decode twitch record: %w", err)
	}
	if rec.ID == "" {
		return domain.Stream{}, fmt.Errorf("%w: missing id", domain.ErrInvalidRecord)
	}

	var started time.Time
	if rec.StartedAt != "" {
		if t, err := time.Parse(time.RFC3339, rec.StartedAt); err == nil {
			started = t.UTC()
		}
	}

	thumb := strings.NewReplacer("{width}", thumbnailWidth, "{height}", thumbnailHeight).Replace(rec.ThumbnailURL)

	channel := rec.UserName
	if channel == "" {
		channel = rec.UserLogin
	}

	var url string
	if rec.UserLogin != "" {
		url = "https://www.twitch.tv/" + rec.UserLogin
	}

	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}

	return domain.Stream{
		ID:           fmt.Sprintf("%s_%s", TwitchName, rec.ID),
		Source:       TwitchName,
		Title:        rec.Title,
		Channel:      channel,
		URL:          url,
		ThumbnailURL: thumb,
		Category:     rec.GameName,
		Live:         rec.Type == "live",
		ViewerCount:  rec.ViewerCount,
		Tags:         tags,
		StartedAt:    started,
	}, nil
}
