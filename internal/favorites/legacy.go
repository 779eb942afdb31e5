package favorites

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/moviecinema/moviecinema/internal/metadata"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

// legacyShape holds the fields of an exported browser favorite needed to
// classify it. The remaining fields are raw TMDB detail JSON.
type legacyShape struct {
	ID           int     `json:"id"`
	Title        *string `json:"title"`
	FavoriteDate string  `json:"favoriteDate"`
}

// ParseLegacy converts the JSON array kept by the old browser client. That
// client stored no content type, so an entry with a title is a movie and
// anything else is tv. Entries without an id are skipped.
func ParseLegacy(data []byte, now time.Time) ([]Item, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("legacy favorites must be a JSON array: %w", err)
	}

	items := make([]Item, 0, len(raw))
	for i, entry := range raw {
		var shape legacyShape
		if err := json.Unmarshal(entry, &shape); err != nil {
			return nil, fmt.Errorf("legacy favorite %d: %w", i, err)
		}
		if shape.ID <= 0 {
			continue
		}

		item := Item{ID: shape.ID, FavoritedAt: parseFavoriteDate(shape.FavoriteDate, now)}
		if shape.Title != nil && *shape.Title != "" {
			var m tmdb.MovieDetails
			if err := json.Unmarshal(entry, &m); err != nil {
				return nil, fmt.Errorf("legacy favorite %d: %w", i, err)
			}
			item.ContentType = tmdb.MediaMovie
			item.Record = *metadata.NormalizeMovie(&m)
		} else {
			var t tmdb.TVDetails
			if err := json.Unmarshal(entry, &t); err != nil {
				return nil, fmt.Errorf("legacy favorite %d: %w", i, err)
			}
			item.ContentType = tmdb.MediaTV
			item.Record = *metadata.NormalizeTV(&t)
		}
		items = append(items, item)
	}
	return items, nil
}

func parseFavoriteDate(s string, now time.Time) time.Time {
	if s == "" {
		return now
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}
