package track

import (
	"fmt"
	"time"
)

// CoverSource is one declared rendition of a cover image.
type CoverSource struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Record is one normalized unit of a captured collection. Records are
// immutable after creation except for SongID, which the identity resolver
// attaches once the record maps onto a canonical song.
type Record struct {
	Name          string        `json:"track_name"`
	URI           string        `json:"track_uri"`
	Artists       []string      `json:"artists"`
	ArtistURIs    []string      `json:"artist_uris"`
	ArtistsJoined string        `json:"artists_string"`
	AlbumName     string        `json:"album_name"`
	AlbumURI      string        `json:"album_uri"`
	CoverURL      string        `json:"cover_art_url,omitempty"`
	CoverSources  []CoverSource `json:"cover_art_sources,omitempty"`
	DurationMS    int           `json:"duration_ms"`
	TrackNumber   int           `json:"track_number"`
	DiscNumber    int           `json:"disc_number"`
	Playcount     string        `json:"playcount"`
	ContentRating string        `json:"content_rating"`
	AddedAt       string        `json:"added_at"`
	AddedByName   string        `json:"added_by_name"`
	ProcessedAt   time.Time     `json:"processed_at"`

	// SongID is attached by the identity resolver.
	SongID string `json:"song_id,omitempty"`
}

// DurationFormatted renders the duration as m:ss for display.
func (r Record) DurationFormatted() string {
	if r.DurationMS <= 0 {
		return "0:00"
	}
	totalSeconds := r.DurationMS / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}
