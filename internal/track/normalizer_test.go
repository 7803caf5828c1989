package track

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func rawTrackItem(name, uri string, artists ...string) map[string]any {
	artistItems := make([]any, 0, len(artists))
	for _, artist := range artists {
		artistItems = append(artistItems, map[string]any{
			"uri":     "spotify:artist:" + strings.ToLower(artist),
			"profile": map[string]any{"name": artist},
		})
	}
	return map[string]any{
		"itemV2": map[string]any{
			"__typename": "TrackResponseWrapper",
			"data": map[string]any{
				"name":          name,
				"uri":           uri,
				"trackDuration": map[string]any{"totalMilliseconds": float64(215000)},
				"trackNumber":   float64(3),
				"discNumber":    float64(1),
				"playcount":     "1234567",
				"contentRating": map[string]any{"label": "NONE"},
				"artists":       map[string]any{"items": artistItems},
				"albumOfTrack": map[string]any{
					"name": "Album B",
					"uri":  "spotify:album:b",
					"coverArt": map[string]any{
						"sources": []any{
							map[string]any{"url": "https://img/64", "width": float64(64), "height": float64(64)},
							map[string]any{"url": "https://img/640", "width": float64(640), "height": float64(640)},
							map[string]any{"url": "https://img/300", "width": float64(300), "height": float64(300)},
						},
					},
				},
			},
		},
		"addedAt": map[string]any{"isoString": "2026-01-15T12:00:00Z"},
		"addedBy": map[string]any{"data": map[string]any{"name": "listener"}},
	}
}

func TestNormalizeExtractsFields(t *testing.T) {
	n := NewNormalizer(Options{PreferredCoverWidth: 640})

	record, err := n.Normalize(rawTrackItem("Song A", "spotify:track:a", "Artist X", "Artist Y"))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if record.Name != "Song A" || record.URI != "spotify:track:a" {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if record.ArtistsJoined != "Artist X, Artist Y" {
		t.Fatalf("unexpected joined artists: %q", record.ArtistsJoined)
	}
	if len(record.ArtistURIs) != 2 {
		t.Fatalf("expected parallel artist URIs, got %v", record.ArtistURIs)
	}
	if record.DurationMS != 215000 || record.DurationFormatted() != "3:35" {
		t.Fatalf("unexpected duration: %d (%s)", record.DurationMS, record.DurationFormatted())
	}
	if record.CoverURL != "https://img/640" {
		t.Fatalf("expected preferred cover source, got %q", record.CoverURL)
	}
	if record.AddedAt != "2026-01-15T12:00:00Z" || record.AddedByName != "listener" {
		t.Fatalf("unexpected provenance: %+v", record)
	}
}

func TestNormalizeDeduplicatesArtistsByExactName(t *testing.T) {
	n := NewNormalizer(Options{})
	record, err := n.Normalize(rawTrackItem("Song A", "spotify:track:a", "Artist X", "Artist X", "Artist Y"))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if record.ArtistsJoined != "Artist X, Artist Y" {
		t.Fatalf("expected dedup to preserve order, got %q", record.ArtistsJoined)
	}
}

func TestNormalizeRejectsNonTrackItems(t *testing.T) {
	n := NewNormalizer(Options{})
	item := map[string]any{"itemV2": map[string]any{"__typename": "EpisodeResponseWrapper"}}
	if _, err := n.Normalize(item); !errors.Is(err, ErrNotTrack) {
		t.Fatalf("expected ErrNotTrack, got %v", err)
	}
}

func TestNormalizeValidationGate(t *testing.T) {
	cases := []struct {
		name    string
		item    map[string]any
		wantMsg string
	}{
		{"empty name", rawTrackItem("", "spotify:track:a", "Artist X"), ReasonNameEmpty},
		{"no artists", rawTrackItem("Song A", "spotify:track:a"), ReasonArtistPlaceholder},
		{"placeholder name", rawTrackItem("Unknown Track", "spotify:track:a", "Artist X"), ReasonNamePlaceholder},
		{"not a map", nil, ReasonInvalidStructure},
	}

	n := NewNormalizer(Options{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var input any = tc.item
			if tc.item == nil {
				input = "not an object"
			}
			_, err := n.Normalize(input)
			var rej *RejectionError
			if !errors.As(err, &rej) {
				t.Fatalf("expected RejectionError, got %v", err)
			}
			if rej.Reason != tc.wantMsg {
				t.Fatalf("reason %q, want %q", rej.Reason, tc.wantMsg)
			}
		})
	}
}

func TestBestCoverURLFallsBackToLargest(t *testing.T) {
	sources := []CoverSource{
		{URL: "https://img/64", Width: 64},
		{URL: "https://img/300", Width: 300},
	}
	if got := BestCoverURL(sources, 640); got != "https://img/300" {
		t.Fatalf("expected largest fallback, got %q", got)
	}
	if got := BestCoverURL(nil, 640); got != "" {
		t.Fatalf("expected empty result for no sources, got %q", got)
	}
}

func TestSkipLogRecordsRejection(t *testing.T) {
	dir := t.TempDir()
	log := NewSkipLog(filepath.Join(dir, "skipped_tracks.log"))

	rej := &RejectionError{
		Reason:  ReasonNameEmpty,
		Name:    "",
		Artists: "Artist X",
		Album:   "Album B",
		URI:     "spotify:track:a",
	}
	if err := log.Record(rej); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	data, err := os.ReadFile(log.Path())
	if err != nil {
		t.Fatalf("read skip log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "Reason: "+ReasonNameEmpty) {
		t.Fatalf("missing reason in log: %s", content)
	}
	if !strings.Contains(content, `Artists: "Artist X"`) {
		t.Fatalf("missing artists in log: %s", content)
	}
}
