package track

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotTrack marks payload items that are not track wrappers (local files,
// episode stubs, and other item types share the playlist items array).
var ErrNotTrack = errors.New("item is not a track wrapper")

// RejectionError reports an item that failed the minimum-quality gate.
type RejectionError struct {
	Reason  string
	Name    string
	Artists string
	Album   string
	URI     string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("track rejected: %s (%q by %q)", e.Reason, e.Name, e.Artists)
}

// Rejection reasons. The exact wording is part of the skip-log contract.
const (
	ReasonNameEmpty          = "Track name is empty or too short"
	ReasonArtistEmpty        = "Artist name is empty or too short"
	ReasonNamePlaceholder    = "Track name is placeholder value"
	ReasonArtistPlaceholder  = "Artist name is placeholder value"
	ReasonInvalidStructure   = "Invalid item structure"
	unknownArtistPlaceholder = "Unknown Artist"
	unknownAlbumPlaceholder  = "Unknown Album"
)

var (
	trackPlaceholders  = map[string]struct{}{"unknown track": {}, "unknown": {}, "": {}}
	artistPlaceholders = map[string]struct{}{"unknown artist": {}, "unknown": {}, "": {}}
)

// Options configures the validation gate and cover selection.
type Options struct {
	MinNameLength       int
	MinArtistLength     int
	PreferredCoverWidth int
	Now                 func() time.Time
}

// Normalizer converts raw playlist items into validated Records.
type Normalizer struct {
	opts Options
}

// NewNormalizer builds a Normalizer, applying defaults for zero options.
func NewNormalizer(opts Options) *Normalizer {
	if opts.MinNameLength <= 0 {
		opts.MinNameLength = 1
	}
	if opts.MinArtistLength <= 0 {
		opts.MinArtistLength = 1
	}
	if opts.PreferredCoverWidth <= 0 {
		opts.PreferredCoverWidth = 640
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Normalizer{opts: opts}
}

// Normalize extracts a Record from one raw playlist item. It returns
// ErrNotTrack for non-track items and a *RejectionError when the item fails
// the validation gate; both leave the pipeline to drop the item.
func (n *Normalizer) Normalize(rawItem any) (Record, error) {
	item, ok := rawItem.(map[string]any)
	if !ok {
		return Record{}, &RejectionError{Reason: ReasonInvalidStructure}
	}

	itemV2 := getMap(item, "itemV2")
	if getString(itemV2, "__typename") != "TrackResponseWrapper" {
		return Record{}, ErrNotTrack
	}
	data := getMap(itemV2, "data")

	record := Record{
		Name:        getString(data, "name"),
		URI:         getString(data, "uri"),
		DurationMS:  getInt(data, "trackDuration", "totalMilliseconds"),
		TrackNumber: getInt(data, "trackNumber"),
		DiscNumber:  getInt(data, "discNumber"),
		Playcount:   getString(data, "playcount"),
		ProcessedAt: n.opts.Now(),
	}
	if record.DiscNumber == 0 {
		record.DiscNumber = 1
	}
	if record.Playcount == "" {
		record.Playcount = "0"
	}
	if record.ContentRating = getString(data, "contentRating", "label"); record.ContentRating == "" {
		record.ContentRating = "NONE"
	}

	record.Artists, record.ArtistURIs = extractArtists(data)
	if len(record.Artists) > 0 {
		record.ArtistsJoined = strings.Join(record.Artists, ", ")
	} else {
		record.ArtistsJoined = unknownArtistPlaceholder
	}

	album := getMap(data, "albumOfTrack")
	if record.AlbumName = getString(album, "name"); record.AlbumName == "" {
		record.AlbumName = unknownAlbumPlaceholder
	}
	record.AlbumURI = getString(album, "uri")
	record.CoverSources = extractCoverSources(album)
	record.CoverURL = BestCoverURL(record.CoverSources, n.opts.PreferredCoverWidth)

	record.AddedAt = getString(item, "addedAt", "isoString")
	record.AddedByName = getString(item, "addedBy", "data", "name")

	if err := n.validate(record); err != nil {
		return Record{}, err
	}
	return record, nil
}

func (n *Normalizer) validate(record Record) error {
	reject := func(reason string) error {
		return &RejectionError{
			Reason:  reason,
			Name:    record.Name,
			Artists: record.ArtistsJoined,
			Album:   record.AlbumName,
			URI:     record.URI,
		}
	}

	name := strings.TrimSpace(record.Name)
	artists := strings.TrimSpace(record.ArtistsJoined)

	if len(name) < n.opts.MinNameLength {
		return reject(ReasonNameEmpty)
	}
	if len(artists) < n.opts.MinArtistLength {
		return reject(ReasonArtistEmpty)
	}
	if _, ok := trackPlaceholders[strings.ToLower(name)]; ok {
		return reject(ReasonNamePlaceholder)
	}
	if _, ok := artistPlaceholders[strings.ToLower(artists)]; ok {
		return reject(ReasonArtistPlaceholder)
	}
	return nil
}

// extractArtists returns performer names in display order, duplicates removed
// by exact name match, with the URI list kept parallel to the name list.
func extractArtists(data map[string]any) ([]string, []string) {
	var names, uris []string
	seen := map[string]struct{}{}
	for _, raw := range getList(data, "artists", "items") {
		name := getString(raw, "profile", "name")
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
		uris = append(uris, getString(raw, "uri"))
	}
	return names, uris
}

func extractCoverSources(album map[string]any) []CoverSource {
	var sources []CoverSource
	for _, raw := range getList(album, "coverArt", "sources") {
		url := getString(raw, "url")
		if url == "" {
			continue
		}
		src, _ := raw.(map[string]any)
		sources = append(sources, CoverSource{
			URL:    url,
			Width:  getInt(src, "width"),
			Height: getInt(src, "height"),
		})
	}
	return sources
}

// BestCoverURL picks the source whose declared width equals preferred, falling
// back to the largest available. Empty input yields "".
func BestCoverURL(sources []CoverSource, preferred int) string {
	for _, src := range sources {
		if src.Width == preferred && src.URL != "" {
			return src.URL
		}
	}
	best := CoverSource{}
	for _, src := range sources {
		if src.URL != "" && src.Width > best.Width {
			best = src
		}
	}
	return best.URL
}
