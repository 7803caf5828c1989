// Package identity maps normalized track records onto canonical song ids.
//
// Resolution is find-or-create and never fails: a record either matches an
// existing song by external URI, matches by its normalized name+artist key,
// or mints a fresh id. URI matches always win, which keeps retitled tracks
// attached to their original song entity.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"crate/internal/track"
)

const (
	songIDPrefix = "song_"
	songIDDigits = 12
)

var nonKeyChars = regexp.MustCompile(`[^a-z0-9_]`)

var keyFolder = cases.Fold()

// Key builds the normalized name+artist lookup key. Both halves are case
// folded and trimmed; the pipe separator mirrors the persisted index format.
func Key(name, artists string) string {
	return keyFolder.String(strings.TrimSpace(name)) + "|" + keyFolder.String(strings.TrimSpace(artists))
}

// MintSongID derives a deterministic song id from a track name and its joined
// artist string: lower-cased, non-alphanumerics stripped, md5-hashed, and
// truncated to a fixed-length hex prefix with a type tag.
func MintSongID(name, artists string) string {
	cleaned := strings.ToLower(name + "_" + artists)
	cleaned = nonKeyChars.ReplaceAllString(cleaned, "")
	sum := md5.Sum([]byte(cleaned))
	return songIDPrefix + hex.EncodeToString(sum[:])[:songIDDigits]
}

// Resolver holds the in-memory lookup indexes over the catalog.
type Resolver struct {
	byURI map[string]string
	byKey map[string]string
}

// NewResolver returns an empty resolver; callers seed it with Register while
// loading the catalog.
func NewResolver() *Resolver {
	return &Resolver{
		byURI: make(map[string]string),
		byKey: make(map[string]string),
	}
}

// Register adds both lookup keys for an existing song. Empty URIs and blank
// name/artist pairs are skipped, matching what the catalog can actually index.
func (r *Resolver) Register(songID, uri, name, artists string) {
	if songID == "" {
		return
	}
	if uri != "" {
		r.byURI[uri] = songID
	}
	name = strings.TrimSpace(name)
	artists = strings.TrimSpace(artists)
	if name != "" && artists != "" {
		r.byKey[Key(name, artists)] = songID
	}
}

// Lookup reports the song id a record would resolve to, without minting.
func (r *Resolver) Lookup(rec track.Record) (string, bool) {
	if rec.URI != "" {
		if id, ok := r.byURI[rec.URI]; ok {
			return id, true
		}
	}
	if id, ok := r.byKey[Key(rec.Name, rec.ArtistsJoined)]; ok {
		return id, true
	}
	return "", false
}

// Resolve finds or creates the canonical song id for a record. The boolean
// reports whether the song already existed. Newly minted ids are registered
// immediately so later records in the same batch resolve consistently before
// the next catalog save.
func (r *Resolver) Resolve(rec track.Record) (string, bool) {
	if id, ok := r.Lookup(rec); ok {
		return id, true
	}
	id := MintSongID(rec.Name, rec.ArtistsJoined)
	r.Register(id, rec.URI, rec.Name, rec.ArtistsJoined)
	return id, false
}

// Size returns the number of distinct indexed keys, for observability.
func (r *Resolver) Size() (uris, keys int) {
	return len(r.byURI), len(r.byKey)
}
