package catalog

import (
	"crate/internal/track"
)

// File names of the persisted tables inside the metadata directory.
const (
	songsFileName     = "songs_database.json"
	playlistsFileName = "playlists_database.json"
	mappingFileName   = "song_playlist_mapping.json"
	lockFileName      = "catalog.lock"
)

// DownloadInfo records how a song's audio was acquired.
type DownloadInfo struct {
	Status       string `json:"download_status"`
	VideoTitle   string `json:"video_title,omitempty"`
	SearchQuery  string `json:"search_query,omitempty"`
	Filename     string `json:"filename,omitempty"`
	DownloadedAt string `json:"downloaded_at,omitempty"`
}

// Song is one canonical entity in the songs table. Metadata is the first-seen
// record snapshot; later encounters only touch the membership set.
type Song struct {
	ID          string       `json:"song_id"`
	Metadata    track.Record `json:"metadata"`
	Playlists   []string     `json:"playlists"`
	Download    DownloadInfo `json:"download_info"`
	AddedAt     string       `json:"added_at"`
	LastUpdated string       `json:"last_updated"`
}

// HasPlaylist reports membership without touching order.
func (s *Song) HasPlaylist(playlistID string) bool {
	for _, id := range s.Playlists {
		if id == playlistID {
			return true
		}
	}
	return false
}

// PlaylistRevision archives one superseded member list.
type PlaylistRevision struct {
	Revision   int      `json:"revision"`
	SongIDs    []string `json:"song_ids"`
	ReplacedAt string   `json:"replaced_at"`
}

// Playlist is one capture target's entry in the playlists table. Re-running a
// job with the same derived name bumps Revision and archives the prior member
// list instead of discarding it.
type Playlist struct {
	ID          string             `json:"playlist_id"`
	Name        string             `json:"name"`
	SongIDs     []string           `json:"song_ids"`
	TotalTracks int                `json:"total_tracks"`
	Source      string             `json:"source"`
	Revision    int                `json:"revision"`
	Revisions   []PlaylistRevision `json:"revisions,omitempty"`
	CreatedAt   string             `json:"created_at"`
	LastUpdated string             `json:"last_updated"`
}

// Performer is a derived view over the songs table: one artist and the
// playlists their tracks appear in.
type Performer struct {
	URI       string   `json:"uri,omitempty"`
	Name      string   `json:"name"`
	Playlists []string `json:"playlists"`
}

type songsFile struct {
	Songs       map[string]*Song `json:"songs"`
	TotalSongs  int              `json:"total_songs"`
	LastUpdated string           `json:"last_updated"`
}

type playlistsFile struct {
	Playlists      map[string]*Playlist `json:"playlists"`
	TotalPlaylists int                  `json:"total_playlists"`
	LastUpdated    string               `json:"last_updated"`
}

type mappingFile struct {
	Mapping     map[string][]string `json:"mapping"`
	LastUpdated string              `json:"last_updated"`
}

// Stats summarizes catalog contents for status output.
type Stats struct {
	Songs      int
	Playlists  int
	Performers int
	Mappings   int
}
