package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"crate/internal/fileutil"
	"crate/internal/identity"
	"crate/internal/logging"
	"crate/internal/track"
)

// ErrLocked is returned when another process holds the catalog lock.
var ErrLocked = errors.New("catalog is locked by another process")

// Store is the load-merge-save catalog over the three JSON tables.
type Store struct {
	mu sync.Mutex

	dir    string
	logger *slog.Logger
	lock   *flock.Flock

	songs     map[string]*Song
	playlists map[string]*Playlist
	resolver  *identity.Resolver
	now       func() time.Time
}

// Open acquires the catalog lock and loads all tables into memory. Missing
// tables start empty; unreadable or corrupt tables fail the open.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("catalog directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	held, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !held {
		return nil, ErrLocked
	}

	store := &Store{
		dir:       dir,
		logger:    logging.WithComponent(logger, "catalog"),
		lock:      lock,
		songs:     make(map[string]*Song),
		playlists: make(map[string]*Playlist),
		resolver:  identity.NewResolver(),
		now:       time.Now,
	}
	if err := store.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Close releases the catalog lock.
func (s *Store) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

func (s *Store) load() error {
	var songs songsFile
	if err := s.readTable(songsFileName, &songs); err != nil {
		return err
	}
	for id, song := range songs.Songs {
		if song == nil {
			continue
		}
		song.ID = id
		s.songs[id] = song
		s.resolver.Register(id, song.Metadata.URI, song.Metadata.Name, song.Metadata.ArtistsJoined)
	}

	var playlists playlistsFile
	if err := s.readTable(playlistsFileName, &playlists); err != nil {
		return err
	}
	for id, playlist := range playlists.Playlists {
		if playlist == nil {
			continue
		}
		playlist.ID = id
		s.playlists[id] = playlist
	}

	s.logger.Info("catalog loaded",
		slog.Int("songs", len(s.songs)),
		slog.Int("playlists", len(s.playlists)),
	)
	return nil
}

// readTable decodes one table, distinguishing "absent" (fresh start) from
// "present but unreadable" (hard error; prior data must not be discarded).
func (s *Store) readTable(name string, out any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s (refusing to discard existing catalog data): %w", name, err)
	}
	return nil
}

// Resolve finds or creates the canonical song id for a record.
func (s *Store) Resolve(rec track.Record) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Resolve(rec)
}

// Song returns a song by id, or nil.
func (s *Store) Song(id string) *Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.songs[id]
}

// Playlist returns a playlist by id, or nil.
func (s *Store) Playlist(id string) *Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playlists[id]
}

// UpsertSong folds one resolved record into the songs table. New ids store the
// record as the song's metadata snapshot; existing ids only gain playlist
// membership, and only when not already present.
func (s *Store) UpsertSong(songID string, rec track.Record, playlistID string) *Song {
	s.mu.Lock()
	defer s.mu.Unlock()

	timestamp := s.timestamp()
	song, ok := s.songs[songID]
	if !ok {
		rec.SongID = songID
		song = &Song{
			ID:          songID,
			Metadata:    rec,
			AddedAt:     timestamp,
			LastUpdated: timestamp,
		}
		s.songs[songID] = song
	}

	if playlistID != "" && !song.HasPlaylist(playlistID) {
		song.Playlists = append(song.Playlists, playlistID)
		song.LastUpdated = timestamp
	}
	return song
}

// SetDownloadInfo records acquisition state for a song.
func (s *Store) SetDownloadInfo(songID string, info DownloadInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	song, ok := s.songs[songID]
	if !ok {
		return
	}
	song.Download = info
	song.LastUpdated = s.timestamp()
}

// PlaylistIDFor derives the stable playlist identifier from its display name.
func PlaylistIDFor(name string) string {
	return fileutil.SanitizeFilename(name)
}

// UpsertPlaylist creates or refreshes a playlist entry. Refreshing an existing
// entry archives the prior member list as a revision before replacing it, so
// re-capturing a collection never silently loses history. Duplicate song ids
// in the incoming list are dropped, order preserved.
func (s *Store) UpsertPlaylist(id, name, source string, songIDs []string) *Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()

	deduped := dedupeOrdered(songIDs)
	timestamp := s.timestamp()

	playlist, ok := s.playlists[id]
	if !ok {
		playlist = &Playlist{
			ID:        id,
			Name:      name,
			Revision:  1,
			CreatedAt: timestamp,
		}
		s.playlists[id] = playlist
	} else if !equalStrings(playlist.SongIDs, deduped) {
		playlist.Revisions = append(playlist.Revisions, PlaylistRevision{
			Revision:   playlist.Revision,
			SongIDs:    playlist.SongIDs,
			ReplacedAt: timestamp,
		})
		playlist.Revision++
	}

	playlist.Name = name
	playlist.SongIDs = deduped
	playlist.TotalTracks = len(deduped)
	playlist.Source = source
	playlist.LastUpdated = timestamp
	return playlist
}

// Save writes all three tables. The on-disk songs and playlists tables are
// re-read and unioned with memory first (memory wins on key conflict) so
// independent sessions interleave without clobbering each other; the mapping
// is rebuilt from the unioned songs so it can never diverge from membership.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	timestamp := s.timestamp()

	var onDiskSongs songsFile
	if err := s.readTable(songsFileName, &onDiskSongs); err != nil {
		return err
	}
	mergedSongs := make(map[string]*Song, len(s.songs)+len(onDiskSongs.Songs))
	for id, song := range onDiskSongs.Songs {
		if song == nil {
			continue
		}
		song.ID = id
		mergedSongs[id] = song
	}
	for id, song := range s.songs {
		mergedSongs[id] = song
	}
	s.songs = mergedSongs

	var onDiskPlaylists playlistsFile
	if err := s.readTable(playlistsFileName, &onDiskPlaylists); err != nil {
		return err
	}
	mergedPlaylists := make(map[string]*Playlist, len(s.playlists)+len(onDiskPlaylists.Playlists))
	for id, playlist := range onDiskPlaylists.Playlists {
		if playlist == nil {
			continue
		}
		playlist.ID = id
		mergedPlaylists[id] = playlist
	}
	for id, playlist := range s.playlists {
		mergedPlaylists[id] = playlist
	}
	s.playlists = mergedPlaylists

	mapping := make(map[string][]string, len(s.songs))
	for id, song := range s.songs {
		if len(song.Playlists) > 0 {
			mapping[id] = append([]string{}, song.Playlists...)
		}
	}

	if err := s.writeTable(songsFileName, songsFile{
		Songs:       s.songs,
		TotalSongs:  len(s.songs),
		LastUpdated: timestamp,
	}); err != nil {
		return err
	}
	if err := s.writeTable(playlistsFileName, playlistsFile{
		Playlists:      s.playlists,
		TotalPlaylists: len(s.playlists),
		LastUpdated:    timestamp,
	}); err != nil {
		return err
	}
	if err := s.writeTable(mappingFileName, mappingFile{
		Mapping:     mapping,
		LastUpdated: timestamp,
	}); err != nil {
		return err
	}

	s.logger.Info("catalog saved",
		slog.Int("songs", len(s.songs)),
		slog.Int("playlists", len(s.playlists)),
		slog.Int("mappings", len(mapping)),
	)
	return nil
}

func (s *Store) writeTable(name string, table any) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Stats summarizes catalog contents.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapped := 0
	for _, song := range s.songs {
		if len(song.Playlists) > 0 {
			mapped++
		}
	}
	return Stats{
		Songs:      len(s.songs),
		Playlists:  len(s.playlists),
		Performers: len(s.performersLocked()),
		Mappings:   mapped,
	}
}

// Playlists returns every playlist sorted by name.
func (s *Store) Playlists() []Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Playlist, 0, len(s.playlists))
	for _, playlist := range s.playlists {
		out = append(out, *playlist)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Performers derives the performer view from the songs table.
func (s *Store) Performers() []Performer {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey := s.performersLocked()
	out := make([]Performer, 0, len(byKey))
	for _, performer := range byKey {
		out = append(out, *performer)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) performersLocked() map[string]*Performer {
	byKey := make(map[string]*Performer)
	for _, song := range s.songs {
		for i, name := range song.Metadata.Artists {
			uri := ""
			if i < len(song.Metadata.ArtistURIs) {
				uri = song.Metadata.ArtistURIs[i]
			}
			key := uri
			if key == "" {
				key = "name:" + name
			}
			performer, ok := byKey[key]
			if !ok {
				performer = &Performer{URI: uri, Name: name}
				byKey[key] = performer
			}
			for _, playlistID := range song.Playlists {
				if !containsString(performer.Playlists, playlistID) {
					performer.Playlists = append(performer.Playlists, playlistID)
				}
			}
		}
	}
	return byKey
}

// Verify checks the mapping table on disk against song membership sets. It
// returns descriptions of every divergence found.
func (s *Store) Verify() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var mapping mappingFile
	if err := s.readTable(mappingFileName, &mapping); err != nil {
		return nil, err
	}

	var problems []string
	for songID, playlistIDs := range mapping.Mapping {
		song, ok := s.songs[songID]
		if !ok {
			problems = append(problems, fmt.Sprintf("mapping references unknown song %s", songID))
			continue
		}
		for _, playlistID := range playlistIDs {
			if !song.HasPlaylist(playlistID) {
				problems = append(problems, fmt.Sprintf("mapping lists %s in %s but the song does not", songID, playlistID))
			}
		}
	}
	for songID, song := range s.songs {
		if len(song.Playlists) == 0 {
			continue
		}
		mapped := mapping.Mapping[songID]
		for _, playlistID := range song.Playlists {
			if !containsString(mapped, playlistID) {
				problems = append(problems, fmt.Sprintf("song %s belongs to %s but the mapping omits it", songID, playlistID))
			}
		}
	}
	sort.Strings(problems)
	return problems, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func dedupeOrdered(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
