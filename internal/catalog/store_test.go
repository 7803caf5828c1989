package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"crate/internal/catalog"
	"crate/internal/logging"
	"crate/internal/track"
)

func openStore(t *testing.T, dir string) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func songA() track.Record {
	return track.Record{
		Name:          "Song A",
		URI:           "spotify:track:a",
		Artists:       []string{"Artist X"},
		ArtistURIs:    []string{"spotify:artist:x"},
		ArtistsJoined: "Artist X",
		AlbumName:     "Album B",
	}
}

func TestUpsertSongAcrossPlaylists(t *testing.T) {
	store := openStore(t, t.TempDir())

	id, existed := store.Resolve(songA())
	if existed {
		t.Fatal("fresh catalog should mint")
	}
	store.UpsertSong(id, songA(), "P1")

	again, existed := store.Resolve(songA())
	if !existed || again != id {
		t.Fatalf("re-resolve mismatch: %q existed=%v", again, existed)
	}
	store.UpsertSong(again, songA(), "P2")

	song := store.Song(id)
	if song == nil {
		t.Fatal("song missing")
	}
	if len(song.Playlists) != 2 || song.Playlists[0] != "P1" || song.Playlists[1] != "P2" {
		t.Fatalf("unexpected membership: %v", song.Playlists)
	}
	if store.Stats().Songs != 1 {
		t.Fatalf("expected exactly one song, got %d", store.Stats().Songs)
	}
}

func TestUpsertSongIsIdempotentPerPlaylist(t *testing.T) {
	store := openStore(t, t.TempDir())
	id, _ := store.Resolve(songA())

	store.UpsertSong(id, songA(), "P1")
	store.UpsertSong(id, songA(), "P1")

	song := store.Song(id)
	if len(song.Playlists) != 1 {
		t.Fatalf("duplicate membership entry: %v", song.Playlists)
	}
}

func TestMetadataSnapshotIsFirstSeen(t *testing.T) {
	store := openStore(t, t.TempDir())
	id, _ := store.Resolve(songA())
	store.UpsertSong(id, songA(), "P1")

	renamed := songA()
	renamed.Name = "Song A (Remastered)"
	resolvedID, existed := store.Resolve(renamed)
	if !existed || resolvedID != id {
		t.Fatalf("URI should map to existing song, got %q existed=%v", resolvedID, existed)
	}
	store.UpsertSong(resolvedID, renamed, "P2")

	if store.Song(id).Metadata.Name != "Song A" {
		t.Fatalf("metadata snapshot overwritten: %q", store.Song(id).Metadata.Name)
	}
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store := openStore(t, dir)
	id, _ := store.Resolve(songA())
	store.UpsertSong(id, songA(), catalog.PlaylistIDFor("Road Trip"))
	store.UpsertPlaylist(catalog.PlaylistIDFor("Road Trip"), "Road Trip", "https://example/playlist/1", []string{id})
	if err := store.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reloaded := openStore(t, dir)
	resolvedID, existed := reloaded.Resolve(songA())
	if !existed || resolvedID != id {
		t.Fatalf("reloaded catalog lost identity index: %q existed=%v", resolvedID, existed)
	}
	playlist := reloaded.Playlist(catalog.PlaylistIDFor("Road Trip"))
	if playlist == nil || len(playlist.SongIDs) != 1 || playlist.SongIDs[0] != id {
		t.Fatalf("unexpected playlist after reload: %+v", playlist)
	}
}

func TestReingestIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	playlistID := catalog.PlaylistIDFor("Road Trip")

	run := func() {
		store := openStore(t, dir)
		id, _ := store.Resolve(songA())
		store.UpsertSong(id, songA(), playlistID)
		store.UpsertPlaylist(playlistID, "Road Trip", "https://example/playlist/1", []string{id})
		if err := store.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}
	run()
	run()

	store := openStore(t, dir)
	stats := store.Stats()
	if stats.Songs != 1 || stats.Playlists != 1 {
		t.Fatalf("second run changed counts: %+v", stats)
	}
	song := store.Song(store.Playlist(playlistID).SongIDs[0])
	if len(song.Playlists) != 1 {
		t.Fatalf("second run changed membership: %v", song.Playlists)
	}
	if store.Playlist(playlistID).Revision != 1 {
		t.Fatalf("identical re-capture should not bump revision, got %d", store.Playlist(playlistID).Revision)
	}
}

func TestSaveUnionsIndependentSessions(t *testing.T) {
	dir := t.TempDir()

	first := openStore(t, dir)
	idA, _ := first.Resolve(songA())
	first.UpsertSong(idA, songA(), "P1")
	if err := first.Save(); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	second := openStore(t, dir)
	songB := track.Record{Name: "Song B", URI: "spotify:track:b", ArtistsJoined: "Artist Y", Artists: []string{"Artist Y"}}
	idB, _ := second.Resolve(songB)
	second.UpsertSong(idB, songB, "P2")
	if err := second.Save(); err != nil {
		t.Fatalf("second save: %v", err)
	}

	stats := second.Stats()
	if stats.Songs != 2 {
		t.Fatalf("expected union of sessions, got %d songs", stats.Songs)
	}
}

func TestPlaylistRefreshArchivesPriorMembers(t *testing.T) {
	store := openStore(t, t.TempDir())

	playlist := store.UpsertPlaylist("road-trip", "Road Trip", "https://example/1", []string{"song_1", "song_2"})
	if playlist.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", playlist.Revision)
	}

	playlist = store.UpsertPlaylist("road-trip", "Road Trip", "https://example/1", []string{"song_1", "song_3"})
	if playlist.Revision != 2 {
		t.Fatalf("expected revision bump, got %d", playlist.Revision)
	}
	if len(playlist.Revisions) != 1 {
		t.Fatalf("expected one archived revision, got %d", len(playlist.Revisions))
	}
	archived := playlist.Revisions[0]
	if archived.Revision != 1 || len(archived.SongIDs) != 2 || archived.SongIDs[1] != "song_2" {
		t.Fatalf("unexpected archive: %+v", archived)
	}
}

func TestUpsertPlaylistDropsDuplicateMembers(t *testing.T) {
	store := openStore(t, t.TempDir())
	playlist := store.UpsertPlaylist("p", "P", "", []string{"song_1", "song_1", "song_2"})
	if len(playlist.SongIDs) != 2 {
		t.Fatalf("duplicates not dropped: %v", playlist.SongIDs)
	}
}

func TestMappingRebuiltOnSave(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, dir)

	id, _ := store.Resolve(songA())
	store.UpsertSong(id, songA(), "P1")
	store.UpsertSong(id, songA(), "P2")
	if err := store.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	problems, err := store.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("expected consistent mapping, got %v", problems)
	}
}

func TestOpenFailsOnCorruptTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "songs_database.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt table: %v", err)
	}

	_, err := catalog.Open(dir, logging.NewNop())
	if err == nil {
		t.Fatal("expected open to fail on corrupt songs table")
	}
}

func TestOpenRejectsSecondWriter(t *testing.T) {
	dir := t.TempDir()
	_ = openStore(t, dir)

	_, err := catalog.Open(dir, logging.NewNop())
	if !errors.Is(err, catalog.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestPerformersDerivedFromSongs(t *testing.T) {
	store := openStore(t, t.TempDir())
	id, _ := store.Resolve(songA())
	store.UpsertSong(id, songA(), "P1")
	store.UpsertSong(id, songA(), "P2")

	performers := store.Performers()
	if len(performers) != 1 {
		t.Fatalf("expected one performer, got %d", len(performers))
	}
	if performers[0].Name != "Artist X" || len(performers[0].Playlists) != 2 {
		t.Fatalf("unexpected performer view: %+v", performers[0])
	}
}
