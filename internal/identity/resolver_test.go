package identity

import (
	"strings"
	"testing"

	"crate/internal/track"
)

func record(name, artists, uri string) track.Record {
	return track.Record{Name: name, ArtistsJoined: artists, URI: uri}
}

func TestMintSongIDIsDeterministic(t *testing.T) {
	a := MintSongID("Song A", "Artist X")
	b := MintSongID("Song A", "Artist X")
	if a != b {
		t.Fatalf("expected stable ids, got %q and %q", a, b)
	}
	if !strings.HasPrefix(a, "song_") {
		t.Fatalf("missing type tag: %q", a)
	}
	if len(a) != len("song_")+12 {
		t.Fatalf("unexpected id length: %q", a)
	}
	if a == MintSongID("Song B", "Artist X") {
		t.Fatal("different tracks should mint different ids")
	}
}

func TestMintSongIDStripsPunctuationAndCase(t *testing.T) {
	if MintSongID("Song A!", "Artist X") != MintSongID("song a", "artist x") {
		t.Fatal("cleaning should collapse case and punctuation")
	}
}

func TestResolveSameKeyYieldsSameID(t *testing.T) {
	r := NewResolver()
	first, existed := r.Resolve(record("Song A", "Artist X", ""))
	if existed {
		t.Fatal("first resolve should mint")
	}
	second, existed := r.Resolve(record("  song a  ", "ARTIST X", ""))
	if !existed {
		t.Fatal("second resolve should hit the key index")
	}
	if first != second {
		t.Fatalf("expected same id, got %q and %q", first, second)
	}
}

func TestResolveURIWinsOverChangedName(t *testing.T) {
	r := NewResolver()
	original, _ := r.Resolve(record("Song A", "Artist X", "spotify:track:a"))

	// Retitled track, same URI: must reuse the original id.
	renamed, existed := r.Resolve(record("Song A (Remastered)", "Artist X", "spotify:track:a"))
	if !existed {
		t.Fatal("URI match should be treated as existing")
	}
	if renamed != original {
		t.Fatalf("URI match must win: got %q want %q", renamed, original)
	}
}

func TestResolveRegistersImmediately(t *testing.T) {
	r := NewResolver()
	id, _ := r.Resolve(record("Song A", "Artist X", "spotify:track:a"))

	// Same URI, different name+artist key, before any save cycle.
	byURI, ok := r.Lookup(record("Other", "Artist Z", "spotify:track:a"))
	if !ok || byURI != id {
		t.Fatalf("expected URI registered immediately, got %q ok=%v", byURI, ok)
	}
	byKey, ok := r.Lookup(record("Song A", "Artist X", ""))
	if !ok || byKey != id {
		t.Fatalf("expected key registered immediately, got %q ok=%v", byKey, ok)
	}
}

func TestRegisterSkipsBlankHalves(t *testing.T) {
	r := NewResolver()
	r.Register("song_x", "", "", "")
	uris, keys := r.Size()
	if uris != 0 || keys != 0 {
		t.Fatalf("expected nothing indexed, got uris=%d keys=%d", uris, keys)
	}
}
