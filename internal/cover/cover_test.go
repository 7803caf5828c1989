package cover

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crate/internal/config"
	"crate/internal/track"
)

func TestFetchWritesBestFitCover(t *testing.T) {
	payload := []byte("fake-jpeg-bytes")
	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	defer server.Close()

	fetcher := NewFetcher(config.CoverArt{Enabled: true, PreferredWidth: 640, RequestTimeout: 5}, nil)
	rec := track.Record{
		Name:          "Some Song",
		ArtistsJoined: "Some Artist",
		CoverSources: []track.CoverSource{
			{URL: server.URL + "/300", Width: 300},
			{URL: server.URL + "/640", Width: 640},
		},
	}

	dir := t.TempDir()
	path, err := fetcher.Fetch(context.Background(), rec, dir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if requested != "/640" {
		t.Fatalf("fetched %q, want the preferred-width source", requested)
	}
	if filepath.Ext(path) != ".jpg" {
		t.Fatalf("path = %q, want .jpg extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written cover: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatal("written cover does not match response body")
	}
}

func TestFetchNoSourcesIsNoOp(t *testing.T) {
	fetcher := NewFetcher(config.CoverArt{PreferredWidth: 640}, nil)
	path, err := fetcher.Fetch(context.Background(), track.Record{Name: "Bare"}, t.TempDir())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if path != "" {
		t.Fatalf("path = %q, want empty", path)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(config.CoverArt{PreferredWidth: 640, RequestTimeout: 5}, nil)
	rec := track.Record{Name: "Missing", CoverURL: server.URL + "/art"}
	if _, err := fetcher.Fetch(context.Background(), rec, t.TempDir()); err == nil {
		t.Fatal("expected error for 404 response")
	} else if !strings.Contains(err.Error(), "unexpected status") {
		t.Fatalf("err = %v, want status error", err)
	}
}
