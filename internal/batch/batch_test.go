package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"crate/internal/catalog"
	"crate/internal/control"
	"crate/internal/track"
)

func newTestCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func rec(name, artists, uri string) track.Record {
	return track.Record{Name: name, Artists: []string{artists}, ArtistsJoined: artists, URI: uri}
}

func TestFileLoadMissingYieldsEmptyBatch(t *testing.T) {
	file, err := Load(filepath.Join(t.TempDir(), "playlist_batch.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(file.Playlists) != 0 || file.CurrentIndex != 0 {
		t.Fatalf("missing file not empty: %+v", file)
	}
}

func TestFileLoadCorruptIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist_batch.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("corrupt batch file loaded without error")
	}
}

func TestFileAddRejectsDuplicateURL(t *testing.T) {
	file := &File{}
	if _, err := file.Add("Road Trip", "https://example.com/playlist/1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := file.Add("Road Trip Again", "https://example.com/playlist/1"); err == nil {
		t.Fatal("duplicate url accepted")
	}
	if _, err := file.Add("", "https://example.com/playlist/2"); err == nil {
		t.Fatal("empty name accepted")
	}
}

func TestFileSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist_batch.json")
	file, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := file.Add("Focus", "https://example.com/playlist/focus"); err != nil {
		t.Fatalf("add: %v", err)
	}
	file.Playlists[0].Status = JobCompleted
	file.CurrentIndex = 1
	if err := file.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.TotalPlaylists != 1 || reloaded.CurrentIndex != 1 {
		t.Fatalf("reloaded = %+v", reloaded)
	}
	if reloaded.Playlists[0].Status != JobCompleted {
		t.Fatalf("status = %s", reloaded.Playlists[0].Status)
	}
	if reloaded.LastUpdated == "" {
		t.Fatal("last_updated not set")
	}
}

func TestNextPendingSkipsFinishedJobs(t *testing.T) {
	file := &File{
		Playlists: []Job{
			{Name: "a", Status: JobCompleted},
			{Name: "b", Status: JobFailed},
			{Name: "c", Status: JobPending},
		},
		CurrentIndex: 1,
	}
	if idx := file.NextPending(); idx != 2 {
		t.Fatalf("NextPending = %d, want 2", idx)
	}

	file.Playlists[2].Status = JobCompleted
	if idx := file.NextPending(); idx != -1 {
		t.Fatalf("NextPending = %d, want -1", idx)
	}
}

func TestRunnerProcessesJobsAndPersistsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist_batch.json")
	file, _ := Load(path)
	if _, err := file.Add("Good List", "https://example.com/good"); err != nil {
		t.Fatal(err)
	}
	if _, err := file.Add("Broken List", "https://example.com/broken"); err != nil {
		t.Fatal(err)
	}

	store := newTestCatalog(t)
	processor := ProcessorFunc(func(ctx context.Context, job Job) ([]track.Record, error) {
		if job.URL == "https://example.com/broken" {
			return nil, errors.New("page never loaded")
		}
		return []track.Record{
			rec("Song One", "Artist A", "spotify:track:one"),
			rec("Song Two", "Artist B", "spotify:track:two"),
			rec("Song One", "Artist A", "spotify:track:one"),
		}, nil
	})

	runner := NewRunner(file, store, processor, control.New(), nil, nil)
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.JobsRun != 2 || summary.Completed != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Songs != 2 {
		t.Fatalf("songs = %d, want 2 after in-playlist dedupe", summary.Songs)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	good, broken := reloaded.Playlists[0], reloaded.Playlists[1]
	if good.Status != JobCompleted || good.TracksCount != 3 || good.SuccessCount != 2 {
		t.Fatalf("good job = %+v", good)
	}
	if broken.Status != JobFailed || broken.Error == "" {
		t.Fatalf("broken job = %+v", broken)
	}
	if reloaded.CurrentIndex != 2 {
		t.Fatalf("cursor = %d, want 2", reloaded.CurrentIndex)
	}

	playlist := store.Playlist(catalog.PlaylistIDFor("Good List"))
	if playlist == nil || len(playlist.SongIDs) != 2 {
		t.Fatalf("playlist not persisted: %+v", playlist)
	}
}

func TestRunnerResumeSkipsFinishedJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist_batch.json")
	file, _ := Load(path)
	for _, name := range []string{"one", "two", "three"} {
		if _, err := file.Add(name, "https://example.com/"+name); err != nil {
			t.Fatal(err)
		}
	}

	var processed []string
	processor := ProcessorFunc(func(ctx context.Context, job Job) ([]track.Record, error) {
		processed = append(processed, job.Name)
		return []track.Record{rec("Song "+job.Name, "Artist", "")}, nil
	})

	store := newTestCatalog(t)

	// First run dies after the first job: simulate by marking it done and
	// persisting, the way a real run would have before the crash.
	runner := NewRunner(file, store, processor, nil, nil, nil)
	file.Playlists[0].Status = JobCompleted
	file.CurrentIndex = 1
	if err := file.Save(); err != nil {
		t.Fatal(err)
	}

	// Fresh process: reload the batch file and run to completion.
	resumed, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	runner = NewRunner(resumed, store, processor, nil, nil, nil)
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.JobsRun != 2 {
		t.Fatalf("resume ran %d jobs, want 2", summary.JobsRun)
	}
	for _, name := range processed {
		if name == "one" {
			t.Fatal("resume reprocessed a completed job")
		}
	}
}

func TestRunnerCancellationLeavesJobPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist_batch.json")
	file, _ := Load(path)
	if _, err := file.Add("stoppable", "https://example.com/stoppable"); err != nil {
		t.Fatal(err)
	}

	controller := control.New()
	processor := ProcessorFunc(func(ctx context.Context, job Job) ([]track.Record, error) {
		controller.Cancel()
		return nil, control.ErrCancelled
	})

	store := newTestCatalog(t)
	runner := NewRunner(file, store, processor, controller, nil, nil)
	if _, err := runner.Run(context.Background()); !errors.Is(err, control.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if file.Playlists[0].Status != JobPending {
		t.Fatalf("cancelled job marked %s", file.Playlists[0].Status)
	}
	if file.Playlists[0].ProcessedAt != "" {
		t.Fatal("cancelled job has processed_at")
	}
}
