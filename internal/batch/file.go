package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"crate/internal/fileutil"
)

// JobStatus is the lifecycle of one playlist job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is one playlist awaiting or past capture.
type Job struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Status       JobStatus `json:"status"`
	AddedAt      string    `json:"added_at"`
	ProcessedAt  string    `json:"processed_at,omitempty"`
	TracksCount  int       `json:"tracks_count"`
	SuccessCount int       `json:"success_count"`
	Error        string    `json:"error,omitempty"`
}

// File is the durable batch state: the ordered job list plus the cursor of
// the next job to run.
type File struct {
	Playlists      []Job  `json:"playlists"`
	CurrentIndex   int    `json:"current_index"`
	TotalPlaylists int    `json:"total_playlists"`
	LastUpdated    string `json:"last_updated"`

	path string
}

// Load reads the batch file at path. A missing file yields an empty batch; a
// file that exists but cannot be parsed is an error, never silently reset.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &File{path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse batch file %s: %w", path, err)
	}
	file.path = path
	return &file, nil
}

// Save rewrites the batch file atomically.
func (f *File) Save() error {
	f.TotalPlaylists = len(f.Playlists)
	f.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch file: %w", err)
	}
	if err := fileutil.WriteFileAtomic(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write batch file: %w", err)
	}
	return nil
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Add appends a pending job. Jobs with a URL already present are rejected so
// one playlist cannot be queued twice.
func (f *File) Add(name, url string) (*Job, error) {
	if name == "" {
		return nil, errors.New("playlist name is required")
	}
	if url == "" {
		return nil, errors.New("playlist url is required")
	}
	for i := range f.Playlists {
		if f.Playlists[i].URL == url {
			return nil, fmt.Errorf("playlist %q already queued", f.Playlists[i].Name)
		}
	}
	f.Playlists = append(f.Playlists, Job{
		Name:    name,
		URL:     url,
		Status:  JobPending,
		AddedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return &f.Playlists[len(f.Playlists)-1], nil
}

// NextPending returns the index of the first pending job at or after the
// cursor, or -1 when nothing is left to run. Completed and failed jobs are
// never revisited.
func (f *File) NextPending() int {
	start := f.CurrentIndex
	if start < 0 {
		start = 0
	}
	for i := start; i < len(f.Playlists); i++ {
		if f.Playlists[i].Status == JobPending {
			return i
		}
	}
	return -1
}

// Summary counts jobs per status.
func (f *File) Summary() (pending, completed, failed int) {
	for i := range f.Playlists {
		switch f.Playlists[i].Status {
		case JobCompleted:
			completed++
		case JobFailed:
			failed++
		default:
			pending++
		}
	}
	return pending, completed, failed
}
