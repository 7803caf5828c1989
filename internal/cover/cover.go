// Package cover retrieves album art for catalogued songs. Fetch failures are
// reported but treated as non-fatal by callers; a song without art is still a
// song.
package cover

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"crate/internal/config"
	"crate/internal/fileutil"
	"crate/internal/logging"
	"crate/internal/track"
)

// maxImageBytes caps a single art download; covers are small.
const maxImageBytes = 16 << 20

// Fetcher downloads cover art over HTTP with a per-request timeout and a
// shared pace limit.
type Fetcher struct {
	client         *http.Client
	limiter        *rate.Limiter
	preferredWidth int
	logger         *slog.Logger
}

// NewFetcher builds a Fetcher from configuration.
func NewFetcher(cfg config.CoverArt, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client:         &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		preferredWidth: cfg.PreferredWidth,
		logger:         logging.WithComponent(logger, "cover"),
	}
}

// Fetch downloads the record's best-fitting art into destDir and returns the
// written path. Records without any cover source return "" with no error.
func (f *Fetcher) Fetch(ctx context.Context, rec track.Record, destDir string) (string, error) {
	url := rec.CoverURL
	if url == "" {
		url = track.BestCoverURL(rec.CoverSources, f.preferredWidth)
	}
	if url == "" {
		return "", nil
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build cover request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch cover art: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch cover art: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("read cover art: %w", err)
	}

	name := fileutil.SanitizeFilename(fmt.Sprintf("%s_%s", rec.Name, rec.ArtistsJoined))
	path := filepath.Join(destDir, name+extensionFor(resp.Header.Get("Content-Type")))
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write cover art: %w", err)
	}

	f.logger.Info("cover art saved",
		slog.String("track", rec.Name),
		slog.String("path", path),
		slog.Int("bytes", len(data)),
	)
	return path, nil
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".jpg"
	}
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
