package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"crate/internal/logging"
	"crate/internal/track"
)

// DedupStats counts what the deduplicator has seen this session.
type DedupStats struct {
	EventsObserved  int
	Duplicates      int
	PagesClassified int
	Records         int
	Rejected        int
	NonTracks       int
	DecodeFailures  int
}

// Deduper filters intercepted events to the target endpoint, drops payloads
// already observed this session, and converts first-seen pages into
// normalized records.
type Deduper struct {
	mu sync.Mutex

	targetURL  string
	seen       map[string]struct{}
	normalizer *track.Normalizer
	skipLog    *track.SkipLog
	logger     *slog.Logger
	stats      DedupStats
}

// NewDeduper builds a Deduper for one capture session. skipLog may be nil.
func NewDeduper(targetURL string, normalizer *track.Normalizer, skipLog *track.SkipLog, logger *slog.Logger) *Deduper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Deduper{
		targetURL:  targetURL,
		seen:       make(map[string]struct{}),
		normalizer: normalizer,
		skipLog:    skipLog,
		logger:     logging.WithComponent(logger, "capture"),
	}
}

// Observe processes one intercepted event and returns the normalized records
// it produced, in payload order. Decode and parse failures drop the event;
// the polling source may re-deliver it on a later drain.
func (d *Deduper) Observe(ev RawEvent) []track.Record {
	if !strings.Contains(ev.URL, d.targetURL) {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.EventsObserved++
	fp := fingerprint(ev)
	if _, ok := d.seen[fp]; ok {
		d.stats.Duplicates++
		return nil
	}
	d.seen[fp] = struct{}{}

	body, err := decodeBody(ev)
	if err != nil {
		d.stats.DecodeFailures++
		d.logger.Warn("dropping undecodable event", slog.String("url", ev.URL), slog.Any("error", err))
		return nil
	}

	page, ok := classifyPage(body)
	if !ok {
		return nil
	}
	d.stats.PagesClassified++
	d.logger.Info("playlist page captured",
		slog.Int("offset", page.Paging.Offset),
		slog.Int("limit", page.Paging.Limit),
		slog.Int("total", page.Paging.Total),
		slog.Int("items", page.Paging.Items),
	)

	records := make([]track.Record, 0, len(page.Items))
	for _, item := range page.Items {
		record, err := d.normalizer.Normalize(item)
		switch {
		case err == nil:
			records = append(records, record)
			d.stats.Records++
		case errors.Is(err, track.ErrNotTrack):
			d.stats.NonTracks++
		default:
			d.stats.Rejected++
			var rej *track.RejectionError
			if errors.As(err, &rej) {
				d.logger.Info("track rejected",
					slog.String("reason", rej.Reason),
					slog.String("name", rej.Name),
					slog.String("artists", rej.Artists),
				)
				if d.skipLog != nil {
					if logErr := d.skipLog.Record(rej); logErr != nil {
						d.logger.Warn("skip log write failed", slog.Any("error", logErr))
					}
				}
			}
		}
	}
	return records
}

// Stats returns a snapshot of session counters.
func (d *Deduper) Stats() DedupStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// fingerprint identifies an event: the transport's own identifier when
// available, otherwise a digest of the URL and request body.
func fingerprint(ev RawEvent) string {
	if ev.TransportID != "" {
		return "id:" + ev.TransportID
	}
	h := sha256.New()
	h.Write([]byte(ev.URL))
	h.Write([]byte{0})
	h.Write(ev.RequestBody)
	return "sha:" + hex.EncodeToString(h.Sum(nil))
}
