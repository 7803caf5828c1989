package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crate/internal/catalog"
	"crate/internal/control"
	"crate/internal/downloads"
	"crate/internal/logging"
	"crate/internal/track"
)

// Processor captures one playlist and returns its normalized records. The
// capture session behind it owns the browser traffic; the runner only sees
// the resulting records.
type Processor interface {
	Process(ctx context.Context, job Job) ([]track.Record, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, job Job) ([]track.Record, error)

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, job Job) ([]track.Record, error) {
	return f(ctx, job)
}

// RunSummary reports what one batch run did.
type RunSummary struct {
	JobsRun   int
	Completed int
	Failed    int
	Songs     int
}

// Runner sequences pending jobs through capture, identity resolution, and
// catalog persistence. Job state is written back to the batch file after
// every transition.
type Runner struct {
	file       *File
	store      *catalog.Store
	processor  Processor
	controller *control.Controller
	ledger     *downloads.Store
	logger     *slog.Logger
}

// NewRunner wires a batch runner. ledger may be nil when downloads are not
// being queued; controller may be nil for uncancellable runs.
func NewRunner(file *File, store *catalog.Store, processor Processor, controller *control.Controller, ledger *downloads.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		file:       file,
		store:      store,
		processor:  processor,
		controller: controller,
		ledger:     ledger,
		logger:     logging.WithComponent(logger, "batch"),
	}
}

// Run processes pending jobs starting at the cursor. A job failure is
// recorded on the job and the batch moves on; cancellation stops the batch
// without marking the in-flight job completed. The summary is valid even on
// early return.
func (r *Runner) Run(ctx context.Context) (RunSummary, error) {
	var summary RunSummary
	for {
		idx := r.file.NextPending()
		if idx < 0 {
			break
		}

		if r.controller != nil {
			if err := r.controller.Checkpoint(ctx); err != nil {
				return summary, err
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		job := &r.file.Playlists[idx]
		r.logger.Info("processing playlist",
			slog.Int("index", idx+1),
			slog.Int("of", len(r.file.Playlists)),
			slog.String("name", job.Name),
		)

		summary.JobsRun++
		songs, err := r.runJob(ctx, job)
		job.ProcessedAt = time.Now().UTC().Format(time.RFC3339)
		if err != nil {
			if errors.Is(err, control.ErrCancelled) || errors.Is(err, context.Canceled) {
				// The in-flight job stays pending for the next run.
				job.ProcessedAt = ""
				return summary, err
			}
			job.Status = JobFailed
			job.Error = err.Error()
			summary.Failed++
			r.logger.Warn("playlist failed", slog.String("name", job.Name), slog.Any("error", err))
		} else {
			job.Status = JobCompleted
			job.Error = ""
			summary.Completed++
			summary.Songs += songs
		}

		r.file.CurrentIndex = idx + 1
		if err := r.file.Save(); err != nil {
			return summary, err
		}
	}

	pending, completed, failed := r.file.Summary()
	r.logger.Info("batch finished",
		slog.Int("completed", completed),
		slog.Int("failed", failed),
		slog.Int("pending", pending),
	)
	return summary, nil
}

// runJob captures one playlist and folds its records into the catalog.
func (r *Runner) runJob(ctx context.Context, job *Job) (int, error) {
	records, err := r.processor.Process(ctx, *job)
	if err != nil {
		return 0, fmt.Errorf("capture playlist: %w", err)
	}
	job.TracksCount = len(records)

	songIDs := make([]string, 0, len(records))
	playlistID := catalog.PlaylistIDFor(job.Name)
	for _, rec := range records {
		songID, existed := r.store.Resolve(rec)
		r.store.UpsertSong(songID, rec, playlistID)
		songIDs = append(songIDs, songID)
		if !existed {
			r.logger.Debug("new song", slog.String("id", songID), slog.String("name", rec.Name))
		}
		if r.ledger != nil {
			if _, err := r.ledger.Enqueue(ctx, songID, rec); err != nil {
				return 0, fmt.Errorf("enqueue download: %w", err)
			}
		}
	}

	playlist := r.store.UpsertPlaylist(playlistID, job.Name, job.URL, songIDs)
	if err := r.store.Save(); err != nil {
		return 0, fmt.Errorf("save catalog: %w", err)
	}

	job.SuccessCount = len(playlist.SongIDs)
	return len(playlist.SongIDs), nil
}
