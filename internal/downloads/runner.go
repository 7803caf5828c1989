package downloads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"crate/internal/control"
	"crate/internal/logging"
)

// Request describes one acquisition handed to the external fetch tool.
type Request struct {
	TrackName   string
	Artists     string
	Album       string
	SearchQuery string
	DestDir     string
	Quality     string
}

// Result is what the fetch tool reports back for one request.
type Result struct {
	VideoTitle    string
	Filename      string
	AlreadyExists bool
}

// Fetcher locates and downloads audio for one request. Implementations wrap
// an external tool; they are expected to honor ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Result, error)
}

// RunnerOptions configures the acquisition loop.
type RunnerOptions struct {
	DestDir      string
	Quality      string
	MaxRetries   int
	RetryBackoff time.Duration
	Delay        time.Duration
	FetchTimeout time.Duration
}

// Summary reports what one run did.
type Summary struct {
	Processed int
	Completed int
	Existing  int
	Failed    int
	Cancelled int
}

// Runner consumes pending ledger items and drives them through the fetcher,
// yielding to the controller between steps.
type Runner struct {
	store      *Store
	fetcher    Fetcher
	controller *control.Controller
	opts       RunnerOptions
	logger     *slog.Logger

	// OnFinished, if set, is called after an item reaches a terminal status.
	OnFinished func(item *Item)
}

// NewRunner wires a runner from its collaborators.
func NewRunner(store *Store, fetcher Fetcher, controller *control.Controller, logger *slog.Logger, opts RunnerOptions) *Runner {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		store:      store,
		fetcher:    fetcher,
		controller: controller,
		opts:       opts,
		logger:     logging.WithComponent(logger, "downloads"),
	}
}

// Run processes every pending ledger item in insertion order. Cancellation
// marks the in-flight item and everything still pending as cancelled; the
// run itself returns control.ErrCancelled.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if _, err := r.store.ResetInFlight(ctx); err != nil {
		return Summary{}, err
	}
	items, err := r.store.Pending(ctx)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	var limiter *rate.Limiter
	if r.opts.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(r.opts.Delay), 1)
	}

	for _, item := range items {
		if err := r.checkpoint(ctx, item); err != nil {
			if errors.Is(err, control.ErrCancelled) {
				cancelled, cancelErr := r.store.CancelUnfinished(ctx)
				if cancelErr != nil {
					return summary, cancelErr
				}
				summary.Cancelled += int(cancelled)
				return summary, err
			}
			return summary, err
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return summary, err
			}
		}

		summary.Processed++
		if err := r.process(ctx, item, &summary); err != nil {
			if errors.Is(err, control.ErrCancelled) {
				cancelled, cancelErr := r.store.CancelUnfinished(ctx)
				if cancelErr != nil {
					return summary, cancelErr
				}
				summary.Cancelled += int(cancelled)
				return summary, err
			}
			return summary, err
		}
	}

	r.logger.Info("download run finished",
		slog.Int("processed", summary.Processed),
		slog.Int("completed", summary.Completed),
		slog.Int("existing", summary.Existing),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

// process drives one item from pending to a terminal status.
func (r *Runner) process(ctx context.Context, item *Item, summary *Summary) error {
	item.SearchQuery = fmt.Sprintf("%s - %s audio", item.Artists, item.TrackName)
	item.Status = StatusSearching
	if err := r.store.Update(ctx, item); err != nil {
		return err
	}
	r.logger.Info("searching", slog.String("track", item.TrackName), slog.String("artists", item.Artists))

	if err := r.checkpoint(ctx, item); err != nil {
		return err
	}

	item.Status = StatusDownloading
	if err := r.store.Update(ctx, item); err != nil {
		return err
	}

	result, fetchErr := r.fetchWithRetry(ctx, item)

	// Check in after the fetch: a cancel issued mid-download leaves the item
	// in-flight so the ledger records it as cancelled, not completed.
	if err := r.checkpoint(ctx, item); err != nil {
		return err
	}

	if fetchErr != nil {
		if errors.Is(fetchErr, control.ErrCancelled) || errors.Is(fetchErr, context.Canceled) {
			return control.ErrCancelled
		}
		item.Status = StatusFailed
		item.ErrorMessage = fetchErr.Error()
		if err := r.store.Update(ctx, item); err != nil {
			return err
		}
		summary.Failed++
		r.logger.Warn("download failed",
			slog.String("track", item.TrackName),
			slog.Int("attempts", item.Attempts),
			slog.Any("error", fetchErr),
		)
		r.finished(item)
		return nil
	}

	now := time.Now().UTC()
	item.VideoTitle = result.VideoTitle
	item.Filename = result.Filename
	item.CompletedAt = &now
	if result.AlreadyExists {
		item.Status = StatusExisting
		summary.Existing++
	} else {
		item.Status = StatusCompleted
		summary.Completed++
	}
	if err := r.store.Update(ctx, item); err != nil {
		return err
	}
	r.logger.Info("download finished",
		slog.String("track", item.TrackName),
		slog.String("status", string(item.Status)),
		slog.String("file", item.Filename),
	)
	r.finished(item)
	return nil
}

func (r *Runner) fetchWithRetry(ctx context.Context, item *Item) (Result, error) {
	req := Request{
		TrackName:   item.TrackName,
		Artists:     item.Artists,
		Album:       item.Album,
		SearchQuery: item.SearchQuery,
		DestDir:     r.opts.DestDir,
		Quality:     r.opts.Quality,
	}

	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxRetries; attempt++ {
		item.Attempts++
		result, err := r.fetchOnce(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		if attempt == r.opts.MaxRetries {
			break
		}
		r.logger.Warn("fetch attempt failed, retrying",
			slog.String("track", item.TrackName),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		select {
		case <-time.After(r.opts.RetryBackoff):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
		if err := r.checkpoint(ctx, item); err != nil {
			return Result{}, err
		}
	}
	return Result{}, lastErr
}

func (r *Runner) fetchOnce(ctx context.Context, req Request) (Result, error) {
	if r.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FetchTimeout)
		defer cancel()
	}
	return r.fetcher.Fetch(ctx, req)
}

func (r *Runner) checkpoint(ctx context.Context, item *Item) error {
	if r.controller == nil {
		return nil
	}
	if r.controller.State() == control.StatePaused {
		r.logger.Info("paused", slog.String("track", item.TrackName))
	}
	return r.controller.Checkpoint(ctx)
}

func (r *Runner) finished(item *Item) {
	if r.OnFinished != nil {
		r.OnFinished(item)
	}
}
