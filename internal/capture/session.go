package capture

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"crate/internal/logging"
	"crate/internal/track"
)

// SessionOptions configures one capture session.
type SessionOptions struct {
	PollInterval time.Duration
	ScrollPause  time.Duration
	ScrollPixels int
	AutoScroll   bool
	// Commands supplies the interactive control stream (stop, scroll on,
	// scroll off, status, items). Nil disables command handling.
	Commands io.Reader
	// StopWhenExhausted ends the session once the source reports it has no
	// more events to deliver. Only meaningful for finite sources.
	StopWhenExhausted bool
}

// exhaustible is implemented by finite sources such as StreamSource.
type exhaustible interface {
	Exhausted() bool
}

// Session owns one capture run: it drains the source, feeds the deduplicator,
// and accumulates records in arrival order. All shared state sits behind the
// session's own mutex rather than package globals.
type Session struct {
	id      string
	opts    SessionOptions
	source  Source
	scroll  Scroller
	deduper *Deduper
	logger  *slog.Logger

	mu      sync.Mutex
	records []track.Record

	autoScroll atomic.Bool
	stop       func()
}

// NewSession wires a session from its collaborators. scroller may be nil.
func NewSession(source Source, scroller Scroller, deduper *Deduper, logger *slog.Logger, opts SessionOptions) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.ScrollPause <= 0 {
		opts.ScrollPause = 2 * time.Second
	}
	if opts.ScrollPixels <= 0 {
		opts.ScrollPixels = 800
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Session{
		id:      uuid.NewString(),
		opts:    opts,
		source:  source,
		scroll:  scroller,
		deduper: deduper,
		logger:  logging.WithComponent(logger, "capture"),
	}
	s.autoScroll.Store(opts.AutoScroll)
	return s
}

// ID returns the session identifier used in logs and staging paths.
func (s *Session) ID() string {
	return s.id
}

// Records returns a snapshot of the accumulated buffer.
func (s *Session) Records() []track.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]track.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Stop ends the session from another goroutine.
func (s *Session) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Run drives the poll, scroll, and command workers until the session is
// stopped, the command stream says "stop", or ctx ends. It returns the
// accumulated records in arrival order.
func (s *Session) Run(ctx context.Context) ([]track.Record, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.stop = cancel
	s.mu.Unlock()

	s.logger.Info("capture session started", slog.String("session", s.id))

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return s.pollLoop(groupCtx) })
	if s.scroll != nil {
		group.Go(func() error { return s.scrollLoop(groupCtx) })
	}
	if s.opts.Commands != nil {
		group.Go(func() error { return s.commandLoop(groupCtx, cancel) })
	}

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return s.Records(), err
	}

	stats := s.deduper.Stats()
	s.logger.Info("capture session finished",
		slog.String("session", s.id),
		slog.Int("records", stats.Records),
		slog.Int("pages", stats.PagesClassified),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("rejected", stats.Rejected),
	)
	return s.Records(), nil
}

func (s *Session) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		events, err := s.source.Drain(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			// Transient drain failures are the source's problem to recover;
			// keep polling.
			s.logger.Warn("source drain failed", slog.Any("error", err))
		}
		for _, ev := range events {
			if produced := s.deduper.Observe(ev); len(produced) > 0 {
				s.mu.Lock()
				s.records = append(s.records, produced...)
				total := len(s.records)
				s.mu.Unlock()
				s.logger.Info("items collected", slog.Int("new", len(produced)), slog.Int("total", total))
			}
		}

		if s.opts.StopWhenExhausted {
			if fin, ok := s.source.(exhaustible); ok && fin.Exhausted() {
				s.Stop()
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Session) scrollLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.ScrollPause)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if !s.autoScroll.Load() {
			continue
		}
		if err := s.scroll.ScrollBy(ctx, s.opts.ScrollPixels); err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			s.logger.Warn("scroll failed", slog.Any("error", err))
		}
	}
}

func (s *Session) commandLoop(ctx context.Context, stop func()) error {
	scanner := bufio.NewScanner(s.opts.Commands)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- strings.ToLower(strings.TrimSpace(scanner.Text())):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				// Command stream closed; capture continues until stopped
				// some other way.
				return nil
			}
			switch line {
			case "":
			case "stop":
				s.logger.Info("stop requested")
				stop()
				return nil
			case "scroll on":
				s.autoScroll.Store(true)
				s.logger.Info("auto-scroll enabled")
			case "scroll off":
				s.autoScroll.Store(false)
				s.logger.Info("auto-scroll disabled")
			case "status":
				stats := s.deduper.Stats()
				s.logger.Info("session status",
					slog.Int("items", len(s.Records())),
					slog.Bool("auto_scroll", s.autoScroll.Load()),
					slog.Int("pages", stats.PagesClassified),
					slog.Int("duplicates", stats.Duplicates),
				)
			case "items":
				s.logger.Info("items collected", slog.Int("total", len(s.Records())))
			default:
				s.logger.Info("unknown command", slog.String("command", line))
			}
		}
	}
}
