package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// streamBuffer bounds how far the reader goroutine can run ahead of the
// session's poll loop.
const streamBuffer = 256

// StreamSource adapts a JSON-lines event stream (one RawEvent per line, as
// dumped by an interception proxy) to the Source interface. Lines are decoded
// on a background goroutine so Drain never blocks on the reader.
type StreamSource struct {
	events    chan RawEvent
	exhausted atomic.Bool

	mu      sync.Mutex
	readErr error
}

// NewStreamSource starts decoding events from r.
func NewStreamSource(r io.Reader) *StreamSource {
	s := &StreamSource{events: make(chan RawEvent, streamBuffer)}
	go s.read(r)
	return s
}

func (s *StreamSource) read(r io.Reader) {
	defer close(s.events)
	defer s.exhausted.Store(true)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev RawEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			s.setErr(fmt.Errorf("decode event line: %w", err))
			continue
		}
		s.events <- ev
	}
	if err := scanner.Err(); err != nil {
		s.setErr(fmt.Errorf("read event stream: %w", err))
	}
}

// Drain returns every event decoded since the previous call without blocking.
func (s *StreamSource) Drain(ctx context.Context) ([]RawEvent, error) {
	var events []RawEvent
	for {
		select {
		case <-ctx.Done():
			return events, ctx.Err()
		case ev, ok := <-s.events:
			if !ok {
				return events, nil
			}
			events = append(events, ev)
		default:
			return events, nil
		}
	}
}

// Exhausted reports whether the stream hit EOF and every decoded event has
// been drained.
func (s *StreamSource) Exhausted() bool {
	return s.exhausted.Load() && len(s.events) == 0
}

func (s *StreamSource) setErr(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

// Err returns the last decode or read error, if any. Bad lines are skipped
// rather than aborting the stream.
func (s *StreamSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}
