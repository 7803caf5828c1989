package track

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// SkipLog appends rejected-item details to a per-session log file so capture
// runs can be audited after the fact.
type SkipLog struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewSkipLog creates a skip log writing to path. The file is created lazily on
// the first rejection.
func NewSkipLog(path string) *SkipLog {
	return &SkipLog{path: path, now: time.Now}
}

// Path returns the log file location.
func (l *SkipLog) Path() string {
	return l.path
}

// Record appends one rejection entry. Failures to write are returned but are
// expected to be logged and ignored by callers; the pipeline never stops for
// the skip log.
func (l *SkipLog) Record(rej *RejectionError) error {
	if rej == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open skip log: %w", err)
	}
	defer file.Close()

	var b strings.Builder
	b.WriteString("SKIPPED TRACK:\n")
	fmt.Fprintf(&b, "  Reason: %s\n", rej.Reason)
	fmt.Fprintf(&b, "  Track Name: %q\n", rej.Name)
	fmt.Fprintf(&b, "  Artists: %q\n", rej.Artists)
	fmt.Fprintf(&b, "  Album: %q\n", rej.Album)
	fmt.Fprintf(&b, "  URI: %q\n", rej.URI)
	fmt.Fprintf(&b, "  Timestamp: %s\n", l.now().Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("-", 50) + "\n")

	if _, err := file.WriteString(b.String()); err != nil {
		return fmt.Errorf("write skip log: %w", err)
	}
	return nil
}
