package downloads

import "time"

// Status represents the lifecycle of a ledger item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusSearching   Status = "searching"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusExisting    Status = "existing"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusSearching,
	StatusDownloading,
	StatusCompleted,
	StatusExisting,
	StatusSkipped,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// IsValid reports whether the status is one of the known lifecycle values.
func (s Status) IsValid() bool {
	_, ok := statusSet[s]
	return ok
}

// inFlightStatuses are the states an interrupted run can leave behind.
var inFlightStatuses = []Status{StatusSearching, StatusDownloading}

// Item is one ledger row: a canonical song awaiting or past acquisition.
type Item struct {
	ID           int64
	SongID       string
	TrackName    string
	Artists      string
	Album        string
	SearchQuery  string
	VideoTitle   string
	Filename     string
	Status       Status
	Attempts     int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// Stats aggregates ledger counts per lifecycle state.
type Stats struct {
	Total     int
	Pending   int
	InFlight  int
	Completed int
	Existing  int
	Skipped   int
	Failed    int
	Cancelled int
}
