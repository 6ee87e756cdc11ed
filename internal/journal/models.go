package journal

import "time"

// Status tracks a run's lifecycle in the journal.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one recorded import.
type Run struct {
	ID          string
	Profile     string
	Source      string
	Destination string
	Route       string
	Status      Status
	Files       int
	Bytes       int64
	// FailureKind holds the error taxonomy name for failed runs, empty
	// otherwise.
	FailureKind    string
	FailureMessage string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// CleanupRecord is one source file journaled immediately before deletion.
type CleanupRecord struct {
	RunID      string
	Rel        string
	Size       int64
	Digest     string
	RecordedAt time.Time
}
