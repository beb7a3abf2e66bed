package core

import "time"

// RunStore records the history of sync runs.
type RunStore interface {
	CreateRun(links []string) (*Run, error)
	CompleteRun(id string, status RunStatus, counts RunCounts, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)
}

// RunStatus represents the status of a sync run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunCounts are the user-visible totals of a run.
type RunCounts struct {
	Discovered int
	Matched    int
	Ambiguous  int
	Created    int
	Verified   int
	Failed     int
}

// Run represents one batch pass over the configured links.
type Run struct {
	ID          string
	Links       []string
	Status      RunStatus
	Counts      RunCounts
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}
