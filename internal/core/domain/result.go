package domain

import "time"

// TaskStatus represents the status of a task within a run.
type TaskStatus string

const (
	// StatusCompleted indicates the task has finished successfully.
	StatusCompleted TaskStatus = "Completed"
	// StatusFailed indicates the task execution failed.
	StatusFailed TaskStatus = "Failed"
	// StatusSkipped indicates the task never started.
	StatusSkipped TaskStatus = "Skipped"
	// StatusCached indicates the build cache proved the task's outputs current.
	StatusCached TaskStatus = "Cached"
)

// Done reports whether the status satisfies dependents.
func (s TaskStatus) Done() bool {
	return s == StatusCompleted || s == StatusCached
}

// Result is the outcome of one task in a run.
type Result struct {
	Task      InternedString
	Status    TaskStatus
	Err       error
	Duration  time.Duration
	Tolerated bool // Err was swallowed by a continue policy
}
