package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when submitting to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue has no free slot
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrUnknownJobType is returned by the executor for unsupported job types
	ErrUnknownJobType = errors.New("unknown job type")
)
