package worker

import (
	"time"

	"github.com/raoulx24/shardpack/internal/cleanup"
	"github.com/raoulx24/shardpack/internal/stats"
)

// Job is one bucket to compact, identified by its directory name.
type Job struct {
	Name string
}

// State is the lifecycle of a job: Pending → Running → Completed | Failed.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is what a successful job produced.
type Outcome struct {
	Stats   stats.Batch
	Built   bool // false when the container already existed
	Cleanup cleanup.Result
}

// Result is the single message a worker sends back to the coordinator.
type Result struct {
	Job      Job
	State    State
	Outcome  Outcome
	Err      error
	Started  time.Time
	Finished time.Time
}

func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
