package tasks

import (
	"context"
	"time"

	"github.com/neiii/stargate-better-auth/internal/logging"
)

// Func is one maintenance job, e.g. the expired-record sweep. The logger fans
// out to the server log and the task's replayable log buffer.
type Func func(ctx context.Context, logger logging.InternalLogger) error

// Status is the externally visible snapshot of one maintenance task, served
// by the admin task routes and rendered by the CLI.
type Status struct {
	Name       string     `json:"name"`
	Running    bool       `json:"running"`
	Runs       int        `json:"runs"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastResult string     `json:"last_result,omitempty"`
	NextRun    *time.Time `json:"next_run,omitempty"`
}

// LogEntry is one line of a run's captured output.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}
