package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// A run is bounded so a wedged storage backend cannot pile up sweep
// goroutines behind the ticker.
const runTimeout = 2 * time.Minute

// maxLogLines caps the per-run log buffer. The sweep logs a handful of lines
// per run; the cap only matters for pathological failures.
const maxLogLines = 500

type task struct {
	name         string
	every        time.Duration
	fn           Func
	registeredAt time.Time

	mu         sync.Mutex
	running    bool
	runs       int
	lastRun    time.Time
	lastResult string
	logs       []LogEntry
}

func (t *task) loop() {
	ticker := time.NewTicker(t.every)
	defer ticker.Stop()
	for range ticker.C {
		t.run()
	}
}

func (t *task) run() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		log.Warn().Str("task", t.name).Msg("maintenance task still busy, skipping run")
		return
	}
	t.running = true
	t.logs = nil
	t.mu.Unlock()

	logger := newRunLogger(t, log.With().Str("task", t.name).Logger())

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	err := t.fn(ctx, logger)
	elapsed := time.Since(start).Round(time.Millisecond)

	t.mu.Lock()
	t.running = false
	t.runs++
	t.lastRun = time.Now()
	if err != nil {
		t.lastResult = fmt.Sprintf("failed: %v", err)
	} else {
		t.lastResult = "success"
	}
	t.mu.Unlock()

	if err != nil {
		logger.Error("run failed after %s: %v", elapsed, err)
	} else {
		logger.Info("run finished in %s", elapsed)
	}
}

func (t *task) snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := Status{
		Name:       t.name,
		Running:    t.running,
		Runs:       t.runs,
		LastResult: t.lastResult,
	}
	if !t.lastRun.IsZero() {
		lastRun := t.lastRun
		st.LastRun = &lastRun
	}
	if t.every > 0 {
		base := t.registeredAt
		if !t.lastRun.IsZero() {
			base = t.lastRun
		}
		next := base.Add(t.every)
		st.NextRun = &next
	}
	return st
}

func (t *task) logLines() []LogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]LogEntry(nil), t.logs...)
}

func (t *task) appendLog(level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logs = append(t.logs, LogEntry{Time: time.Now(), Level: level, Message: msg})
	if len(t.logs) > maxLogLines {
		t.logs = t.logs[len(t.logs)-maxLogLines:]
	}
}
