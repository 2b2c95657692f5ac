package tasks

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/neiii/stargate-better-auth/internal/logging"
)

var _ logging.InternalLogger = (*logRecorder)(nil)

// logRecorder stores a run's output on the task so the admin logs route can
// replay it after the run finished.
type logRecorder struct {
	task *task
}

func (l *logRecorder) Debug(format string, args ...any) { l.record("debug", format, args...) }
func (l *logRecorder) Info(format string, args ...any)  { l.record("info", format, args...) }
func (l *logRecorder) Warn(format string, args ...any)  { l.record("warn", format, args...) }
func (l *logRecorder) Error(format string, args ...any) { l.record("error", format, args...) }

func (l *logRecorder) record(level, format string, args ...any) {
	l.task.appendLog(level, fmt.Sprintf(format, args...))
}

// newRunLogger fans a run's output out to the server log and the task's
// replay buffer.
func newRunLogger(t *task, zl zerolog.Logger) logging.InternalLogger {
	return logging.NewMultiLogger(
		logging.NewZLogger(zl),
		&logRecorder{task: t},
	)
}
