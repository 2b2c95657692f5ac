package logging

import "github.com/rs/zerolog"

// InternalLogger is the logging capability injected into the verifier, cache
// and background tasks. It decouples the decision logic from a concrete sink
// so the core stays side-effect-free in tests and task output can be captured.
type InternalLogger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

var _ InternalLogger = (*ZLogger)(nil)

type ZLogger struct {
	ZLog zerolog.Logger
}

func NewZLogger(zlog zerolog.Logger) ZLogger {
	return ZLogger{ZLog: zlog}
}

func (l ZLogger) Debug(format string, args ...any) {
	l.ZLog.Debug().Msgf(format, args...)
}

func (l ZLogger) Info(format string, args ...any) {
	l.ZLog.Info().Msgf(format, args...)
}

func (l ZLogger) Warn(format string, args ...any) {
	l.ZLog.Warn().Msgf(format, args...)
}

func (l ZLogger) Error(format string, args ...any) {
	l.ZLog.Error().Msgf(format, args...)
}

var _ InternalLogger = (*NopLogger)(nil)

// NopLogger discards everything. Used when enable_logging is off and in tests.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

var _ InternalLogger = (*MultiLogger)(nil)

type MultiLogger struct {
	Loggers []InternalLogger
}

func NewMultiLogger(loggers ...InternalLogger) MultiLogger {
	return MultiLogger{Loggers: loggers}
}

func (l MultiLogger) Debug(format string, args ...any) {
	for _, logger := range l.Loggers {
		logger.Debug(format, args...)
	}
}

func (l MultiLogger) Info(format string, args ...any) {
	for _, logger := range l.Loggers {
		logger.Info(format, args...)
	}
}

func (l MultiLogger) Warn(format string, args ...any) {
	for _, logger := range l.Loggers {
		logger.Warn(format, args...)
	}
}

func (l MultiLogger) Error(format string, args ...any) {
	for _, logger := range l.Loggers {
		logger.Error(format, args...)
	}
}
