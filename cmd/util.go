package cmd

import (
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
)

var (
	greenCheck = color.GreenString("✓")
	redCross   = color.RedString("✗")

	bold  = color.New(color.Bold).Sprint
	faint = color.New(color.Faint).Sprint
	green = color.GreenString
	red   = color.RedString
)

// BeQuietError signals that the error was already presented to the user and
// Execute should exit without logging it again.
type BeQuietError struct{}

func (BeQuietError) Error() string {
	return "an error occurred"
}

// logError prints a remote error together with its correlation ID so users
// can hand it to whoever runs the server.
func logError(err error, correlationID, msg string) error {
	if correlationID != "" {
		log.Error().Msgf("%s %s (correlation ID: %s)", redCross, msg, correlationID)
	} else {
		log.Error().Msgf("%s %s", redCross, msg)
	}
	log.Error().Msgf("error: %v", err)
	return BeQuietError{}
}

func logSuccess(format string, args ...any) {
	log.Info().Msgf(greenCheck+" "+format, args...)
}

func applyTableFormat(t table.Writer) {
	style := table.StyleRounded
	style.Format.Header = 0 // keep header casing as written
	t.SetStyle(style)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func yesNo(v bool) string {
	if v {
		return greenCheck + " yes"
	}
	return redCross + " no"
}
