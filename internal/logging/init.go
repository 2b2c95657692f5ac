package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is "console" or "json".
	Format string
	// NoColor disables color output in console format.
	NoColor bool
}

// InitDefault sets up a sane console logger before flags are parsed.
func InitDefault() {
	Init(nil)
}

// Init configures the global zerolog logger. A nil opts reads the log.*
// viper keys, which lets flags and env override the defaults.
func Init(opts *Options) {
	if opts == nil {
		opts = &Options{
			Level:   viper.GetString("log.level"),
			Format:  viper.GetString("log.format"),
			NoColor: viper.GetBool("log.no_color"),
		}
	}

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level)); err == nil && opts.Level != "" {
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	if opts.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    opts.NoColor,
	})
}
