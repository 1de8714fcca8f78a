package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. The level comes from LOG_LEVEL and
// defaults to fallback. When HUDDLE_LOG_FILE is set, or toFile is true, logs
// go to a file so they do not corrupt the terminal UI.
func Init(fallback zerolog.Level, toFile bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(Level(os.Getenv("LOG_LEVEL"), fallback))

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}

	path := os.Getenv("HUDDLE_LOG_FILE")
	if path == "" && toFile {
		path = filepath.Join(os.TempDir(), "huddle.log")
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err == nil {
			out = zerolog.ConsoleWriter{Out: f, NoColor: true}
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// Level maps a LOG_LEVEL value to a zerolog level.
func Level(value string, fallback zerolog.Level) zerolog.Level {
	switch value {
	case "dev", "development", "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "production", "prod":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return fallback
	}
}
