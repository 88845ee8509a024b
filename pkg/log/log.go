package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the minimum severity a Logger will emit.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config configures a Logger. It is built once at the composition root and
// passed to New; nothing in this package holds package-level state.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer

	// LogFile, when non-empty, routes output through a lumberjack rotating
	// writer instead of Output (~1 MB x 7 backups, per spec.md §5).
	LogFile string
}

// New builds a zerolog.Logger from cfg. Output defaults to os.Stdout unless
// LogFile is set, in which case logs rotate at 1 MB keeping 7 backups.
func New(cfg Config) zerolog.Logger {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if cfg.LogFile != "" {
		output = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    1, // MB
			MaxBackups: 7,
			Compress:   false,
		}
	} else if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagging every entry with component.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// WithEvent returns a child logger tagging every entry with the event id.
func WithEvent(logger zerolog.Logger, eventID string) zerolog.Logger {
	return logger.With().Str("event_id", eventID).Logger()
}
