package util

import (
	stdlog "log"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

type Logger = zerolog.Logger

// LogLevel represents available log levels
type LogLevel = int

// Log levels
const (
	TraceLevel LogLevel = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
)

// VerbosityToLevel maps a CLI verbosity between 1 (error) and 5 (trace) to a
// LogLevel, clamping out of range values
func VerbosityToLevel(verbose int) LogLevel {
	verbose = min(max(verbose, 1), 5)
	lvls := [5]LogLevel{ErrorLevel, WarnLevel, InfoLevel, DebugLevel, TraceLevel}
	return lvls[verbose-1]
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case TraceLevel:
		return zerolog.TraceLevel
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// InitializeLogger sets up the global logger with the specified configuration
func InitializeLogger(level LogLevel) {
	// Set time format to ISO8601
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerologLevel(level))

	// Create a console writer with nice formatting for terminal output
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}

	// Set global logger
	ctx := zerolog.New(output).With().Timestamp()
	if level == TraceLevel {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	log.Info().Msg("Logger initialized")
}

// GetLogger returns a configured logger for a specific component
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// NewSlogHandler returns a slog.Handler writing through the global zerolog
// logger tagged with component
func NewSlogHandler(component string, lvl slog.Level) slog.Handler {
	zlog := GetLogger(component)
	opt := slogzerolog.Option{Level: lvl, Logger: &zlog}
	return opt.NewZerologHandler()
}

// NewLogLogger returns a stdlog.Logger that routes to zerolog at lvl.
// Used for libraries such as go-fuse that only accept a *log.Logger.
func NewLogLogger(component string, lvl LogLevel) *stdlog.Logger {
	var slvl slog.Level
	switch lvl {
	case TraceLevel, DebugLevel:
		slvl = slog.LevelDebug
	case WarnLevel:
		slvl = slog.LevelWarn
	case ErrorLevel:
		slvl = slog.LevelError
	default:
		slvl = slog.LevelInfo
	}
	return slog.NewLogLogger(NewSlogHandler(component, slvl), slvl)
}
