// Package logging provides structured logging for the log manager and
// the storage engine it is bound to.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Level represents the logging level.
type Level int

const (
	// LevelDebug is the most verbose level.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a string into a Level.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Format represents the log output format.
type Format int

const (
	// FormatText outputs logs in human-readable console format.
	FormatText Format = iota
	// FormatJSON outputs logs in JSON format.
	FormatJSON
)

// ParseFormat parses a string into a Format.
func ParseFormat(s string) Format {
	switch s {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatText
	}
}

// Logger is the interface the storage engine and ariesctl log through.
// It wraps zerolog.Logger so that those callers never import zerolog
// directly, matching the rest of this package's level/format
// vocabulary. The log manager itself takes a zerolog.Logger, obtained
// through Zerolog.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	// WithFields returns a new logger with the given key-value pairs
	// attached to every subsequent entry.
	WithFields(keysAndValues ...interface{}) Logger
	// Zerolog exposes the underlying zerolog.Logger for components
	// (like logmgr.LogManager) that take one directly.
	Zerolog() zerolog.Logger
}

// Config holds the logger configuration.
type Config struct {
	Level  string
	Format string
	Output string
}

type logger struct {
	zl zerolog.Logger
}

// New creates a new Logger with the given configuration.
func New(cfg Config) Logger {
	return &logger{zl: build(ParseLevel(cfg.Level), ParseFormat(cfg.Format), openOutput(cfg.Output))}
}

// NewDefault creates a new Logger with default settings: info level,
// text format, stdout.
func NewDefault() Logger {
	return &logger{zl: build(LevelInfo, FormatText, os.Stdout)}
}

// NewNop creates a no-op logger that discards all output.
func NewNop() Logger {
	return &logger{zl: zerolog.Nop()}
}

func openOutput(path string) io.Writer {
	switch path {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return os.Stdout
		}
		return f
	}
}

func build(level Level, format Format, w io.Writer) zerolog.Logger {
	if format == FormatText {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02T15:04:05Z07:00"}
	}
	return zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger()
}

func (l *logger) Debug(msg string, kv ...interface{}) { l.log(l.zl.Debug(), msg, kv) }
func (l *logger) Info(msg string, kv ...interface{})  { l.log(l.zl.Info(), msg, kv) }
func (l *logger) Warn(msg string, kv ...interface{})  { l.log(l.zl.Warn(), msg, kv) }
func (l *logger) Error(msg string, kv ...interface{}) { l.log(l.zl.Error(), msg, kv) }

func (l *logger) log(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}

func (l *logger) WithFields(kv ...interface{}) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, kv[i+1])
	}
	return &logger{zl: ctx.Logger()}
}

func (l *logger) Zerolog() zerolog.Logger {
	return l.zl
}
