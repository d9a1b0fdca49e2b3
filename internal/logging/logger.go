package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog to provide subsystem-scoped child loggers.
type Logger struct {
	zl zerolog.Logger
}

// New creates a root logger writing to w at the given level. A nil writer
// means human-readable console output on stderr.
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	zl = zl.Level(parseLevel(level))
	return &Logger{zl: zl}
}

// NewForFormat picks the writer from a format name: "json" writes structured
// lines to stderr, anything else uses the console writer.
func NewForFormat(format, level string) *Logger {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return New(os.Stderr, level)
	}
	return New(nil, level)
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Sub returns a child logger tagged with a subsystem name.
func (l *Logger) Sub(subsystem string) *Logger {
	return &Logger{zl: l.zl.With().Str("subsystem", subsystem).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }

func (l *Logger) Info() *zerolog.Event { return l.zl.Info() }

func (l *Logger) Warn() *zerolog.Event { return l.zl.Warn() }

func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "silent":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
