package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a leveled key/value logger. A nil *Logger discards everything.
type Logger struct {
	log    *slog.Logger
	closer io.Closer
}

// NewLogger writes JSON lines to stdout and, when logPath is set, to a
// rotating file.
func NewLogger(logPath, logLevel string) *Logger {
	var w io.Writer = os.Stdout
	var closer io.Closer
	if logPath != "" {
		rotating := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, rotating)
		closer = rotating
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(logLevel)})
	return &Logger{log: slog.New(handler), closer: closer}
}

// NewLoggerWithHandler wraps an existing slog handler.
func NewLoggerWithHandler(h slog.Handler) *Logger {
	return &Logger{log: slog.New(h)}
}

// NopLogger returns a logger that drops every record.
func NopLogger() *Logger {
	return &Logger{log: slog.New(slog.DiscardHandler)}
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a logger that adds fields to every record.
func (l *Logger) With(fields ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{log: l.log.With(fields...), closer: l.closer}
}

func (l *Logger) Debug(msg string, fields ...any) {
	if l == nil {
		return
	}
	l.log.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...any) {
	if l == nil {
		return
	}
	l.log.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...any) {
	if l == nil {
		return
	}
	l.log.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...any) {
	if l == nil {
		return
	}
	l.log.Error(msg, fields...)
}

// Close flushes the rotating file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
