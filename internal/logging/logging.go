package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Key constants for structured log fields.
const (
	KeyComponent = "component"
	KeyElement   = "element"
	KeyError     = "error"
)

// Logger couples a slog.Logger with the level it filters on, so the level can
// follow config reloads.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New builds a logger.
// format: "json" or "text" (default "text")
// level: "debug", "info", "warn", "error" (default "info")
// output: writer to log to (nil = os.Stderr)
//
// SCAPSRC_DEBUG=1 forces debug level.
func New(format, level string, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}

	lvl := &slog.LevelVar{}
	lvl.Set(effectiveLevel(level))

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{Logger: slog.New(handler), level: lvl}
}

// SetLevel changes the level of this logger and everything derived from it.
func (l *Logger) SetLevel(level string) {
	l.level.Set(effectiveLevel(level))
}

func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// L returns a child logger tagged with a component name.
func (l *Logger) L(component string) *slog.Logger {
	return l.With(KeyComponent, component)
}

func effectiveLevel(level string) slog.Level {
	if DebugForced() {
		return slog.LevelDebug
	}
	return ParseLevel(level)
}

// DebugForced reports whether SCAPSRC_DEBUG=1 is set.
func DebugForced() bool {
	return strings.TrimSpace(os.Getenv("SCAPSRC_DEBUG")) == "1"
}

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

// ValidLevel reports whether level is one ParseLevel understands.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}
