// Package log provides the node's structured logger: a thin, key/value
// wrapper over log/slog with a plain-text terminal handler for interactive
// use and a JSON handler for production.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Level aliases slog.Level so callers never need to import log/slog
// directly for basic use.
type Level = slog.Level

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelCrit  = slog.Level(12)
)

var levelNames = map[slog.Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelCrit:  "CRIT",
}

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	SetDefault(slog.New(NewTerminalHandler(os.Stderr, LevelInfo)))
}

// SetDefault replaces the package-level logger used by Trace/Debug/Info/
// Warn/Error/Crit.
func SetDefault(l *slog.Logger) {
	defaultLogger.Store(l)
}

func logger() *slog.Logger {
	return defaultLogger.Load()
}

func Trace(msg string, ctx ...any) { logger().Log(context.Background(), LevelTrace, msg, ctx...) }
func Debug(msg string, ctx ...any) { logger().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { logger().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { logger().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { logger().Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { logger().Log(context.Background(), LevelCrit, msg, ctx...) }

// terminalHandler formats records as a single aligned line:
// "LEVEL [timestamp] message key=value key=value".
type terminalHandler struct {
	out   io.Writer
	level slog.Leveler
	attrs []slog.Attr
}

// NewTerminalHandler returns a human-readable handler for interactive use.
func NewTerminalHandler(out io.Writer, level slog.Leveler) slog.Handler {
	return &terminalHandler{out: out, level: level}
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	name, ok := levelNames[r.Level]
	if !ok {
		name = r.Level.String()
	}
	line := fmt.Sprintf("%-5s [%s] %s", name, r.Time.Format("01-02|15:04:05.000"), r.Message)
	for _, a := range h.attrs {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	_, err := fmt.Fprintln(h.out, line)
	return err
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &terminalHandler{out: h.out, level: h.level, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *terminalHandler) WithGroup(_ string) slog.Handler {
	return h
}

// JSONHandler returns a structured handler for production/container use,
// logging at LevelInfo and above.
func JSONHandler(out io.Writer) slog.Handler {
	return JSONHandlerWithLevel(out, LevelInfo)
}

// JSONHandlerWithLevel returns a JSON handler with an explicit minimum
// level.
func JSONHandlerWithLevel(out io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	})
}
