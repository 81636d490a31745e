package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	SetOutput(os.Stdout)
}

// SetOutput redirects log lines to w. Tests use it to capture output.
func SetOutput(w io.Writer) {
	logger.Store(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(slog.LevelInfo, msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write(slog.LevelWarn, msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write(slog.LevelError, msg, fields)
}

func write(level slog.Level, msg string, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		v := fields[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	logger.Load().LogAttrs(context.Background(), level, msg, attrs...)
}
