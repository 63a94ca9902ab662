// Package logging provides the structured logger photocore components
// accept: an slog-style Logger interface, a no-op default, and a
// custom tab-separated handler for human-readable file/stderr output.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Logger is the interface every core component depends on. Args follow
// slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything. It is the default when no logger is
// supplied to the vault facade.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// slogAdapter wraps an *slog.Logger to satisfy Logger.
type slogAdapter struct {
	l *slog.Logger
}

// NewSlogLogger wraps an *slog.Logger with the given scan/run
// correlation id attached to every record.
func NewSlogLogger(l *slog.Logger, correlationID string) Logger {
	if correlationID != "" {
		l = l.With("op_id", correlationID)
	}
	return &slogAdapter{l: l}
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }

// photoHandler is a custom slog.Handler that writes tab-separated
// records: timestamp, level, message, then sorted key=value pairs.
type photoHandler struct {
	w     io.Writer
	attrs []slog.Attr
}

// NewHandler builds a photoHandler writing to w.
func NewHandler(w io.Writer) slog.Handler {
	return &photoHandler{w: w}
}

func (h *photoHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *photoHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format(time.RFC3339))
	b.WriteByte('\t')
	b.WriteString(r.Level.String())
	b.WriteByte('\t')
	b.WriteString(r.Message)

	fields := make(map[string]string)
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.String()
		return true
	})

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('\t')
		fmt.Fprintf(&b, "%s=%s", k, fields[k])
	}
	b.WriteByte('\n')

	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *photoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &photoHandler{w: h.w, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *photoHandler) WithGroup(string) slog.Handler { return h }

// NewFileAndStderrLogger returns an slog.Logger that writes
// tab-separated records to w. It opens no file and does not add
// stderr itself; a caller wanting both passes an io.MultiWriter.
func NewFileAndStderrLogger(w io.Writer) *slog.Logger {
	return slog.New(NewHandler(w))
}
