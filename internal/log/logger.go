// Package log builds the process logger: coloured terminal lines or JSON on
// stderr, with the request ID from the context added to every record.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ul-gh/hdscope/internal/config"
)

// New returns a logger writing records at or above level to w.
func New(w io.Writer, format config.LogFormat, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if format == config.LogFormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = newTerminalHandler(w, opts.Level)
	}
	return slog.New(requestHandler{h})
}

// FromConfig returns the logger cfg describes. It writes to stderr so
// stdout stays free for command output and the MCP stdio stream.
func FromConfig(cfg config.AppConfig) *slog.Logger {
	return New(os.Stderr, cfg.LogFormat(), cfg.LogLevel())
}

// ParseLevel maps a level name to a slog.Level. Unknown names give Info.
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type requestIDKey struct{}

// WithRequestID returns ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestHandler adds request_id to records logged with a request context.
type requestHandler struct {
	slog.Handler
}

func (h requestHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestHandler{h.Handler.WithAttrs(attrs)}
}

func (h requestHandler) WithGroup(name string) slog.Handler {
	return requestHandler{h.Handler.WithGroup(name)}
}
