package tracking

import (
	"context"
	"log/slog"

	"github.com/ul-gh/hdscope/domain/tracking"
)

// LoggingReporter implements tracking.Reporter by logging progress.
type LoggingReporter struct {
	logger *slog.Logger
}

// NewLoggingReporter creates a new LoggingReporter.
func NewLoggingReporter(logger *slog.Logger) *LoggingReporter {
	return &LoggingReporter{logger: logger}
}

// OnChange logs the progress snapshot. Failures log at error level,
// completion at info and everything else at debug.
func (r *LoggingReporter) OnChange(ctx context.Context, p tracking.Progress) error {
	attrs := []slog.Attr{
		slog.String("transfer", p.ID()),
		slog.String("state", string(p.State())),
		slog.Int("samples", p.Current()),
		slog.Int("total", p.Total()),
		slog.Int("chunk", p.Chunk()),
		slog.Int("chunks", p.Chunks()),
		slog.Float64("completion_percent", p.CompletionPercent()),
		slog.Duration("elapsed", p.Elapsed()),
	}

	switch p.State() {
	case tracking.StateFailed:
		attrs = append(attrs, slog.String("error", p.Error()))
		r.logger.LogAttrs(ctx, slog.LevelError, "transfer failed", attrs...)
	case tracking.StateCompleted:
		r.logger.LogAttrs(ctx, slog.LevelInfo, "transfer completed", attrs...)
	default:
		r.logger.LogAttrs(ctx, slog.LevelDebug, "transfer progress", attrs...)
	}
	return nil
}
