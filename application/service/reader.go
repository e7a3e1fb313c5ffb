package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ul-gh/hdscope/domain/chunk"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/tracking"
	"github.com/ul-gh/hdscope/domain/waveform"
)

// DefaultHaltThreshold is the largest read served without halting a
// free-running instrument.
const DefaultHaltThreshold = 1200

// TransferMetrics observes chunked transfers.
type TransferMetrics interface {
	ChunkFetched(ch instrument.Channel, samples int, elapsed time.Duration)
	Halted()
	Restored()
	RestoreFailed()
}

type nopMetrics struct{}

func (nopMetrics) ChunkFetched(instrument.Channel, int, time.Duration) {}
func (nopMetrics) Halted()                                             {}
func (nopMetrics) Restored()                                           {}
func (nopMetrics) RestoreFailed()                                      {}

type nopReporter struct{}

func (nopReporter) OnChange(context.Context, tracking.Progress) error { return nil }

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxChunk sets the per-request sample limit. Values <= 0 read the
// whole record in a single request.
func WithMaxChunk(n int) ReaderOption {
	return func(r *Reader) { r.maxChunk = n }
}

// WithHaltThreshold sets the read size above which a free-running
// instrument is halted for the transfer.
func WithHaltThreshold(n int) ReaderOption {
	return func(r *Reader) { r.haltThreshold = n }
}

// WithReaderLogger sets the logger.
func WithReaderLogger(l *slog.Logger) ReaderOption {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithReaderMetrics sets the transfer observer.
func WithReaderMetrics(m TransferMetrics) ReaderOption {
	return func(r *Reader) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithReaderProgress sets the receiver of per-transfer progress.
func WithReaderProgress(p tracking.Reporter) ReaderOption {
	return func(r *Reader) {
		if p != nil {
			r.progress = p
		}
	}
}

// Reader assembles a full waveform record from bounded-size reads.
// A Reader holds no state between calls.
type Reader struct {
	transport     instrument.Transport
	maxChunk      int
	haltThreshold int
	logger        *slog.Logger
	metrics       TransferMetrics
	progress      tracking.Reporter
}

// NewReader creates a Reader over transport.
func NewReader(transport instrument.Transport, opts ...ReaderOption) *Reader {
	r := &Reader{
		transport:     transport,
		haltThreshold: DefaultHaltThreshold,
		logger:        slog.Default(),
		metrics:       nopMetrics{},
		progress:      nopReporter{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxChunk returns the configured per-request limit.
func (r *Reader) MaxChunk() int { return r.maxChunk }

// HaltThreshold returns the configured halt threshold.
func (r *Reader) HaltThreshold() int { return r.haltThreshold }

// Read fetches n samples of ch into a new buffer.
func (r *Reader) Read(ctx context.Context, ch instrument.Channel, n int) (*waveform.Buffer, error) {
	if n < 1 || n > instrument.MaxRecordLength {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleCount, n)
	}
	buf := waveform.NewBuffer(n)
	if err := r.ReadInto(ctx, ch, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadInto fills buf with buf.Len() samples of ch, one chunk at a time in
// ascending order. Reads above the halt threshold stop a free-running
// instrument first and resume it afterwards, also after a short read or
// cancellation. After a transport fault the instrument is left as is.
func (r *Reader) ReadInto(ctx context.Context, ch instrument.Channel, buf *waveform.Buffer) (err error) {
	n := buf.Len()
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleCount, n)
	}
	size := r.maxChunk
	if size <= 0 || size > n {
		size = n
	}
	plan, err := chunk.Slice(1, n, size)
	if err != nil {
		return fmt.Errorf("plan transfer: %w", err)
	}

	progress := tracking.NewProgress(ch, n, plan.Len())
	r.report(ctx, progress)
	defer func() {
		if err != nil {
			r.report(ctx, progress.Fail(err))
			return
		}
		r.report(ctx, progress.Complete())
	}()

	if n > r.haltThreshold {
		running, stateErr := r.transport.Running(ctx)
		if stateErr != nil {
			return instrument.NewTransportError("query run state", stateErr)
		}
		if running {
			if stopErr := r.transport.Stop(ctx); stopErr != nil {
				return instrument.NewTransportError("stop", stopErr)
			}
			r.metrics.Halted()
			r.logger.Debug("acquisition halted for transfer", slog.String("channel", ch.String()), slog.Int("samples", n))
			defer func() { err = r.restore(ctx, ch, err) }()
		}
	}

	r.logger.Debug("reading waveform",
		slog.String("channel", ch.String()),
		slog.Int("samples", n),
		slog.Int("chunks", plan.Len()),
	)

	for iv := range plan.All() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("read %s at %s: %w", ch, iv, err)
		}
		start := time.Now()
		values, err := r.transport.Fetch(ctx, ch, iv.Low(), iv.High())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("read %s at %s: %w", ch, iv, ctxErr)
			}
			return instrument.NewTransportError("fetch "+iv.String(), err)
		}
		if len(values) != iv.Len() {
			return &instrument.ShortReadError{Interval: iv, Got: len(values)}
		}
		if err := buf.Fill(iv, values); err != nil {
			return err
		}
		r.metrics.ChunkFetched(ch, len(values), time.Since(start))
		progress = progress.Advance(len(values))
		r.report(ctx, progress)
	}
	return nil
}

func (r *Reader) report(ctx context.Context, p tracking.Progress) {
	if err := r.progress.OnChange(context.WithoutCancel(ctx), p); err != nil {
		r.logger.Warn("failed to report transfer progress",
			slog.String("transfer", p.ID()),
			slog.String("error", err.Error()),
		)
	}
}

// restore resumes acquisition after a halted transfer and merges any
// failure with the transfer result.
func (r *Reader) restore(ctx context.Context, ch instrument.Channel, result error) error {
	if errors.Is(result, instrument.ErrTransport) {
		r.logger.Warn("instrument left halted after transport fault",
			slog.String("channel", ch.String()),
			slog.String("error", result.Error()),
		)
		return result
	}
	err := r.transport.Run(context.WithoutCancel(ctx))
	if err == nil {
		r.metrics.Restored()
		return result
	}
	err = instrument.NewTransportError("run", err)
	r.metrics.RestoreFailed()
	r.logger.Error("failed to resume acquisition",
		slog.String("channel", ch.String()),
		slog.String("error", err.Error()),
	)
	if result == nil {
		return err
	}
	return errors.Join(result, err)
}
