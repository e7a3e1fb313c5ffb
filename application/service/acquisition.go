package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/instrument"
)

// CaptureParams selects what to acquire.
type CaptureParams struct {
	Channel instrument.Channel
	// Samples is the record length; 0 reads the full memory depth.
	Samples int
}

// Acquisition reads waveforms from the scope and stores them as captures.
type Acquisition struct {
	scope    instrument.Scope
	lock     *InstrumentLock
	captures capture.Store
	samples  capture.SampleStore
	reader   *Reader
	hooks    *Hooks[capture.Capture]
	logger   *slog.Logger
}

// NewAcquisition creates an Acquisition. The reader is built over scope
// with its driver chunk limit; opts override that.
func NewAcquisition(
	scope instrument.Scope,
	lock *InstrumentLock,
	captures capture.Store,
	samples capture.SampleStore,
	logger *slog.Logger,
	opts ...ReaderOption,
) *Acquisition {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Acquisition{
		scope:    scope,
		lock:     lock,
		captures: captures,
		samples:  samples,
		hooks:    NewHooks[capture.Capture](),
		logger:   logger,
	}
	if scope != nil {
		readerOpts := append([]ReaderOption{WithMaxChunk(scope.MaxChunk()), WithReaderLogger(logger)}, opts...)
		a.reader = NewReader(scope, readerOpts...)
	}
	return a
}

// Hooks returns the registry fired after every stored capture.
func (a *Acquisition) Hooks() *Hooks[capture.Capture] { return a.hooks }

// Capture acquires one channel and persists it.
func (a *Acquisition) Capture(ctx context.Context, params CaptureParams) (capture.Capture, error) {
	if a.scope == nil {
		return capture.Capture{}, ErrNoScope
	}
	if !params.Channel.Valid() || params.Channel.Number() > a.scope.Channels() {
		return capture.Capture{}, fmt.Errorf("%w: %s", instrument.ErrInvalidChannel, params.Channel)
	}
	if params.Samples < 0 || params.Samples > instrument.MaxRecordLength {
		return capture.Capture{}, fmt.Errorf("%w: %d", ErrInvalidSampleCount, params.Samples)
	}

	release, err := a.lock.Acquire(ctx)
	if err != nil {
		return capture.Capture{}, err
	}
	defer release()

	started := time.Now()
	n := params.Samples
	if n == 0 {
		depth, err := a.scope.MemoryDepth(ctx)
		if err != nil {
			return capture.Capture{}, fmt.Errorf("query memory depth: %w", err)
		}
		n = depth.Samples()
	}

	id, err := a.scope.Identify(ctx)
	if err != nil {
		return capture.Capture{}, fmt.Errorf("identify: %w", err)
	}
	if err := a.scope.Prepare(ctx, params.Channel); err != nil {
		return capture.Capture{}, fmt.Errorf("prepare %s: %w", params.Channel, err)
	}
	cal, err := a.scope.Calibration(ctx, params.Channel)
	if err != nil {
		return capture.Capture{}, fmt.Errorf("calibration %s: %w", params.Channel, err)
	}
	buf, err := a.reader.Read(ctx, params.Channel, n)
	if err != nil {
		return capture.Capture{}, fmt.Errorf("read %s: %w", params.Channel, err)
	}

	saved, err := a.store(ctx, capture.NewCapture(id.String(), params.Channel, n, cal), buf.Samples())
	if err != nil {
		return capture.Capture{}, err
	}

	a.logger.Info("waveform captured",
		slog.Int64("capture_id", saved.ID()),
		slog.String("channel", params.Channel.String()),
		slog.Int("samples", n),
		slog.Duration("duration", time.Since(started)),
	)
	a.hooks.Fire(ctx, saved)
	return saved, nil
}

func (a *Acquisition) store(ctx context.Context, c capture.Capture, samples []float64) (capture.Capture, error) {
	if atomic, ok := a.captures.(capture.AtomicStore); ok {
		return atomic.SaveWithSamples(ctx, c, samples, a.samples)
	}
	saved, err := a.captures.Save(ctx, c)
	if err != nil {
		return capture.Capture{}, fmt.Errorf("save capture: %w", err)
	}
	path, err := a.samples.Write(ctx, saved, samples)
	if err != nil {
		if delErr := a.captures.Delete(ctx, saved); delErr != nil {
			a.logger.Error("failed to remove orphaned capture",
				slog.Int64("capture_id", saved.ID()),
				slog.String("error", delErr.Error()),
			)
		}
		return capture.Capture{}, fmt.Errorf("write samples: %w", err)
	}
	saved, err = a.captures.Save(ctx, saved.WithDataPath(path))
	if err != nil {
		return capture.Capture{}, fmt.Errorf("save capture path: %w", err)
	}
	return saved, nil
}
