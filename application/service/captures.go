package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync/atomic"

	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/filter"
	"github.com/ul-gh/hdscope/domain/store"
	"github.com/ul-gh/hdscope/domain/waveform"
)

// SampleParams selects how stored samples are returned.
type SampleParams struct {
	// Volts converts raw codes with the capture calibration.
	Volts   bool
	Filters filter.Chain
	// Offset and Limit window the filtered result; Limit 0 means all.
	Offset int
	Limit  int
}

// SampleWindow is a slice of a capture's processed samples.
type SampleWindow struct {
	Capture capture.Capture
	Values  []float64
	Offset  int
	Total   int
}

// Captures queries and manages stored captures.
type Captures struct {
	store.Collection[capture.Capture]
	captures capture.Store
	samples  capture.SampleStore
	closed   *atomic.Bool
	logger   *slog.Logger
}

// NewCaptures creates a Captures service. Once closed is set every
// operation returns ErrClientClosed; a nil flag is never closed.
func NewCaptures(captures capture.Store, samples capture.SampleStore, closed *atomic.Bool, logger *slog.Logger) *Captures {
	if logger == nil {
		logger = slog.Default()
	}
	return &Captures{
		Collection: store.NewCollection[capture.Capture](captures),
		captures:   captures,
		samples:    samples,
		closed:     closed,
		logger:     logger,
	}
}

// Find returns the captures matching options.
func (s *Captures) Find(ctx context.Context, options ...store.Option) ([]capture.Capture, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.Collection.Find(ctx, options...)
}

// Get returns the single capture matching options.
func (s *Captures) Get(ctx context.Context, options ...store.Option) (capture.Capture, error) {
	if err := s.check(); err != nil {
		return capture.Capture{}, err
	}
	return s.Collection.Get(ctx, options...)
}

// Count returns the number of captures matching options.
func (s *Captures) Count(ctx context.Context, options ...store.Option) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.Collection.Count(ctx, options...)
}

// ByID returns the capture with the given identifier.
func (s *Captures) ByID(ctx context.Context, id int64) (capture.Capture, error) {
	if err := s.check(); err != nil {
		return capture.Capture{}, err
	}
	c, err := s.captures.FindOne(ctx, capture.WithID(id))
	if err != nil {
		return capture.Capture{}, fmt.Errorf("get capture %d: %w", id, err)
	}
	return c, nil
}

// Delete removes a capture and its sample data.
func (s *Captures) Delete(ctx context.Context, id int64) error {
	c, err := s.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.samples.Remove(ctx, c); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove samples of capture %d: %w", id, err)
	}
	if err := s.captures.Delete(ctx, c); err != nil {
		return fmt.Errorf("delete capture %d: %w", id, err)
	}
	s.logger.Info("capture deleted", slog.Int64("capture_id", id))
	return nil
}

// Samples loads, converts, filters and windows a capture's samples.
func (s *Captures) Samples(ctx context.Context, id int64, params SampleParams) (SampleWindow, error) {
	if params.Offset < 0 || params.Limit < 0 {
		return SampleWindow{}, fmt.Errorf("%w: offset %d limit %d", ErrInvalidWindow, params.Offset, params.Limit)
	}
	c, values, err := s.load(ctx, id, params.Volts)
	if err != nil {
		return SampleWindow{}, err
	}
	values, err = params.Filters.Apply(values)
	if err != nil {
		return SampleWindow{}, fmt.Errorf("filter capture %d: %w", id, err)
	}

	total := len(values)
	lo := min(params.Offset, total)
	hi := total
	if params.Limit > 0 {
		hi = min(lo+params.Limit, total)
	}
	return SampleWindow{Capture: c, Values: values[lo:hi], Offset: lo, Total: total}, nil
}

// Stats summarises a capture in physical units.
func (s *Captures) Stats(ctx context.Context, id int64) (waveform.Stats, error) {
	_, values, err := s.load(ctx, id, true)
	if err != nil {
		return waveform.Stats{}, err
	}
	return waveform.Summarize(values), nil
}

func (s *Captures) load(ctx context.Context, id int64, volts bool) (capture.Capture, []float64, error) {
	c, err := s.ByID(ctx, id)
	if err != nil {
		return capture.Capture{}, nil, err
	}
	raw, err := s.samples.Read(ctx, c)
	if err != nil {
		return capture.Capture{}, nil, fmt.Errorf("read samples of capture %d: %w", id, err)
	}
	if volts {
		return c, c.Calibration().Apply(raw), nil
	}
	return c, raw, nil
}

func (s *Captures) check() error {
	if s.closed != nil && s.closed.Load() {
		return ErrClientClosed
	}
	return nil
}
