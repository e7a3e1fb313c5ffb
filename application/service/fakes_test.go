package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/store"
	"github.com/ul-gh/hdscope/domain/waveform"
)

type fakeScope struct {
	fakeTransport
	prepared []instrument.Channel
	depth    instrument.MemoryDepth
	depthErr error
	maxChunk int
}

func newFakeScope() *fakeScope {
	return &fakeScope{depth: 5000, maxChunk: 2000}
}

func (s *fakeScope) Identify(context.Context) (instrument.Identity, error) {
	return instrument.Identity{Manufacturer: "RIGOL TECHNOLOGIES", Model: "DS1104Z", Serial: "DS1ZTEST"}, nil
}

func (s *fakeScope) Prepare(_ context.Context, ch instrument.Channel) error {
	s.prepared = append(s.prepared, ch)
	return nil
}

func (s *fakeScope) Calibration(context.Context, instrument.Channel) (waveform.Calibration, error) {
	return waveform.Calibration{Gain: 0.5, Offset: -1, XIncrement: 1e-6}, nil
}

func (s *fakeScope) MemoryDepth(context.Context) (instrument.MemoryDepth, error) {
	return s.depth, s.depthErr
}

func (s *fakeScope) SetMemoryDepth(_ context.Context, d instrument.MemoryDepth) error {
	s.depth = d
	return nil
}

func (s *fakeScope) MaxChunk() int { return s.maxChunk }
func (s *fakeScope) Channels() int { return 4 }
func (s *fakeScope) Close() error  { return nil }

type fakeCaptureStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]capture.Capture
}

func newFakeCaptureStore() *fakeCaptureStore {
	return &fakeCaptureStore{rows: map[int64]capture.Capture{}}
}

func (f *fakeCaptureStore) match(opts []store.Option) []capture.Capture {
	q := store.Build(opts...)
	var out []capture.Capture
	for _, c := range f.rows {
		ok := true
		for _, f := range q.Filters() {
			switch f.Field {
			case "id":
				ok = ok && f.Value == c.ID()
			case "channel":
				ok = ok && f.Value == c.Channel().Number()
			}
		}
		if ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (f *fakeCaptureStore) Find(_ context.Context, opts ...store.Option) ([]capture.Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.match(opts), nil
}

func (f *fakeCaptureStore) FindOne(_ context.Context, opts ...store.Option) (capture.Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := f.match(opts)
	if len(found) == 0 {
		return capture.Capture{}, fmt.Errorf("%w: capture", store.ErrNotFound)
	}
	return found[0], nil
}

func (f *fakeCaptureStore) Count(_ context.Context, opts ...store.Option) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.match(opts))), nil
}

func (f *fakeCaptureStore) Exists(ctx context.Context, opts ...store.Option) (bool, error) {
	n, err := f.Count(ctx, opts...)
	return n > 0, err
}

func (f *fakeCaptureStore) Save(_ context.Context, c capture.Capture) (capture.Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID() == 0 {
		f.nextID++
		c = c.WithID(f.nextID)
	}
	f.rows[c.ID()] = c
	return c, nil
}

func (f *fakeCaptureStore) Delete(_ context.Context, c capture.Capture) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, c.ID())
	return nil
}

type fakeSampleStore struct {
	mu       sync.Mutex
	data     map[int64][]float64
	writeErr error
}

func newFakeSampleStore() *fakeSampleStore {
	return &fakeSampleStore{data: map[int64][]float64{}}
}

func (f *fakeSampleStore) Write(_ context.Context, c capture.Capture, samples []float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return "", f.writeErr
	}
	f.data[c.ID()] = append([]float64(nil), samples...)
	return fmt.Sprintf("mem://%d", c.ID()), nil
}

func (f *fakeSampleStore) Read(_ context.Context, c capture.Capture) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.data[c.ID()]
	if !ok {
		return nil, fmt.Errorf("no samples for %d", c.ID())
	}
	return append([]float64(nil), d...), nil
}

func (f *fakeSampleStore) Remove(_ context.Context, c capture.Capture) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, c.ID())
	return nil
}
