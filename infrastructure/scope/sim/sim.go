// Package sim provides a deterministic simulated oscilloscope.
package sim

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/waveform"
)

// Defaults of a new simulated scope.
const (
	DefaultMaxChunk = 250_000
	DefaultDepth    = instrument.Depth1M
	DefaultPeriod   = 1000
)

// Option configures a Scope.
type Option func(*Scope)

// WithMaxChunk sets the per-request limit.
func WithMaxChunk(n int) Option {
	return func(s *Scope) { s.maxChunk = n }
}

// WithMemoryDepth sets the initial record length.
func WithMemoryDepth(d instrument.MemoryDepth) Option {
	return func(s *Scope) { s.depth = d }
}

// WithPeriod sets the sine period in samples.
func WithPeriod(n int) Option {
	return func(s *Scope) {
		if n > 0 {
			s.period = n
		}
	}
}

// WithChannels sets the number of analog inputs.
func WithChannels(n int) Option {
	return func(s *Scope) { s.channels = n }
}

// Scope simulates a free-running 8-bit scope. Channel n carries a sine of
// the configured period phase shifted by n quarter periods plus a slow ramp.
type Scope struct {
	mu         sync.Mutex
	running    bool
	depth      instrument.MemoryDepth
	maxChunk   int
	period     int
	channels   int
	prepared   instrument.Channel
	directives []string
	closed     bool
}

// New creates a running simulated scope.
func New(opts ...Option) *Scope {
	s := &Scope{
		running:  true,
		depth:    DefaultDepth,
		maxChunk: DefaultMaxChunk,
		period:   DefaultPeriod,
		channels: instrument.MaxChannels,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Code returns the raw sample code of ch at 1-based index i.
func (s *Scope) Code(ch instrument.Channel, i int) float64 {
	phase := 2 * math.Pi * (float64(i-1)/float64(s.period) + float64(ch.Number()-1)/4)
	ramp := float64((i-1)%s.period) / float64(s.period) * 20
	return math.Round(118 + 100*math.Sin(phase) + ramp)
}

// Identify implements instrument.Scope.
func (s *Scope) Identify(context.Context) (instrument.Identity, error) {
	return instrument.Identity{Manufacturer: "hdscope", Model: "SIM1004", Serial: "SIM0001", Firmware: "1.0"}, nil
}

// Prepare implements instrument.Scope.
func (s *Scope) Prepare(_ context.Context, ch instrument.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	s.prepared = ch
	s.directives = append(s.directives, "prepare "+ch.String())
	return nil
}

// Fetch implements instrument.Transport.
func (s *Scope) Fetch(ctx context.Context, ch instrument.Channel, low, high int) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.maxChunk > 0 && high-low+1 > s.maxChunk {
		return nil, fmt.Errorf("window %d..%d exceeds %d samples", low, high, s.maxChunk)
	}
	hi := min(high, s.depth.Samples())
	out := make([]float64, 0, max(hi-low+1, 0))
	for i := low; i <= hi; i++ {
		out = append(out, s.Code(ch, i))
	}
	s.directives = append(s.directives, fmt.Sprintf("fetch %d %d", low, high))
	return out, nil
}

// Running implements instrument.Transport.
func (s *Scope) Running(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.check()
}

// Stop implements instrument.Transport.
func (s *Scope) Stop(context.Context) error {
	return s.directive("stop", false)
}

// Run implements instrument.Transport.
func (s *Scope) Run(context.Context) error {
	return s.directive("run", true)
}

// Calibration implements instrument.Scope with 8-bit codes centred on 128
// at 40 mV per code and 1 µs per sample.
func (s *Scope) Calibration(context.Context, instrument.Channel) (waveform.Calibration, error) {
	return waveform.Calibration{Gain: 0.04, Offset: -128 * 0.04, XIncrement: 1e-6}, nil
}

// MemoryDepth implements instrument.Scope.
func (s *Scope) MemoryDepth(context.Context) (instrument.MemoryDepth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth, s.check()
}

// SetMemoryDepth implements instrument.Scope.
func (s *Scope) SetMemoryDepth(_ context.Context, d instrument.MemoryDepth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	s.depth = d
	s.directives = append(s.directives, "mdepth "+d.String())
	return nil
}

// MaxChunk implements instrument.Scope.
func (s *Scope) MaxChunk() int { return s.maxChunk }

// Channels implements instrument.Scope.
func (s *Scope) Channels() int { return s.channels }

// Close implements instrument.Scope.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Directives returns the recorded commands in order.
func (s *Scope) Directives() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.directives...)
}

func (s *Scope) directive(name string, running bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	s.running = running
	s.directives = append(s.directives, name)
	return nil
}

func (s *Scope) check() error {
	if s.closed {
		return instrument.NewTransportError("simulate", fmt.Errorf("scope closed"))
	}
	return nil
}
