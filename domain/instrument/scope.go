package instrument

import (
	"context"

	"github.com/ul-gh/hdscope/domain/waveform"
)

// Transport serves windowed raw sample reads and the free-run state of
// one instrument.
type Transport interface {
	// Fetch returns raw sample codes for the 1-based inclusive range
	// [low, high] of channel ch.
	Fetch(ctx context.Context, ch Channel, low, high int) ([]float64, error)
	// Running reports whether acquisition is free-running.
	Running(ctx context.Context) (bool, error)
	// Stop halts acquisition.
	Stop(ctx context.Context) error
	// Run resumes free-running acquisition.
	Run(ctx context.Context) error
}

// Scope is a connected oscilloscope.
type Scope interface {
	Transport

	Identify(ctx context.Context) (Identity, error)
	// Prepare selects ch as the waveform source for subsequent Fetch calls.
	Prepare(ctx context.Context, ch Channel) error
	Calibration(ctx context.Context, ch Channel) (waveform.Calibration, error)
	MemoryDepth(ctx context.Context) (MemoryDepth, error)
	SetMemoryDepth(ctx context.Context, depth MemoryDepth) error
	// MaxChunk is the per-request sample limit; 0 means unbounded.
	MaxChunk() int
	Channels() int
	Close() error
}
