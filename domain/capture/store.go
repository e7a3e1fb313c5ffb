package capture

import (
	"context"

	"github.com/ul-gh/hdscope/domain/store"
)

// Store persists capture metadata.
type Store interface {
	store.Store[Capture]
}

// SampleStore persists the raw sample data of a capture.
type SampleStore interface {
	// Write stores samples and returns the location to record on the capture.
	Write(ctx context.Context, c Capture, samples []float64) (string, error)
	Read(ctx context.Context, c Capture) ([]float64, error)
	Remove(ctx context.Context, c Capture) error
}

// AtomicStore is implemented by stores that can persist a capture and its
// samples as one unit, leaving neither behind when either part fails.
type AtomicStore interface {
	SaveWithSamples(ctx context.Context, c Capture, samples []float64, files SampleStore) (Capture, error)
}
