// Package waveform provides sample buffers and raw-to-physical conversion
// for oscilloscope records.
package waveform

import (
	"fmt"

	"github.com/ul-gh/hdscope/domain/chunk"
)

// Buffer is a fixed-length sequence of samples addressed 1-based, matching
// instrument indexing. It is filled in place and never reallocated.
type Buffer struct {
	samples []float64
}

// NewBuffer allocates a zeroed buffer of n samples.
func NewBuffer(n int) *Buffer {
	if n < 0 {
		n = 0
	}
	return &Buffer{samples: make([]float64, n)}
}

// BufferFrom wraps existing samples without copying.
func BufferFrom(samples []float64) *Buffer {
	return &Buffer{samples: samples}
}

// Len returns the number of samples.
func (b *Buffer) Len() int { return len(b.samples) }

// At returns the sample at 1-based index i.
func (b *Buffer) At(i int) float64 { return b.samples[i-1] }

// Samples returns the backing slice.
func (b *Buffer) Samples() []float64 { return b.samples }

// Fill writes values into positions [iv.Low(), iv.High()].
func (b *Buffer) Fill(iv chunk.Interval, values []float64) error {
	if iv.Low() < 1 || iv.High() > len(b.samples) {
		return fmt.Errorf("interval %s outside buffer of %d samples", iv, len(b.samples))
	}
	if len(values) != iv.Len() {
		return fmt.Errorf("interval %s needs %d values, got %d", iv, iv.Len(), len(values))
	}
	copy(b.samples[iv.Low()-1:iv.High()], values)
	return nil
}
