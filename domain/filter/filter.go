// Package filter implements the smoothing and decimation steps applied to
// captured waveforms before display.
package filter

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow indicates a window or factor that does not fit the input.
var ErrInvalidWindow = errors.New("invalid filter window")

// DownsampleAverage reduces x by factor n, replacing each block of n
// samples with its mean. len(x) must be a multiple of n.
func DownsampleAverage(x []float64, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: downsample factor %d", ErrInvalidWindow, n)
	}
	if len(x)%n != 0 {
		return nil, fmt.Errorf("%w: %d samples not divisible by %d", ErrInvalidWindow, len(x), n)
	}
	out := make([]float64, len(x)/n)
	for i := range out {
		var sum float64
		for _, v := range x[i*n : (i+1)*n] {
			sum += v
		}
		out[i] = sum / float64(n)
	}
	return out, nil
}

// MovingAverage returns the running mean over windows of n samples, one
// value per full window, so the result has len(x)-n+1 samples.
func MovingAverage(x []float64, n int) ([]float64, error) {
	if n <= 0 || n > len(x) {
		return nil, fmt.Errorf("%w: window %d for %d samples", ErrInvalidWindow, n, len(x))
	}
	cumsum := make([]float64, len(x)+1)
	for i, v := range x {
		cumsum[i+1] = cumsum[i] + v
	}
	out := make([]float64, len(x)-n+1)
	for i := range out {
		out[i] = (cumsum[i+n] - cumsum[i]) / float64(n)
	}
	return out, nil
}
