package waveform

import "math"

// Stats summarises a run of samples.
type Stats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	RMS   float64
}

// PeakToPeak returns Max - Min.
func (s Stats) PeakToPeak() float64 { return s.Max - s.Min }

// Summarize computes Stats in one pass. An empty input yields zero Stats.
func Summarize(samples []float64) Stats {
	if len(samples) == 0 {
		return Stats{}
	}
	s := Stats{Count: len(samples), Min: samples[0], Max: samples[0]}
	var sum, sumSq float64
	for _, v := range samples {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		sum += v
		sumSq += v * v
	}
	n := float64(len(samples))
	s.Mean = sum / n
	s.RMS = math.Sqrt(sumSq / n)
	return s
}
