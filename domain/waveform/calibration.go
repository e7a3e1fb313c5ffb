package waveform

// Calibration converts raw sample codes to physical units and indices to
// time. Physical value is raw*Gain + Offset; time of 1-based index i is
// XOrigin + (i-1)*XIncrement.
type Calibration struct {
	Gain       float64
	Offset     float64
	XIncrement float64
	XOrigin    float64
}

// Identity returns a calibration that leaves raw codes unchanged.
func Identity() Calibration {
	return Calibration{Gain: 1}
}

// Value converts one raw code.
func (c Calibration) Value(raw float64) float64 {
	return raw*c.Gain + c.Offset
}

// Apply converts raw codes into a new slice of physical values.
func (c Calibration) Apply(raw []float64) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = v*c.Gain + c.Offset
	}
	return out
}

// Time returns the acquisition time of 1-based sample index i.
func (c Calibration) Time(i int) float64 {
	return c.XOrigin + float64(i-1)*c.XIncrement
}

// SampleRate returns samples per second, or 0 when the increment is unknown.
func (c Calibration) SampleRate() float64 {
	if c.XIncrement <= 0 {
		return 0
	}
	return 1 / c.XIncrement
}

// Volts converts every sample of buf into physical units.
func (c Calibration) Volts(buf *Buffer) []float64 {
	return c.Apply(buf.Samples())
}
