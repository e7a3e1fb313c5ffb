package jsonapi

import (
	"strconv"

	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/waveform"
)

// Resource types.
const (
	TypeCapture    = "capture"
	TypeSamples    = "samples"
	TypeStats      = "stats"
	TypeInstrument = "instrument"
)

// CalibrationAttributes describes raw-to-physical conversion.
type CalibrationAttributes struct {
	YGain      float64 `json:"y_gain"`
	YOffset    float64 `json:"y_offset"`
	XIncrement float64 `json:"x_increment"`
	XOrigin    float64 `json:"x_origin"`
}

// CaptureAttributes represents capture attributes in JSON:API format.
type CaptureAttributes struct {
	Instrument  string                `json:"instrument"`
	Channel     string                `json:"channel"`
	Samples     int                   `json:"samples"`
	SampleRate  float64               `json:"sample_rate"`
	DurationSec float64               `json:"duration_seconds"`
	Calibration CalibrationAttributes `json:"calibration"`
	CreatedAt   string                `json:"created_at"`
}

// StatsAttributes summarises a capture in volts.
type StatsAttributes struct {
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	RMS        float64 `json:"rms"`
	PeakToPeak float64 `json:"peak_to_peak"`
}

// CaptureResource converts a capture to a resource.
func CaptureResource(c capture.Capture) *Resource {
	cal := c.Calibration()
	r := NewResource(TypeCapture, strconv.FormatInt(c.ID(), 10), CaptureAttributes{
		Instrument:  c.Instrument(),
		Channel:     c.Channel().String(),
		Samples:     c.Samples(),
		SampleRate:  cal.SampleRate(),
		DurationSec: c.Duration().Seconds(),
		Calibration: CalibrationAttributes{
			YGain:      cal.Gain,
			YOffset:    cal.Offset,
			XIncrement: cal.XIncrement,
			XOrigin:    cal.XOrigin,
		},
		CreatedAt: Timestamp(c.CreatedAt()),
	})
	r.Links = &Links{Self: "/api/v1/captures/" + r.ID}
	return r
}

// CaptureResources converts captures to resources.
func CaptureResources(captures []capture.Capture) []*Resource {
	out := make([]*Resource, len(captures))
	for i, c := range captures {
		out[i] = CaptureResource(c)
	}
	return out
}

// StatsResource converts the stats of capture id to a resource.
func StatsResource(id int64, s waveform.Stats) *Resource {
	return NewResource(TypeStats, strconv.FormatInt(id, 10), StatsAttributes{
		Count:      s.Count,
		Min:        s.Min,
		Max:        s.Max,
		Mean:       s.Mean,
		RMS:        s.RMS,
		PeakToPeak: s.PeakToPeak(),
	})
}
