package persistence

import (
	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/waveform"
)

// CaptureMapper maps between domain Capture and persistence CaptureModel.
type CaptureMapper struct{}

// ToDomain converts a CaptureModel to a domain Capture.
func (m CaptureMapper) ToDomain(e CaptureModel) capture.Capture {
	return capture.ReconstructCapture(
		e.ID,
		e.Instrument,
		instrument.Channel(e.Channel),
		e.Samples,
		waveform.Calibration{
			Gain:       e.Gain,
			Offset:     e.Offset,
			XIncrement: e.XIncrement,
			XOrigin:    e.XOrigin,
		},
		e.DataPath,
		e.CreatedAt,
	)
}

// ToModel converts a domain Capture to a CaptureModel.
func (m CaptureMapper) ToModel(c capture.Capture) CaptureModel {
	cal := c.Calibration()
	return CaptureModel{
		ID:         c.ID(),
		Instrument: c.Instrument(),
		Channel:    c.Channel().Number(),
		Samples:    c.Samples(),
		Gain:       cal.Gain,
		Offset:     cal.Offset,
		XIncrement: cal.XIncrement,
		XOrigin:    cal.XOrigin,
		DataPath:   c.DataPath(),
		CreatedAt:  c.CreatedAt(),
	}
}
