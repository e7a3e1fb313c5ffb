// Package capture provides the persisted record of one waveform acquisition.
package capture

import (
	"math"
	"time"

	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/waveform"
)

// Capture is a stored acquisition of one channel. The samples themselves
// live in a SampleStore; the Capture holds their metadata.
type Capture struct {
	id          int64
	instrument  string
	channel     instrument.Channel
	samples     int
	calibration waveform.Calibration
	dataPath    string
	createdAt   time.Time
}

// NewCapture creates a capture that has not been persisted yet.
func NewCapture(instrumentName string, ch instrument.Channel, samples int, cal waveform.Calibration) Capture {
	return Capture{
		instrument:  instrumentName,
		channel:     ch,
		samples:     samples,
		calibration: cal,
		createdAt:   time.Now().UTC(),
	}
}

// ReconstructCapture recreates a capture from persistence.
func ReconstructCapture(
	id int64,
	instrumentName string,
	ch instrument.Channel,
	samples int,
	cal waveform.Calibration,
	dataPath string,
	createdAt time.Time,
) Capture {
	return Capture{
		id:          id,
		instrument:  instrumentName,
		channel:     ch,
		samples:     samples,
		calibration: cal,
		dataPath:    dataPath,
		createdAt:   createdAt,
	}
}

// ID returns the database identifier, 0 before the first save.
func (c Capture) ID() int64 { return c.id }

// Instrument returns the identity string of the scope that produced it.
func (c Capture) Instrument() string { return c.instrument }

// Channel returns the captured channel.
func (c Capture) Channel() instrument.Channel { return c.channel }

// Samples returns the number of samples in the record.
func (c Capture) Samples() int { return c.samples }

// Calibration returns the raw-to-physical conversion for the record.
func (c Capture) Calibration() waveform.Calibration { return c.calibration }

// DataPath returns where the sample data is stored.
func (c Capture) DataPath() string { return c.dataPath }

// CreatedAt returns the acquisition time.
func (c Capture) CreatedAt() time.Time { return c.createdAt }

// Duration returns the time span covered by the record.
func (c Capture) Duration() time.Duration {
	return time.Duration(math.Round(float64(c.samples) * c.calibration.XIncrement * float64(time.Second)))
}

// WithID returns a copy with the given identifier.
func (c Capture) WithID(id int64) Capture {
	c.id = id
	return c
}

// WithDataPath returns a copy pointing at the given data location.
func (c Capture) WithDataPath(path string) Capture {
	c.dataPath = path
	return c
}
