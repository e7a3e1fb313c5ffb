package export

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/waveform"
)

// Metadata is the YAML sidecar describing an exported capture.
type Metadata struct {
	ID          int64               `yaml:"id"`
	Instrument  string              `yaml:"instrument"`
	Channel     string              `yaml:"channel"`
	Samples     int                 `yaml:"samples"`
	CreatedAt   time.Time           `yaml:"created_at"`
	SampleRate  float64             `yaml:"sample_rate"`
	Duration    string              `yaml:"duration"`
	Calibration CalibrationMetadata `yaml:"calibration"`
	Stats       *StatsMetadata      `yaml:"stats,omitempty"`
}

// CalibrationMetadata mirrors waveform.Calibration.
type CalibrationMetadata struct {
	Gain       float64 `yaml:"gain"`
	Offset     float64 `yaml:"offset"`
	XIncrement float64 `yaml:"x_increment"`
	XOrigin    float64 `yaml:"x_origin"`
}

// StatsMetadata mirrors waveform.Stats in physical units.
type StatsMetadata struct {
	Min        float64 `yaml:"min"`
	Max        float64 `yaml:"max"`
	Mean       float64 `yaml:"mean"`
	RMS        float64 `yaml:"rms"`
	PeakToPeak float64 `yaml:"peak_to_peak"`
}

// NewMetadata describes c. stats may be nil when the samples were not read.
func NewMetadata(c capture.Capture, stats *waveform.Stats) Metadata {
	cal := c.Calibration()
	m := Metadata{
		ID:         c.ID(),
		Instrument: c.Instrument(),
		Channel:    c.Channel().String(),
		Samples:    c.Samples(),
		CreatedAt:  c.CreatedAt(),
		SampleRate: cal.SampleRate(),
		Duration:   c.Duration().String(),
		Calibration: CalibrationMetadata{
			Gain:       cal.Gain,
			Offset:     cal.Offset,
			XIncrement: cal.XIncrement,
			XOrigin:    cal.XOrigin,
		},
	}
	if stats != nil {
		m.Stats = &StatsMetadata{
			Min:        stats.Min,
			Max:        stats.Max,
			Mean:       stats.Mean,
			RMS:        stats.RMS,
			PeakToPeak: stats.PeakToPeak(),
		}
	}
	return m
}

// WriteMetadata encodes m as YAML.
func WriteMetadata(w io.Writer, m Metadata) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return enc.Close()
}

// ReadMetadata decodes a YAML sidecar.
func ReadMetadata(r io.Reader) (Metadata, error) {
	var m Metadata
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}
