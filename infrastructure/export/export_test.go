package export

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/waveform"
)

var cal = waveform.Calibration{Gain: 0.5, Offset: -1, XIncrement: 0.001, XOrigin: 0}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteCSV(&buf, cal, []float64{1.5, -2, 0}))

	assert.Equal(t, "time,value\n0,1.5\n0.001,-2\n0.002,0\n", buf.String())
}

func TestMetadata_RoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := capture.ReconstructCapture(9, "RIGOL DS1054Z", 2, 1000, cal, "/data/9.f32", created)
	stats := waveform.Summarize([]float64{-1, 1})

	var buf bytes.Buffer
	require.NoError(t, WriteMetadata(&buf, NewMetadata(c, &stats)))
	assert.Contains(t, buf.String(), "channel: CHAN2")
	assert.Contains(t, buf.String(), "peak_to_peak: 2")

	got, err := ReadMetadata(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.ID)
	assert.Equal(t, 1000, got.Samples)
	assert.Equal(t, "1s", got.Duration)
	assert.InDelta(t, 1000, got.SampleRate, 1e-9)
	assert.Equal(t, 0.5, got.Calibration.Gain)
	require.NotNil(t, got.Stats)
	assert.Equal(t, 1.0, got.Stats.RMS)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestMetadata_WithoutStats(t *testing.T) {
	c := capture.NewCapture("sim", 1, 10, cal)

	var buf bytes.Buffer
	require.NoError(t, WriteMetadata(&buf, NewMetadata(c, nil)))
	assert.NotContains(t, buf.String(), "stats")
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		out[f.Name] = b
	}
	return out
}

func TestWriteSigrok(t *testing.T) {
	var buf bytes.Buffer

	err := WriteSigrok(&buf, 1e6,
		Trace{Name: "CHAN1", Values: []float64{0.5, -0.25}},
		Trace{Name: "CHAN2", Values: []float64{1}},
	)
	require.NoError(t, err)

	files := readZip(t, buf.Bytes())
	assert.Equal(t, "2\n", string(files["version"]))

	meta := string(files["metadata"])
	assert.Contains(t, meta, "samplerate=1000000\n")
	assert.Contains(t, meta, "total analog=2\n")
	assert.Contains(t, meta, "analog1=CHAN1\n")
	assert.Contains(t, meta, "analog2=CHAN2\n")

	part := files["analog-1-1-1"]
	require.Len(t, part, 8)
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(part[0:])))
	assert.Equal(t, float32(-0.25), math.Float32frombits(binary.LittleEndian.Uint32(part[4:])))
	assert.Len(t, files["analog-1-2-1"], 4)
}

func TestWriteSigrok_SplitsParts(t *testing.T) {
	var buf bytes.Buffer
	values := make([]float64, PartSamples+3)

	require.NoError(t, WriteSigrok(&buf, 1, Trace{Name: "CHAN1", Values: values}))

	files := readZip(t, buf.Bytes())
	assert.Len(t, files["analog-1-1-1"], 4*PartSamples)
	assert.Len(t, files["analog-1-1-2"], 12)
	_, extra := files["analog-1-1-3"]
	assert.False(t, extra)
}

func TestWriteSigrok_NoTraces(t *testing.T) {
	assert.ErrorIs(t, WriteSigrok(io.Discard, 1), ErrNoTraces)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "capture.csv")

	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		return WriteCSV(w, cal, []float64{1})
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "time,value\n"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
