package export

import (
	"archive/zip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// PartSamples is the maximum number of samples per analog part file.
const PartSamples = 0x280000

// ErrNoTraces indicates a sigrok export without any channel data.
var ErrNoTraces = errors.New("no traces to export")

// Trace is one analog channel of a sigrok session.
type Trace struct {
	Name   string
	Values []float64
}

// WriteSigrok writes a sigrok v2 session archive (.sr) holding the traces
// as analog float32 channels sampled at sampleRate.
func WriteSigrok(w io.Writer, sampleRate float64, traces ...Trace) error {
	if len(traces) == 0 {
		return ErrNoTraces
	}
	zw := zip.NewWriter(w)

	if err := writeEntry(zw, "version", "2\n"); err != nil {
		return err
	}

	var meta strings.Builder
	meta.WriteString("[global]\nsigrok version=0.5.2\n\n[device 1]\n")
	fmt.Fprintf(&meta, "samplerate=%d\n", uint64(math.Round(sampleRate)))
	fmt.Fprintf(&meta, "total analog=%d\n", len(traces))
	for i, tr := range traces {
		fmt.Fprintf(&meta, "analog%d=%s\n", i+1, tr.Name)
	}
	if err := writeEntry(zw, "metadata", meta.String()); err != nil {
		return err
	}

	for i, tr := range traces {
		if err := writeAnalog(zw, i+1, tr.Values); err != nil {
			return fmt.Errorf("write analog %s: %w", tr.Name, err)
		}
	}
	return zw.Close()
}

func writeEntry(zw *zip.Writer, name, contents string) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.WriteString(f, contents); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// writeAnalog splits values into parts named analog-1-<channel>-<part>.
func writeAnalog(zw *zip.Writer, channel int, values []float64) error {
	buf := make([]byte, 4*min(len(values), PartSamples))
	for part := 1; len(values) > 0 || part == 1; part++ {
		n := min(len(values), PartSamples)
		f, err := zw.Create(fmt.Sprintf("analog-1-%d-%d", channel, part))
		if err != nil {
			return err
		}
		for i, v := range values[:n] {
			binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
		}
		if _, err := f.Write(buf[:4*n]); err != nil {
			return err
		}
		values = values[n:]
	}
	return nil
}
