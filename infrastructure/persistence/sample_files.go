package persistence

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ul-gh/hdscope/domain/capture"
)

const sampleSize = 4

// ErrCorruptSamples indicates a sample file whose size is not a whole
// number of samples or does not match the capture.
var ErrCorruptSamples = errors.New("corrupt sample file")

// SampleFiles implements capture.SampleStore with one little-endian
// float32 file per capture under <dir>/captures/<id>.f32.
type SampleFiles struct {
	dir string
}

// NewSampleFiles creates a SampleFiles rooted at dataDir.
func NewSampleFiles(dataDir string) SampleFiles {
	return SampleFiles{dir: filepath.Join(dataDir, "captures")}
}

// Dir returns the directory holding sample files.
func (f SampleFiles) Dir() string { return f.dir }

// Path returns the file location for a capture id.
func (f SampleFiles) Path(id int64) string {
	return filepath.Join(f.dir, strconv.FormatInt(id, 10)+".f32")
}

// Write stores samples and returns the file path. The file is written to a
// temporary name and renamed into place.
func (f SampleFiles) Write(ctx context.Context, c capture.Capture, samples []float64) (string, error) {
	if c.ID() == 0 {
		return "", errors.New("capture has no id")
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create sample directory: %w", err)
	}

	path := f.Path(c.ID())
	tmp, err := os.CreateTemp(f.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create sample file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := encodeSamples(ctx, tmp, samples); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return path, nil
}

// Read loads the samples of c.
func (f SampleFiles) Read(_ context.Context, c capture.Capture) ([]float64, error) {
	path := f.location(c)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	if len(data)%sampleSize != 0 {
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrCorruptSamples, path, len(data))
	}
	n := len(data) / sampleSize
	if c.Samples() > 0 && n != c.Samples() {
		return nil, fmt.Errorf("%w: %s holds %d samples, expected %d", ErrCorruptSamples, path, n, c.Samples())
	}
	out := make([]float64, n)
	for i := range out {
		bits := binary.LittleEndian.Uint32(data[i*sampleSize:])
		out[i] = float64(math.Float32frombits(bits))
	}
	return out, nil
}

// Remove deletes the sample file of c. A missing file is reported as
// an error wrapping fs.ErrNotExist.
func (f SampleFiles) Remove(_ context.Context, c capture.Capture) error {
	if err := os.Remove(f.location(c)); err != nil {
		return fmt.Errorf("remove samples: %w", err)
	}
	return nil
}

func (f SampleFiles) location(c capture.Capture) string {
	if c.DataPath() != "" {
		return c.DataPath()
	}
	return f.Path(c.ID())
}

func encodeSamples(ctx context.Context, w io.Writer, samples []float64) error {
	bw := bufio.NewWriterSize(w, 1<<16)
	var word [sampleSize]byte
	for i, v := range samples {
		if i%(1<<16) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		binary.LittleEndian.PutUint32(word[:], math.Float32bits(float32(v)))
		if _, err := bw.Write(word[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
