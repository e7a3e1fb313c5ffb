package instrument

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidMemoryDepth indicates an unparseable or non-positive depth.
var ErrInvalidMemoryDepth = errors.New("invalid memory depth")

// MemoryDepth is the number of samples per acquisition record.
type MemoryDepth int

// Selectable memory depths.
const (
	Depth24M  MemoryDepth = 24_000_000
	Depth12M  MemoryDepth = 12_000_000
	Depth6M   MemoryDepth = 6_000_000
	Depth3M   MemoryDepth = 3_000_000
	Depth2M   MemoryDepth = 2_000_000
	Depth1M   MemoryDepth = 1_000_000
	Depth500k MemoryDepth = 500_000
	Depth250k MemoryDepth = 250_000
	Depth125k MemoryDepth = 125_000
)

// MaxRecordLength is the longest record any supported scope holds.
const MaxRecordLength = int(Depth24M)

// MemoryDepths returns the selectable depths, largest first.
func MemoryDepths() []MemoryDepth {
	return []MemoryDepth{
		Depth24M, Depth12M, Depth6M, Depth3M, Depth2M,
		Depth1M, Depth500k, Depth250k, Depth125k,
	}
}

// ParseMemoryDepth accepts labels such as "12M", "500k" or plain sample
// counts such as "1200000" and "1.2e+06".
func ParseMemoryDepth(s string) (MemoryDepth, error) {
	raw := strings.TrimSpace(s)
	mult := 1.0
	switch {
	case strings.HasSuffix(raw, "M"):
		mult, raw = 1e6, strings.TrimSuffix(raw, "M")
	case strings.HasSuffix(raw, "k"), strings.HasSuffix(raw, "K"):
		mult, raw = 1e3, raw[:len(raw)-1]
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMemoryDepth, s)
	}
	v := math.Round(f * mult)
	if v < 1 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMemoryDepth, s)
	}
	return MemoryDepth(v), nil
}

// Samples returns the depth as a sample count.
func (d MemoryDepth) Samples() int { return int(d) }

// Standard reports whether d is one of the selectable depths.
func (d MemoryDepth) Standard() bool {
	for _, m := range MemoryDepths() {
		if m == d {
			return true
		}
	}
	return false
}

// String returns the short label, e.g. "12M" or "500k".
func (d MemoryDepth) String() string {
	switch {
	case d >= 1_000_000 && d%1_000_000 == 0:
		return strconv.Itoa(int(d/1_000_000)) + "M"
	case d >= 1_000 && d%1_000 == 0:
		return strconv.Itoa(int(d/1_000)) + "k"
	default:
		return strconv.Itoa(int(d))
	}
}
