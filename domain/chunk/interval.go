// Package chunk partitions sample index ranges into bounded-size transfer
// chunks.
package chunk

import "fmt"

// Interval is a closed range of sample indices. Immutable value object.
type Interval struct {
	low  int
	high int
}

// NewInterval creates an Interval covering [low, high].
func NewInterval(low, high int) (Interval, error) {
	if high < low {
		return Interval{}, &InvalidRangeError{Start: low, End: high, NEach: 1}
	}
	return Interval{low: low, high: high}, nil
}

// Low returns the first index of the interval.
func (i Interval) Low() int { return i.low }

// High returns the last index of the interval.
func (i Interval) High() int { return i.high }

// Len returns the number of indices covered.
func (i Interval) Len() int { return i.high - i.low + 1 }

// Contains reports whether idx lies inside the interval.
func (i Interval) Contains(idx int) bool {
	return idx >= i.low && idx <= i.high
}

// String returns the interval as "(low, high)".
func (i Interval) String() string {
	return fmt.Sprintf("(%d, %d)", i.low, i.high)
}
