package chunk

import (
	"errors"
	"fmt"
)

// ErrInvalidRange matches any InvalidRangeError via errors.Is.
var ErrInvalidRange = errors.New("invalid range")

// InvalidRangeError reports a chunk plan request whose bounds do not fit
// together: end before start, or a non-positive chunk size.
type InvalidRangeError struct {
	Start int
	End   int
	NEach int
}

// Error implements error.
func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: start=%d end=%d n_each=%d", e.Start, e.End, e.NEach)
}

// Is reports whether target is ErrInvalidRange.
func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}
