package instrument

import (
	"errors"
	"fmt"

	"github.com/ul-gh/hdscope/domain/chunk"
)

var (
	// ErrShortRead matches any ShortReadError.
	ErrShortRead = errors.New("short read")
	// ErrTransport matches any TransportError.
	ErrTransport = errors.New("transport failure")
	// ErrUnsupported indicates an operation the connected scope cannot do.
	ErrUnsupported = errors.New("unsupported by instrument")
)

// ShortReadError reports a chunk whose reply length differs from the
// requested interval.
type ShortReadError struct {
	Interval chunk.Interval
	Got      int
}

// Error implements error.
func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read: requested %d samples for %s, got %d", e.Interval.Len(), e.Interval, e.Got)
}

// Is reports whether target is ErrShortRead.
func (e *ShortReadError) Is(target error) bool { return target == ErrShortRead }

// TransportError wraps a communication fault on the instrument link.
type TransportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying fault.
func (e *TransportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// NewTransportError wraps err for op. Errors that already carry a
// TransportError are returned unchanged.
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

// ErrAutoMemoryDepth indicates the scope chooses its memory depth itself,
// so the record length cannot be queried.
var ErrAutoMemoryDepth = errors.New("memory depth is AUTO")
