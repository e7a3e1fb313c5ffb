// Package instrument defines the oscilloscope abstractions used by the
// acquisition services: channels, transports, scopes and their errors.
package instrument

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidChannel indicates a channel outside the supported range.
var ErrInvalidChannel = errors.New("invalid channel")

// MaxChannels is the highest analog channel number any supported scope has.
const MaxChannels = 4

// Channel is a 1-based analog input channel.
type Channel int

// ParseChannel accepts "CHAN2", "CH2", "chan2" or "2".
func ParseChannel(s string) (Channel, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	raw = strings.TrimPrefix(raw, "CHAN")
	raw = strings.TrimPrefix(raw, "CH")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChannel, s)
	}
	ch := Channel(n)
	if !ch.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChannel, s)
	}
	return ch, nil
}

// Valid reports whether the channel is in 1..MaxChannels.
func (c Channel) Valid() bool { return c >= 1 && c <= MaxChannels }

// Number returns the channel number.
func (c Channel) Number() int { return int(c) }

// String returns the SCPI mnemonic, e.g. "CHAN2".
func (c Channel) String() string { return "CHAN" + strconv.Itoa(int(c)) }
