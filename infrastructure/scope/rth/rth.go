// Package rth drives Rohde & Schwarz RTH1002/RTH1004 handheld oscilloscopes.
package rth

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/waveform"
	"github.com/ul-gh/hdscope/infrastructure/scpi"
)

// DefaultPort is the raw socket port of RTH scopes.
const DefaultPort = 5025

// Scope is an RTH connected over a raw SCPI socket. A record is always
// transferred whole, so MaxChunk is 0.
type Scope struct {
	conn     *scpi.Conn
	channels int
}

// New wraps an open connection. channels is 2 or 4.
func New(conn *scpi.Conn, channels int) *Scope {
	if channels <= 0 || channels > instrument.MaxChannels {
		channels = instrument.MaxChannels
	}
	return &Scope{conn: conn, channels: channels}
}

// Identify implements instrument.Scope.
func (s *Scope) Identify(ctx context.Context) (instrument.Identity, error) {
	reply, err := s.conn.Query(ctx, "*IDN?")
	if err != nil {
		return instrument.Identity{}, err
	}
	return instrument.ParseIdentity(reply)
}

// Prepare switches the data format to little-endian int16 and waits for
// the running acquisition to complete.
func (s *Scope) Prepare(ctx context.Context, _ instrument.Channel) error {
	if err := s.conn.Write(ctx, "FORM INT,16;:FORM:BORD LSBF"); err != nil {
		return err
	}
	_, err := s.conn.Query(ctx, "*OPC?")
	return err
}

// Fetch reads the record of ch and returns the window [low, high]. A
// record shorter than high yields fewer samples.
func (s *Scope) Fetch(ctx context.Context, ch instrument.Channel, low, high int) ([]float64, error) {
	data, err := s.conn.QueryBinary(ctx, fmt.Sprintf("CHAN%d:DATA?", ch.Number()))
	if err != nil {
		return nil, err
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd int16 block of %d bytes", scpi.ErrMalformedReply, len(data))
	}
	total := len(data) / 2
	lo := min(max(low-1, 0), total)
	hi := min(high, total)
	out := make([]float64, 0, max(hi-lo, 0))
	for i := lo; i < hi; i++ {
		out = append(out, float64(int16(binary.LittleEndian.Uint16(data[2*i:]))))
	}
	return out, nil
}

// Running reports whether the acquisition state is RUN.
func (s *Scope) Running(ctx context.Context) (bool, error) {
	reply, err := s.conn.Query(ctx, "ACQ:STAT?")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(reply), "RUN"), nil
}

// Stop halts acquisition.
func (s *Scope) Stop(ctx context.Context) error {
	if err := s.conn.Write(ctx, "STOP"); err != nil {
		return err
	}
	_, err := s.conn.Query(ctx, "*OPC?")
	return err
}

// Run resumes continuous acquisition.
func (s *Scope) Run(ctx context.Context) error {
	return s.conn.Write(ctx, "RUN")
}

// Calibration derives the conversion of ch from its vertical scale,
// position (in divisions) and offset. The 16-bit range spans 8 divisions.
func (s *Scope) Calibration(ctx context.Context, ch instrument.Channel) (waveform.Calibration, error) {
	n := ch.Number()
	scale, err := s.conn.QueryFloat(ctx, fmt.Sprintf("CHAN%d:SCAL?", n))
	if err != nil {
		return waveform.Calibration{}, err
	}
	position, err := s.conn.QueryFloat(ctx, fmt.Sprintf("CHAN%d:POS?", n))
	if err != nil {
		return waveform.Calibration{}, err
	}
	offset, err := s.conn.QueryFloat(ctx, fmt.Sprintf("CHAN%d:OFFS?", n))
	if err != nil {
		return waveform.Calibration{}, err
	}
	rate, err := s.conn.QueryFloat(ctx, "ACQ:SRAT?")
	if err != nil {
		return waveform.Calibration{}, err
	}
	cal := waveform.Calibration{
		Gain:   scale * 8 / 65536,
		Offset: offset - position*scale,
	}
	if rate > 0 {
		cal.XIncrement = 1 / rate
	}
	return cal, nil
}

// MemoryDepth returns the record length in samples.
func (s *Scope) MemoryDepth(ctx context.Context) (instrument.MemoryDepth, error) {
	reply, err := s.conn.Query(ctx, "ACQ:POIN?")
	if err != nil {
		return 0, err
	}
	return instrument.ParseMemoryDepth(reply)
}

// SetMemoryDepth requests a minimum record length.
func (s *Scope) SetMemoryDepth(ctx context.Context, depth instrument.MemoryDepth) error {
	return s.conn.Write(ctx, fmt.Sprintf("ACQ:POIN %d", depth.Samples()))
}

// MaxChunk implements instrument.Scope.
func (s *Scope) MaxChunk() int { return 0 }

// Channels implements instrument.Scope.
func (s *Scope) Channels() int { return s.channels }

// Close closes the connection.
func (s *Scope) Close() error { return s.conn.Close() }
