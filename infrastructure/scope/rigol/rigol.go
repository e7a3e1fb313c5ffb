// Package rigol drives Rigol DS1000Z series oscilloscopes.
package rigol

import (
	"context"
	"fmt"
	"strings"

	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/waveform"
	"github.com/ul-gh/hdscope/infrastructure/scpi"
)

// MaxChunk is the largest sample window served by one :WAV:DATA? query.
const MaxChunk = 750_000

// DefaultPort is the raw socket port of DS1000Z scopes.
const DefaultPort = 5555

// Scope is a DS1000Z connected over a raw SCPI socket.
type Scope struct {
	conn     *scpi.Conn
	channels int
}

// New wraps an open connection. channels is the number of analog inputs.
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

// Prepare selects ch as waveform source in raw byte mode, so the whole
// acquisition memory is addressable.
func (s *Scope) Prepare(ctx context.Context, ch instrument.Channel) error {
	return s.conn.Write(ctx, fmt.Sprintf(":WAV:SOUR %s;:WAV:MODE RAW;:WAV:FORM BYTE", ch))
}

// Fetch reads the 1-based inclusive window [low, high] of the prepared source.
func (s *Scope) Fetch(ctx context.Context, _ instrument.Channel, low, high int) ([]float64, error) {
	if err := s.conn.Write(ctx, fmt.Sprintf(":WAV:STAR %d;:WAV:STOP %d", low, high)); err != nil {
		return nil, err
	}
	data, err := s.conn.QueryBinary(ctx, ":WAV:DATA?")
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(data))
	for i, b := range data {
		out[i] = float64(b)
	}
	return out, nil
}

// Running reports whether the trigger system is not stopped.
func (s *Scope) Running(ctx context.Context) (bool, error) {
	reply, err := s.conn.Query(ctx, ":TRIG:STAT?")
	if err != nil {
		return false, err
	}
	return !strings.EqualFold(strings.TrimSpace(reply), "STOP"), nil
}

// Stop halts acquisition and waits until the scope has settled.
func (s *Scope) Stop(ctx context.Context) error {
	if err := s.conn.Write(ctx, ":STOP"); err != nil {
		return err
	}
	_, err := s.conn.Query(ctx, "*OPC?")
	return err
}

// Run resumes acquisition.
func (s *Scope) Run(ctx context.Context) error {
	return s.conn.Write(ctx, ":RUN")
}

// Calibration reads the waveform preamble of ch. The reply is
// format,type,points,count,xinc,xorigin,xref,yinc,yorigin,yref and a
// sample code b maps to (b - yorigin - yref) * yinc.
func (s *Scope) Calibration(ctx context.Context, ch instrument.Channel) (waveform.Calibration, error) {
	if err := s.conn.Write(ctx, ":WAV:SOUR "+ch.String()); err != nil {
		return waveform.Calibration{}, err
	}
	pre, err := s.conn.QueryFloats(ctx, ":WAV:PRE?")
	if err != nil {
		return waveform.Calibration{}, err
	}
	if len(pre) != 10 {
		return waveform.Calibration{}, fmt.Errorf("%w: preamble has %d fields", scpi.ErrMalformedReply, len(pre))
	}
	xinc, xorigin, xref := pre[4], pre[5], pre[6]
	yinc, yorigin, yref := pre[7], pre[8], pre[9]
	return waveform.Calibration{
		Gain:       yinc,
		Offset:     -(yorigin + yref) * yinc,
		XIncrement: xinc,
		XOrigin:    xorigin - xref*xinc,
	}, nil
}

// MemoryDepth returns the current record length.
func (s *Scope) MemoryDepth(ctx context.Context) (instrument.MemoryDepth, error) {
	reply, err := s.conn.Query(ctx, ":ACQ:MDEP?")
	if err != nil {
		return 0, err
	}
	if strings.EqualFold(strings.TrimSpace(reply), "AUTO") {
		return 0, instrument.ErrAutoMemoryDepth
	}
	return instrument.ParseMemoryDepth(reply)
}

// SetMemoryDepth sets the record length. The scope only accepts this
// while running.
func (s *Scope) SetMemoryDepth(ctx context.Context, depth instrument.MemoryDepth) error {
	return s.conn.Write(ctx, fmt.Sprintf(":ACQ:MDEP %d", depth.Samples()))
}

// MaxChunk implements instrument.Scope.
func (s *Scope) MaxChunk() int { return MaxChunk }

// Channels implements instrument.Scope.
func (s *Scope) Channels() int { return s.channels }

// Close closes the connection.
func (s *Scope) Close() error { return s.conn.Close() }
