package scpi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ul-gh/hdscope/domain/instrument"
)

// DefaultTimeout bounds every command round trip.
const DefaultTimeout = 10 * time.Second

// ErrMalformedReply indicates a reply that does not parse.
var ErrMalformedReply = errors.New("malformed reply")

const terminator = '\n'

// Option configures a Conn.
type Option func(*Conn)

// WithTimeout sets the per-operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for command tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.logger = l
		}
	}
}

// Conn is one SCPI session over a stream connection. Commands are
// newline terminated and serialised: one command is in flight at a time.
type Conn struct {
	mu      sync.Mutex
	nc      net.Conn
	rd      *bufio.Reader
	timeout time.Duration
	logger  *slog.Logger
}

// Dial opens a raw socket session to r.
func Dial(ctx context.Context, r Resource, opts ...Option) (*Conn, error) {
	if !r.Dialable() {
		return nil, fmt.Errorf("%w: %s (only raw SOCKET resources are supported)", ErrUnsupportedResource, r)
	}
	c := &Conn{timeout: DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	dialer := net.Dialer{Timeout: c.timeout}
	nc, err := dialer.DialContext(ctx, "tcp", r.Address())
	if err != nil {
		return nil, instrument.NewTransportError("dial "+r.Address(), err)
	}
	c.nc = nc
	c.rd = bufio.NewReaderSize(nc, 64*1024)
	c.logger.Debug("instrument connected", slog.String("resource", r.String()))
	return c, nil
}

// NewConn wraps an established stream.
func NewConn(nc net.Conn, opts ...Option) *Conn {
	c := &Conn{nc: nc, rd: bufio.NewReaderSize(nc, 64*1024), timeout: DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Write sends one command without waiting for a reply.
func (c *Conn) Write(ctx context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	done := c.arm(ctx)
	defer done()
	return c.send(cmd)
}

// Query sends cmd and returns the reply line without its terminator.
func (c *Conn) Query(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	done := c.arm(ctx)
	defer done()
	if err := c.send(cmd); err != nil {
		return "", err
	}
	line, err := c.rd.ReadString(terminator)
	if err != nil {
		return "", instrument.NewTransportError("read reply to "+cmd, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// QueryFloat sends cmd and parses the reply as a number.
func (c *Conn) QueryFloat(ctx context.Context, cmd string) (float64, error) {
	reply, err := c.Query(ctx, cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s -> %q", ErrMalformedReply, cmd, reply)
	}
	return v, nil
}

// QueryFloats sends cmd and parses a comma separated list of numbers.
func (c *Conn) QueryFloats(ctx context.Context, cmd string) ([]float64, error) {
	reply, err := c.Query(ctx, cmd)
	if err != nil {
		return nil, err
	}
	fields := strings.Split(reply, ",")
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s field %d -> %q", ErrMalformedReply, cmd, i, f)
		}
		out[i] = v
	}
	return out, nil
}

// QueryBinary sends cmd and reads an IEEE 488.2 definite length block
// "#<n><len><data>" followed by the terminator.
func (c *Conn) QueryBinary(ctx context.Context, cmd string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	done := c.arm(ctx)
	defer done()
	if err := c.send(cmd); err != nil {
		return nil, err
	}
	data, err := readBlock(c.rd)
	if err != nil {
		return nil, instrument.NewTransportError("read block for "+cmd, err)
	}
	c.logger.Debug("scpi block", slog.String("cmd", cmd), slog.Int("bytes", len(data)))
	return data, nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nc.Close()
}

func (c *Conn) send(cmd string) error {
	c.logger.Debug("scpi", slog.String("cmd", cmd))
	if _, err := io.WriteString(c.nc, cmd+string(terminator)); err != nil {
		return instrument.NewTransportError("write "+cmd, err)
	}
	return nil
}

// arm sets the I/O deadline for one operation and interrupts blocked I/O
// when ctx is cancelled. The returned func disarms both.
func (c *Conn) arm(ctx context.Context) func() {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.nc.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = c.nc.SetDeadline(time.Unix(1, 0))
	})
	return func() {
		stop()
		_ = c.nc.SetDeadline(time.Time{})
	}
}

func readBlock(rd *bufio.Reader) ([]byte, error) {
	hash, err := rd.ReadByte()
	if err != nil {
		return nil, err
	}
	if hash != '#' {
		return nil, fmt.Errorf("%w: block starts with %q, expected '#'", ErrMalformedReply, hash)
	}
	digits, err := rd.ReadByte()
	if err != nil {
		return nil, err
	}
	if digits < '1' || digits > '9' {
		return nil, fmt.Errorf("%w: block header digit count %q", ErrMalformedReply, digits)
	}
	header := make([]byte, int(digits-'0'))
	if _, err := io.ReadFull(rd, header); err != nil {
		return nil, err
	}
	size, err := strconv.Atoi(string(header))
	if err != nil || size < 0 {
		return nil, fmt.Errorf("%w: block length %q", ErrMalformedReply, header)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(rd, data); err != nil {
		return nil, err
	}
	if b, err := rd.Peek(1); err == nil && b[0] == terminator {
		_, _ = rd.ReadByte()
	}
	return data, nil
}
