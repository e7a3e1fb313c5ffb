// Package scpitest provides an in-memory SCPI instrument for driver tests.
package scpitest

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ul-gh/hdscope/infrastructure/scpi"
)

// Handler answers one command. A nil reply sends nothing back.
type Handler func(cmd string) []byte

// Instrument is a fake instrument on the far end of an in-memory pipe.
// Compound commands separated by ";" are split before dispatch, and each
// part keeps its leading ":".
type Instrument struct {
	mu       sync.Mutex
	commands []string
	handler  Handler
}

// New starts a fake instrument and returns a Conn connected to it. Both
// ends are closed when the test finishes.
func New(t *testing.T, handler Handler) (*Instrument, *scpi.Conn) {
	t.Helper()
	client, server := net.Pipe()
	inst := &Instrument{handler: handler}
	go inst.serve(server)
	conn := scpi.NewConn(client, scpi.WithTimeout(2*time.Second))
	t.Cleanup(func() {
		_ = conn.Close()
		_ = server.Close()
	})
	return inst, conn
}

// Commands returns every command received so far.
func (i *Instrument) Commands() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.commands...)
}

// Count returns how often cmd was received.
func (i *Instrument) Count(cmd string) int {
	n := 0
	for _, c := range i.Commands() {
		if c == cmd {
			n++
		}
	}
	return n
}

func (i *Instrument) serve(nc net.Conn) {
	rd := bufio.NewReader(nc)
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return
		}
		for _, cmd := range strings.Split(strings.TrimRight(line, "\r\n"), ";") {
			i.mu.Lock()
			i.commands = append(i.commands, cmd)
			i.mu.Unlock()
			if reply := i.handler(cmd); reply != nil {
				if _, err := nc.Write(reply); err != nil {
					return
				}
			}
		}
	}
}

// Line formats a text reply with its terminator.
func Line(format string, args ...any) []byte {
	return []byte(fmt.Sprintf(format, args...) + "\n")
}

// Block formats data as an IEEE 488.2 definite length block.
func Block(data []byte) []byte {
	size := fmt.Sprint(len(data))
	out := fmt.Appendf(nil, "#%d%s", len(size), size)
	out = append(out, data...)
	return append(out, '\n')
}
