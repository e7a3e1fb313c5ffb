// Package scpi talks SCPI to instruments over a raw TCP socket.
package scpi

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrUnsupportedResource indicates a VISA resource this package cannot dial.
var ErrUnsupportedResource = errors.New("unsupported VISA resource")

// Kind is the VISA resource class.
type Kind string

// Resource kinds.
const (
	KindSocket Kind = "SOCKET"
	KindInstr  Kind = "INSTR"
)

// DefaultSocketPort is used for "host" or "TCPIP::host::SOCKET" without a port.
const DefaultSocketPort = 5555

// Resource is a parsed VISA TCPIP resource string.
type Resource struct {
	host      string
	port      int
	kind      Kind
	defaulted bool
}

// ParseResource parses "TCPIP0::192.168.1.5::5555::SOCKET",
// "TCPIP::host::INSTR", "host:port" or a bare host name.
func ParseResource(s string) (Resource, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Resource{}, fmt.Errorf("%w: empty", ErrUnsupportedResource)
	}
	if !strings.Contains(s, "::") {
		return parseAddress(s)
	}

	parts := strings.Split(s, "::")
	if !strings.HasPrefix(strings.ToUpper(parts[0]), "TCPIP") {
		return Resource{}, fmt.Errorf("%w: %q", ErrUnsupportedResource, s)
	}
	switch len(parts) {
	case 3:
		kind := Kind(strings.ToUpper(parts[2]))
		if kind == KindSocket {
			return Resource{host: parts[1], port: DefaultSocketPort, kind: kind, defaulted: true}, nil
		}
		if kind == KindInstr {
			return Resource{host: parts[1], kind: kind}, nil
		}
	case 4:
		if Kind(strings.ToUpper(parts[3])) == KindSocket {
			port, err := strconv.Atoi(parts[2])
			if err != nil || port <= 0 || port > 65535 {
				return Resource{}, fmt.Errorf("%w: bad port in %q", ErrUnsupportedResource, s)
			}
			return Resource{host: parts[1], port: port, kind: KindSocket}, nil
		}
		if Kind(strings.ToUpper(parts[3])) == KindInstr {
			return Resource{host: parts[1], kind: KindInstr}, nil
		}
	}
	return Resource{}, fmt.Errorf("%w: %q", ErrUnsupportedResource, s)
}

func parseAddress(s string) (Resource, error) {
	host, portText, err := net.SplitHostPort(s)
	if err != nil {
		return Resource{host: s, port: DefaultSocketPort, kind: KindSocket, defaulted: true}, nil
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port <= 0 || port > 65535 {
		return Resource{}, fmt.Errorf("%w: bad port in %q", ErrUnsupportedResource, s)
	}
	return Resource{host: host, port: port, kind: KindSocket}, nil
}

// Host returns the instrument host.
func (r Resource) Host() string { return r.host }

// Port returns the socket port, 0 for INSTR resources.
func (r Resource) Port() int { return r.port }

// PortDefaulted reports whether the port was not given explicitly.
func (r Resource) PortDefaulted() bool { return r.defaulted }

// Kind returns the resource class.
func (r Resource) Kind() Kind { return r.kind }

// Dialable reports whether the resource can be opened as a raw socket.
func (r Resource) Dialable() bool { return r.kind == KindSocket }

// Address returns "host:port".
func (r Resource) Address() string {
	return net.JoinHostPort(r.host, strconv.Itoa(r.port))
}

// WithPort returns a copy using port.
func (r Resource) WithPort(port int) Resource {
	r.port = port
	r.defaulted = false
	return r
}

// String renders the VISA form.
func (r Resource) String() string {
	if r.kind == KindInstr {
		return fmt.Sprintf("TCPIP0::%s::INSTR", r.host)
	}
	return fmt.Sprintf("TCPIP0::%s::%d::SOCKET", r.host, r.port)
}
