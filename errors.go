package hdscope

import (
	"errors"

	"github.com/ul-gh/hdscope/application/service"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/store"
)

// Exported errors for library consumers.
var (
	// ErrNotFound indicates a requested capture was not found.
	ErrNotFound = store.ErrNotFound

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = service.ErrClientClosed

	// ErrNoScope indicates an instrument operation without a connected scope.
	ErrNoScope = service.ErrNoScope

	// ErrBusy indicates the instrument is serving another request.
	ErrBusy = service.ErrBusy

	// ErrShortRead matches a chunk reply of the wrong length.
	ErrShortRead = instrument.ErrShortRead

	// ErrTransport matches any instrument I/O failure.
	ErrTransport = instrument.ErrTransport

	// ErrScopeConflict indicates both an injected scope and a resource were given.
	ErrScopeConflict = errors.New("hdscope: both WithScope and WithResource given")
)
