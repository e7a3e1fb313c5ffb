package service

import "errors"

var (
	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("hdscope: client is closed")
	// ErrNoScope indicates an instrument operation without a connected scope.
	ErrNoScope = errors.New("no instrument connected")
	// ErrBusy indicates the instrument is serving another acquisition.
	ErrBusy = errors.New("instrument busy")
	// ErrInvalidSampleCount indicates a sample count outside
	// 1..instrument.MaxRecordLength.
	ErrInvalidSampleCount = errors.New("invalid sample count")
)

// ErrInvalidWindow indicates a negative sample offset or limit.
var ErrInvalidWindow = errors.New("invalid sample window")
