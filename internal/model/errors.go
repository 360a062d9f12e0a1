package model

import (
	"errors"
	"fmt"
)

// ErrBadRequest marks input rejected before any network I/O.
var ErrBadRequest = errors.New("bad request")

// ErrConnectionLost is reported when the telemetry connection closes or fails.
var ErrConnectionLost = errors.New("connection lost")

// TransportError wraps a socket construction or send failure.
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError wraps a malformed telemetry frame.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	in := e.Input
	if len(in) > 64 {
		in = in[:64] + "..."
	}
	return fmt.Sprintf("parse %q: %v", in, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
