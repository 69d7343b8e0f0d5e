package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ErrInvalidSize is returned for a negative transfer size. It is a caller
// bug, not a connection failure.
var ErrInvalidSize = errors.New("transport: invalid transfer size")

// ConnectionError means the peer went away: it closed the stream, or the
// stream was closed locally.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("transport: %s: connection closed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransportError is any other socket failure. Code is the platform error
// number when there is one, and zero otherwise.
type TransportError struct {
	Op   string
	Code int
	Err  error
}

func (e *TransportError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("transport: %s: %v (code %d)", e.Op, e.Err, e.Code)
	}

	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classify sorts a socket error into one of the two failure kinds.
func classify(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return &ConnectionError{Op: op, Err: err}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &TransportError{Op: op, Code: int(errno), Err: err}
	}

	return &TransportError{Op: op, Err: err}
}

// IsConnectionError reports whether err means the peer is gone.
func IsConnectionError(err error) bool {
	var cerr *ConnectionError
	return errors.As(err, &cerr)
}
