package proto

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

var (
	// ErrConnectionClosed reports that the peer went away, cleanly or not,
	// before a message boundary was reached.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrMessageTooLarge is returned when a payload does not fit the 32-bit
	// length header, or exceeds a configured read cap.
	ErrMessageTooLarge = errors.New("message too large")
)

// TransportError is any socket-level failure other than the peer closing.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type closedError struct {
	op    string
	cause error
}

func (e *closedError) Error() string {
	return fmt.Sprintf("%s: connection closed: %v", e.op, e.cause)
}

func (e *closedError) Is(target error) bool {
	return target == ErrConnectionClosed
}

func (e *closedError) Unwrap() error {
	return e.cause
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE)
}

// wrapIOError maps a raw I/O error onto ErrConnectionClosed or *TransportError.
func wrapIOError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnectionClosed) || errors.Is(err, ErrMessageTooLarge) {
		return err
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	if isClosed(err) {
		return &closedError{op: op, cause: err}
	}
	return &TransportError{Op: op, Err: err}
}
