package environment

import (
	"errors"
	"net"
)

// ErrTransportTimeout is reported when a call to the simulator does not
// complete before its deadline
var ErrTransportTimeout = errors.New("transport timeout")

// TransportError implements errors in communicating with the simulator.
// Any TransportError means the connection should be re-established.
type TransportError struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a TransportError for operation op.
// Network timeouts are reported as ErrTransportTimeout.
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		err = ErrTransportTimeout
	}
	return &TransportError{Op: op, Err: err}
}

// IsTransport returns whether err reports a failure to communicate
// with the simulator
func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t) || errors.Is(err, ErrTransportTimeout)
}

// IsTimeout returns whether err reports a simulator call timing out
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTransportTimeout)
}
