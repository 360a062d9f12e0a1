// Package device abstracts the line-oriented link between the robot and its
// motor controller.
package device

import "time"

// Device is a line-based link (serial port, PTY, test double).
type Device interface {
	// ReadLine reads one line terminated by '\n'.
	// If timeout > 0 it returns after timeout even when no data arrived.
	ReadLine(timeout time.Duration) (string, error)

	// WriteLine writes s followed by '\n'.
	WriteLine(s string) error

	// Close releases the underlying resources.
	Close() error
}

// ErrTimeout is returned by ReadLine when the timeout elapses.
var ErrTimeout = errTimeout{}

type errTimeout struct{}

func (errTimeout) Error() string   { return "read timeout" }
func (errTimeout) Timeout() bool   { return true }
func (errTimeout) Temporary() bool { return true }
