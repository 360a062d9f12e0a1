package device

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	serial "go.bug.st/serial"
)

// SerialDevice implements Device on top of go.bug.st/serial.
type SerialDevice struct {
	mu      sync.Mutex
	port    serial.Port
	pending []byte
	dev     string
	baud    int
}

// NewSerialDevice opens dev at baud, 8N1.
func NewSerialDevice(dev string, baud int) (*SerialDevice, error) {
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", dev, err)
	}
	return &SerialDevice{port: p, dev: dev, baud: baud}, nil
}

// Path returns the device path.
func (s *SerialDevice) Path() string { return s.dev }

// Close closes the port. Closing twice is a no-op.
func (s *SerialDevice) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// ReadLine reads up to the next '\n'. Bytes after the newline are kept for the
// following call. The port read timeout bounds each Read, so no goroutine
// outlives the call.
func (s *SerialDevice) ReadLine(timeout time.Duration) (string, error) {
	s.mu.Lock()
	p := s.port
	s.mu.Unlock()
	if p == nil {
		return "", errors.New("serial port not open")
	}
	deadline := time.Now().Add(timeout)
	chunk := make([]byte, 64)
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := string(s.pending[:i+1])
			s.pending = s.pending[i+1:]
			return line, nil
		}
		wait := serial.NoTimeout
		if timeout > 0 {
			wait = time.Until(deadline)
			if wait <= 0 {
				return "", ErrTimeout
			}
		}
		if err := p.SetReadTimeout(wait); err != nil {
			return "", fmt.Errorf("set read timeout on %s: %w", s.dev, err)
		}
		n, err := p.Read(chunk)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", s.dev, err)
		}
		s.pending = append(s.pending, chunk[:n]...)
	}
}

// WriteLine writes line followed by '\n'.
func (s *SerialDevice) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return errors.New("serial port not open")
	}
	if _, err := s.port.Write(append([]byte(line), '\n')); err != nil {
		return fmt.Errorf("write %s: %w", s.dev, err)
	}
	return nil
}
