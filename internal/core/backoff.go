package core

import (
	"math"
	"time"
)

// Backoff produces reconnect delays: floor, then floor(prev*factor) in whole
// milliseconds, never above cap.
type Backoff struct {
	Floor  time.Duration
	Cap    time.Duration
	Factor float64

	next time.Duration
}

// NewBackoff creates a backoff starting at floor.
func NewBackoff(floor, ceiling time.Duration, factor float64) *Backoff {
	return &Backoff{Floor: floor, Cap: ceiling, Factor: factor}
}

// Peek returns the delay the next call to Next will return.
func (b *Backoff) Peek() time.Duration {
	if b.next == 0 {
		return b.Floor
	}
	return b.next
}

// Next returns the current delay and advances.
func (b *Backoff) Next() time.Duration {
	d := b.Peek()
	ms := math.Floor(float64(d.Milliseconds()) * b.Factor)
	n := time.Duration(ms) * time.Millisecond
	if n > b.Cap {
		n = b.Cap
	}
	b.next = n
	return d
}

// Reset returns the delay to its floor.
func (b *Backoff) Reset() { b.next = 0 }
