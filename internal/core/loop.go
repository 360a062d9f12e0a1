package core

import (
	"context"
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks and tells the time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock backed by time.AfterFunc.
var SystemClock Clock = systemClock{}

// Loop runs every component callback of one console on a single goroutine.
// Timers created through Loop.Clock fire on that goroutine, and I/O goroutines
// hand their results back with Post.
type Loop struct {
	base   Clock
	events chan func()
	done   chan struct{}
	once   sync.Once
}

// NewLoop creates a loop whose timers are driven by base.
func NewLoop(base Clock) *Loop {
	if base == nil {
		base = SystemClock
	}
	return &Loop{
		base:   base,
		events: make(chan func(), 256),
		done:   make(chan struct{}),
	}
}

// Post queues fn for execution on the loop. It returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() { fn(); close(finished) }) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Run executes queued callbacks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.done:
			return
		case fn := <-l.events:
			fn()
		}
	}
}

// Stop ends Run. Queued callbacks are dropped.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Clock returns a clock whose callbacks run on the loop.
func (l *Loop) Clock() Clock { return loopClock{l} }

type loopClock struct{ l *Loop }

func (c loopClock) Now() time.Time { return c.l.base.Now() }

func (c loopClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.inner = c.l.base.AfterFunc(d, func() {
		c.l.Post(func() {
			if t.stopped {
				return
			}
			t.stopped = true
			f()
		})
	})
	return t
}

// loopTimer is only touched from the loop goroutine, so a timer that already
// fired but whose callback is still queued can still be cancelled.
type loopTimer struct {
	inner   Timer
	stopped bool
}

func (t *loopTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	t.inner.Stop()
	return true
}
