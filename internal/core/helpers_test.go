package core

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"RoverBridge/internal/model"

	"github.com/gorilla/websocket"
)

// fakeClock fires timers synchronously from Advance.
type fakeClock struct {
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	at   time.Time
	d    time.Duration
	seq  int
	f    func()
	done bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.seq++
	t := &fakeTimer{at: c.now.Add(d), d: d, seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	end := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.done || t.at.After(end) {
				continue
			}
			if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			break
		}
		next.done = true
		c.now = next.at
		next.f()
	}
	c.now = end
}

func (c *fakeClock) pending() []*fakeTimer {
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.done {
			out = append(out, t)
		}
	}
	return out
}

type recordingSender struct {
	mu   sync.Mutex
	cmds []model.Command
	err  error
}

func (s *recordingSender) Send(_ context.Context, cmd model.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, cmd)
	return s.err
}

func (s *recordingSender) joysticks() []model.JoystickCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.JoystickCommand
	for _, c := range s.cmds {
		if j, ok := c.(model.JoystickCommand); ok {
			out = append(out, j)
		}
	}
	return out
}

func (s *recordingSender) count(kind model.CommandKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.cmds {
		if c.Kind() == kind {
			n++
		}
	}
	return n
}

type recordingSink struct {
	mu      sync.Mutex
	renders []*model.TelemetrySnapshot
	reloads []string
}

func (s *recordingSink) Render(snap *model.TelemetrySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders = append(s.renders, snap)
}

func (s *recordingSink) Reload(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloads = append(s.reloads, u)
}

func (s *recordingSink) snapshot() ([]*model.TelemetrySnapshot, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.TelemetrySnapshot(nil), s.renders...), append([]string(nil), s.reloads...)
}

// inbox stands in for a Loop: posted callbacks run when the test asks.
type inbox chan func()

func (in inbox) post(f func()) bool {
	in <- f
	return true
}

func (in inbox) runNext(t *testing.T) {
	t.Helper()
	select {
	case f := <-in:
		f()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a posted event")
	}
}

type fakeConn struct {
	frames chan string
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan string, 8), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, []byte(f), nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
