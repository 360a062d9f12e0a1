package core

import (
	"strconv"
	"testing"
	"time"
)

const testStream = "http://robot.local:8080/stream"

func newTestWatchdog() (*Watchdog, *fakeClock, *recordingSink) {
	clk := newFakeClock()
	sink := &recordingSink{}
	return NewWatchdog(clk, sink, testStream, 2*time.Second), clk, sink
}

func TestWatchdogReloadsOnceAfterRecovery(t *testing.T) {
	w, clk, sink := newTestWatchdog()
	w.Activate(nil)
	w.PlaceholderVisible(true)
	w.PlaceholderVisible(true)
	w.PlaceholderVisible(false)
	start := clk.Now()
	w.PlaceholderVisible(false)
	w.PlaceholderVisible(true)

	clk.Advance(1999 * time.Millisecond)
	if _, r := sink.snapshot(); len(r) != 0 {
		t.Fatalf("reloaded before settle delay: %v", r)
	}
	clk.Advance(time.Millisecond)
	_, reloads := sink.snapshot()
	if len(reloads) != 1 {
		t.Fatalf("reloads = %v, want 1", reloads)
	}
	want := testStream + "?r=" + strconv.FormatInt(start.Add(2*time.Second).UnixMilli(), 10)
	if reloads[0] != want {
		t.Fatalf("reload url = %q, want %q", reloads[0], want)
	}
	clk.Advance(time.Minute)
	if _, r := sink.snapshot(); len(r) != 1 {
		t.Fatalf("extra reloads: %v", r)
	}
}

func TestWatchdogRestartsSettleTimer(t *testing.T) {
	w, clk, sink := newTestWatchdog()
	w.Activate(nil)
	w.PlaceholderVisible(true)
	w.PlaceholderVisible(false)
	clk.Advance(1500 * time.Millisecond)
	w.PlaceholderVisible(true)
	w.PlaceholderVisible(false)
	clk.Advance(1999 * time.Millisecond)
	if _, r := sink.snapshot(); len(r) != 0 {
		t.Fatalf("reloaded early: %v", r)
	}
	clk.Advance(time.Millisecond)
	if _, r := sink.snapshot(); len(r) != 1 {
		t.Fatalf("reloads = %v, want 1", r)
	}
}

func TestWatchdogIgnoresSignalsWhileInactive(t *testing.T) {
	w, clk, sink := newTestWatchdog()
	w.PlaceholderVisible(true)
	w.PlaceholderVisible(false)
	clk.Advance(time.Minute)
	if _, r := sink.snapshot(); len(r) != 0 {
		t.Fatalf("inactive watchdog reloaded: %v", r)
	}
}

func TestWatchdogTeardownCancelsAndForgets(t *testing.T) {
	w, clk, sink := newTestWatchdog()
	w.Activate(nil)
	w.PlaceholderVisible(true)
	w.PlaceholderVisible(false)
	if !w.Pending() {
		t.Fatalf("reload not pending")
	}
	w.Deactivate()
	if w.Pending() || w.Active() {
		t.Fatalf("teardown left state behind")
	}
	clk.Advance(time.Minute)

	// with no baseline a lone false is not an edge
	w.Activate(nil)
	w.PlaceholderVisible(false)
	clk.Advance(time.Minute)
	if _, r := sink.snapshot(); len(r) != 0 {
		t.Fatalf("reloads after teardown: %v", r)
	}
}

func TestWatchdogSeededWithVisiblePlaceholder(t *testing.T) {
	w, clk, sink := newTestWatchdog()
	visible := true
	// placeholder shown while the stream was down, then telemetry reports it active
	w.Activate(&visible)
	w.PlaceholderVisible(false)
	clk.Advance(3 * time.Second)
	if _, r := sink.snapshot(); len(r) != 1 {
		t.Fatalf("reloads after recovery following activation = %v, want 1", r)
	}

	w.Deactivate()
	hidden := false
	w.Activate(&hidden)
	w.PlaceholderVisible(false)
	clk.Advance(3 * time.Second)
	if _, r := sink.snapshot(); len(r) != 1 {
		t.Fatalf("hidden baseline produced a reload: %v", r)
	}
}

func TestCacheBustKeepsExistingQuery(t *testing.T) {
	now := time.UnixMilli(1723300000123)
	if got := CacheBust("http://h/stream?a=1", now); got != "http://h/stream?a=1&r=1723300000123" {
		t.Fatalf("CacheBust = %q", got)
	}
}
