package core

import (
	"log"
	"strconv"
	"strings"
	"time"
)

// Reloader forces the live stream resource to be fetched again.
type Reloader interface {
	Reload(url string)
}

// Watchdog reloads the video stream once it recovers from a stall. The UI pushes
// the visibility of its "no stream" placeholder; a visible -> hidden edge arms a
// settle timer, and when it expires the stream is reloaded with a cache-busting
// token. The watchdog only observes while telemetry reports the stream as active.
type Watchdog struct {
	clock     Clock
	sink      Reloader
	streamURL string
	settle    time.Duration

	active  bool
	last    *bool
	pending Timer
}

// NewWatchdog creates an inactive watchdog for streamURL.
func NewWatchdog(clock Clock, sink Reloader, streamURL string, settle time.Duration) *Watchdog {
	return &Watchdog{clock: clock, sink: sink, streamURL: streamURL, settle: settle}
}

// Activate starts observing placeholder signals. current is the placeholder
// state the UI last reported, or nil if it has reported none; it is the
// baseline the next signal is compared against.
func (w *Watchdog) Activate(current *bool) {
	if w.active {
		return
	}
	w.active = true
	if current != nil {
		v := *current
		w.last = &v
	}
	log.Printf("[watchdog] observing %s", w.streamURL)
}

// Deactivate stops observing, forgets the last signal and cancels a pending reload.
func (w *Watchdog) Deactivate() {
	if !w.active {
		return
	}
	w.active = false
	w.last = nil
	w.cancel()
	log.Printf("[watchdog] stopped")
}

// Active reports whether signals are being observed.
func (w *Watchdog) Active() bool { return w.active }

// Pending reports whether a reload is scheduled.
func (w *Watchdog) Pending() bool { return w.pending != nil }

// PlaceholderVisible records the placeholder state. Visible means the stream is
// failing or loading.
func (w *Watchdog) PlaceholderVisible(visible bool) {
	if !w.active {
		return
	}
	prev := w.last
	w.last = &visible
	if prev != nil && *prev && !visible {
		w.schedule()
	}
}

// schedule restarts the settle timer so quick successive recoveries reload once.
func (w *Watchdog) schedule() {
	w.cancel()
	w.pending = w.clock.AfterFunc(w.settle, func() {
		w.pending = nil
		u := CacheBust(w.streamURL, w.clock.Now())
		log.Printf("[watchdog] reloading %s", u)
		w.sink.Reload(u)
	})
}

func (w *Watchdog) cancel() {
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}

// CacheBust appends r=<unix ms> to u.
func CacheBust(u string, now time.Time) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "r=" + strconv.FormatInt(now.UnixMilli(), 10)
}
