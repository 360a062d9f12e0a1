package core

import (
	"context"
	"log"
	"time"

	"RoverBridge/internal/model"
)

// Heartbeat pings the robot at a fixed interval while a console is open.
type Heartbeat struct {
	clock    Clock
	sender   CommandSender
	interval time.Duration

	timer   Timer
	running bool
	fails   int
}

// NewHeartbeat creates a stopped pacer.
func NewHeartbeat(clock Clock, sender CommandSender, interval time.Duration) *Heartbeat {
	return &Heartbeat{clock: clock, sender: sender, interval: interval}
}

// Start sends one heartbeat immediately and then every interval.
func (h *Heartbeat) Start() {
	if h.running {
		return
	}
	h.running = true
	h.beat()
}

// Stop cancels the pacer.
func (h *Heartbeat) Stop() {
	h.running = false
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *Heartbeat) beat() {
	if err := h.sender.Send(context.Background(), model.HeartbeatCommand{}); err != nil {
		h.fails++
		// one line per outage, not per beat
		if h.fails == 1 {
			log.Printf("[heartbeat] send failed: %v", err)
		}
	} else if h.fails > 0 {
		log.Printf("[heartbeat] recovered after %d failures", h.fails)
		h.fails = 0
	}
	h.timer = h.clock.AfterFunc(h.interval, func() {
		h.timer = nil
		if h.running {
			h.beat()
		}
	})
}
