package core

import (
	"context"
	"log"

	"RoverBridge/internal/model"
)

// SnapshotStore persists telemetry snapshots.
type SnapshotStore interface {
	Append(s model.TelemetrySnapshot) error
}

// Recorder keeps its own telemetry subscription and stores every received frame.
type Recorder struct {
	loop   *Loop
	client *TelemetryClient
	store  SnapshotStore
	saved  int
}

// NewRecorder creates a recorder for the robot status feed in cfg.
func NewRecorder(cfg *model.Config, store SnapshotStore, dial DialFunc) *Recorder {
	r := &Recorder{loop: NewLoop(SystemClock), store: store}
	cc := cfg.Console
	r.client = NewTelemetryClient(TelemetryConfig{
		URL:     cfg.Robot.StatusURL(),
		Dial:    dial,
		Clock:   r.loop.Clock(),
		Post:    r.loop.Post,
		Publish: r.record,
		Backoff: NewBackoff(model.Millis(cc.ReconnectFloorMs), model.Millis(cc.ReconnectCapMs), cc.ReconnectFactor),
	})
	return r
}

// Run records until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) {
	r.loop.Post(r.client.Connect)
	r.loop.Run(ctx)
	r.client.Shutdown()
	log.Printf("[recorder] stopped after %d snapshots", r.saved)
}

// Stop ends Run.
func (r *Recorder) Stop() { r.loop.Stop() }

func (r *Recorder) record(s *model.TelemetrySnapshot) {
	// nil means no data; "-" is the placeholder published on connect
	if s == nil || s.Mode == "-" {
		return
	}
	if err := r.store.Append(*s); err != nil {
		log.Printf("[recorder] store snapshot: %v", err)
		return
	}
	r.saved++
}
