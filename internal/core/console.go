package core

import (
	"context"
	"log"

	"RoverBridge/internal/model"

	"github.com/google/uuid"
)

// Sink receives the console's display side effects.
type Sink interface {
	// Render is called with every telemetry snapshot, or nil when there is no data.
	Render(s *model.TelemetrySnapshot)
	// Reload asks the UI to fetch the stream resource at url.
	Reload(url string)
}

// Console is one operator session: the joystick sampler, the heartbeat pacer,
// the telemetry client and the stream watchdog, all driven from a single Loop.
// Its exported methods are safe to call from any goroutine.
type Console struct {
	ID string

	loop      *Loop
	sink      Sink
	sampler   *Sampler
	heartbeat *Heartbeat
	telemetry *TelemetryClient
	watchdog  *Watchdog

	// last placeholder visibility pushed by the UI, kept while the watchdog is idle
	placeholder *bool
}

// NewConsole wires the session components. sender receives joystick and heartbeat
// commands; dial opens the telemetry connection (nil uses DialWebsocket).
func NewConsole(cfg *model.Config, sender CommandSender, sink Sink, dial DialFunc, base Clock) *Console {
	loop := NewLoop(base)
	clock := loop.Clock()
	cc := cfg.Console
	c := &Console{
		ID:        uuid.NewString(),
		loop:      loop,
		sink:      sink,
		sampler:   NewSampler(clock, sender, model.Millis(cc.JoystickIntervalMs)),
		heartbeat: NewHeartbeat(clock, sender, model.Millis(cc.HeartbeatIntervalMs)),
		watchdog:  NewWatchdog(clock, sink, cfg.Robot.StreamURL(), model.Millis(cc.WatchdogSettleMs)),
	}
	c.telemetry = NewTelemetryClient(TelemetryConfig{
		URL:     cfg.Robot.StatusURL(),
		Dial:    dial,
		Clock:   clock,
		Post:    loop.Post,
		Publish: c.onSnapshot,
		Backoff: NewBackoff(model.Millis(cc.ReconnectFloorMs), model.Millis(cc.ReconnectCapMs), cc.ReconnectFactor),
	})
	return c
}

// Run starts the components and processes events until ctx is cancelled.
func (c *Console) Run(ctx context.Context) {
	c.loop.Post(func() {
		log.Printf("[console %s] started", c.ID)
		c.sampler.Start()
		c.heartbeat.Start()
		c.telemetry.Connect()
	})
	c.loop.Run(ctx)
	// the loop goroutine has exited, so component state is ours again
	c.telemetry.Shutdown()
	c.watchdog.Deactivate()
	c.heartbeat.Stop()
	c.sampler.Stop()
	log.Printf("[console %s] stopped", c.ID)
}

// Stop ends Run.
func (c *Console) Stop() { c.loop.Stop() }

// onSnapshot fans a telemetry snapshot out to the sampler, the watchdog and the sink.
func (c *Console) onSnapshot(s *model.TelemetrySnapshot) {
	if s != nil {
		if s.Mode != "" {
			c.sampler.SetMode(s.Mode)
		}
		if s.Stream != nil {
			if *s.Stream {
				c.watchdog.Activate(c.placeholder)
			} else {
				c.watchdog.Deactivate()
			}
		}
	}
	c.sink.Render(s)
}

func (c *Console) Press(p Point, pad PadBox) { c.loop.Post(func() { c.sampler.Press(p, pad) }) }

func (c *Console) Move(p Point) { c.loop.Post(func() { c.sampler.Move(p) }) }

func (c *Console) Release() { c.loop.Post(c.sampler.Release) }

func (c *Console) CaptureButton() { c.loop.Post(c.sampler.CaptureButton) }

func (c *Console) LatchButton() { c.loop.Post(c.sampler.LatchButton) }

// PlaceholderVisible forwards the stream placeholder visibility to the watchdog.
func (c *Console) PlaceholderVisible(v bool) {
	c.loop.Post(func() {
		c.placeholder = &v
		c.watchdog.PlaceholderVisible(v)
	})
}

// Joystick returns the current stick state.
func (c *Console) Joystick() (JoystickState, bool) {
	var st JoystickState
	ok := c.loop.Call(func() { st = c.sampler.State() })
	return st, ok
}
