package core

import (
	"context"
	"log"
	"math"
	"strings"
	"time"

	"RoverBridge/internal/model"
)

// Point is a pointer position in client coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PadBox is the content box of the joystick pad in client coordinates.
type PadBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// JoystickState is the sampler's view of the stick.
type JoystickState struct {
	VX            int
	VY            int
	Dragging      bool
	ButtonLatched bool
	CenterPending bool
}

// Sampler tracks the joystick pad and re-sends the stick vector on a fixed period
// while the robot is in MANUAL mode. It must only be driven from one goroutine.
type Sampler struct {
	clock    Clock
	sender   CommandSender
	interval time.Duration

	manual  bool
	pad     PadBox
	state   JoystickState
	ticker  Timer
	running bool
}

// NewSampler creates an idle sampler. Call Start to begin periodic sending.
func NewSampler(clock Clock, sender CommandSender, interval time.Duration) *Sampler {
	return &Sampler{clock: clock, sender: sender, interval: interval}
}

// Start arms the periodic tick.
func (s *Sampler) Start() {
	if s.running {
		return
	}
	s.running = true
	s.arm()
}

// Stop cancels the periodic tick.
func (s *Sampler) Stop() {
	s.running = false
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Sampler) arm() {
	s.ticker = s.clock.AfterFunc(s.interval, func() {
		s.ticker = nil
		s.Tick()
		if s.running {
			s.arm()
		}
	})
}

// SetMode follows the robot mode. Leaving MANUAL recentres the stick and silences the sampler.
func (s *Sampler) SetMode(mode string) {
	manual := strings.EqualFold(strings.TrimSpace(mode), string(model.ModeManual))
	if manual == s.manual {
		return
	}
	s.manual = manual
	if !manual {
		s.state = JoystickState{}
	}
	log.Printf("[sampler] manual=%v", manual)
}

// Manual reports whether the sampler is enabled.
func (s *Sampler) Manual() bool { return s.manual }

// State returns a copy of the stick state.
func (s *Sampler) State() JoystickState { return s.state }

// Press starts a drag at p. The pad box is re-measured on every press.
func (s *Sampler) Press(p Point, pad PadBox) {
	if !s.manual {
		return
	}
	s.pad = pad
	s.state.Dragging = true
	s.updateVector(p)
}

// Move updates the vector while dragging.
func (s *Sampler) Move(p Point) {
	if !s.state.Dragging {
		return
	}
	s.updateVector(p)
}

// Release ends the drag and queues exactly one zero vector for the next tick.
func (s *Sampler) Release() {
	s.state.Dragging = false
	s.state.VX, s.state.VY = 0, 0
	s.state.CenterPending = true
}

// LatchButton marks the button for the next periodic send.
func (s *Sampler) LatchButton() {
	if !s.manual {
		return
	}
	s.state.ButtonLatched = true
}

// CaptureButton sends the current vector with the button set, without waiting for a tick.
// A latched press is consumed by it, so the robot captures once.
func (s *Sampler) CaptureButton() {
	if !s.manual {
		return
	}
	s.send(model.JoystickCommand{X: s.state.VX, Y: s.state.VY, Button: true})
	s.state.ButtonLatched = false
}

// Tick sends the current vector if a drag is active or a recentre is pending.
func (s *Sampler) Tick() {
	if !s.manual {
		return
	}
	if !s.state.Dragging && !s.state.CenterPending {
		return
	}
	s.send(model.JoystickCommand{X: s.state.VX, Y: s.state.VY, Button: s.state.ButtonLatched})
	s.state.CenterPending = false
	s.state.ButtonLatched = false
}

func (s *Sampler) send(cmd model.JoystickCommand) {
	if err := s.sender.Send(context.Background(), cmd); err != nil {
		log.Printf("[sampler] send failed: %v", err)
	}
}

func (s *Sampler) updateVector(p Point) {
	s.state.VX = quantize(p.X, s.pad.Left, s.pad.Width)
	s.state.VY = quantize(p.Y, s.pad.Top, s.pad.Height)
}

// quantize maps v within [origin, origin+size] onto [-100, 100], rounding half up.
func quantize(v, origin, size float64) int {
	half := size / 2
	if half <= 0 {
		return 0
	}
	r := (v - (origin + half)) / half
	r = math.Max(-1, math.Min(1, r))
	return int(math.Floor(r*100 + 0.5))
}
