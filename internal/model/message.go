// Package model defines the shared message structures of the rover bridge:
// the operator commands sent to the robot and the telemetry snapshots it reports.
package model

import (
	"fmt"
	"strings"
)

// Mode is a canonical robot operating mode token as understood by the robot.
type Mode string

const (
	ModeAuto       Mode = "AUTO"
	ModeManual     Mode = "MANUAL"
	ModeDistortion Mode = "DISTORTION"
	ModeExtrinsic  Mode = "EXTRINSIK"
)

// Modes lists every mode the robot accepts on its control port.
var Modes = []Mode{ModeAuto, ModeManual, ModeDistortion, ModeExtrinsic}

// Valid reports whether m is one of the canonical mode tokens.
func (m Mode) Valid() bool {
	for _, v := range Modes {
		if m == v {
			return true
		}
	}
	return false
}

// ParseMode trims and upper-cases s and checks it against the known modes.
// Unknown values are reported as ErrBadRequest.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: invalid mode %q", ErrBadRequest, s)
	}
	return m, nil
}

// Joystick axis range after quantization.
const (
	AxisMin = -100
	AxisMax = 100
)

// ClampAxis limits v to [AxisMin, AxisMax].
func ClampAxis(v int) int {
	if v < AxisMin {
		return AxisMin
	}
	if v > AxisMax {
		return AxisMax
	}
	return v
}

// CommandKind identifies the variant of a Command.
type CommandKind int

const (
	KindMode CommandKind = iota
	KindJoystick
	KindHeartbeat
	KindReset
)

func (k CommandKind) String() string {
	switch k {
	case KindMode:
		return "mode"
	case KindJoystick:
		return "joystick"
	case KindHeartbeat:
		return "heartbeat"
	case KindReset:
		return "reset"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Command is one operator action addressed to the robot.
// The concrete types are ModeCommand, JoystickCommand, HeartbeatCommand and ResetCommand.
type Command interface {
	Kind() CommandKind
}

// ModeCommand switches the robot operating mode.
type ModeCommand struct {
	Mode Mode
}

// JoystickCommand carries one stick sample. Button is transmitted only when set.
type JoystickCommand struct {
	X      int
	Y      int
	Button bool
}

// HeartbeatCommand is a liveness ping.
type HeartbeatCommand struct{}

// ResetCommand asks the robot to restart its control state.
type ResetCommand struct{}

func (ModeCommand) Kind() CommandKind      { return KindMode }
func (JoystickCommand) Kind() CommandKind  { return KindJoystick }
func (HeartbeatCommand) Kind() CommandKind { return KindHeartbeat }
func (ResetCommand) Kind() CommandKind     { return KindReset }
