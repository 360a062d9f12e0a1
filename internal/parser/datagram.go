package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"RoverBridge/internal/model"
)

const (
	heartbeatToken = "HEARTBEAT"
	resetToken     = "RESET"
	joystickPrefix = "JOYSTICK:"
	buttonToken    = "B=1"
	// older robot firmware and PC clients used this button token
	legacyButtonToken = "BUTTON:1"
)

// DatagramCodec maps commands to robot datagrams and back.
type DatagramCodec struct {
	ports Ports
}

// NewDatagramCodec creates a codec addressing the given ports.
func NewDatagramCodec(p Ports) *DatagramCodec { return &DatagramCodec{ports: p} }

// Ports returns the configured port set.
func (c *DatagramCodec) Ports() Ports { return c.ports }

// Encode returns the destination port and payload for cmd.
// Joystick axes are clamped to [-100, 100] regardless of what the caller did.
// Commands other than the four model value types fail with model.ErrBadRequest.
func (c *DatagramCodec) Encode(cmd model.Command) (int, []byte, error) {
	switch v := cmd.(type) {
	case model.ModeCommand:
		return c.ports.Control, []byte(v.Mode), nil
	case model.JoystickCommand:
		return c.ports.Joystick, []byte(JoystickPayload(v)), nil
	case model.HeartbeatCommand:
		return c.ports.Heartbeat, []byte(heartbeatToken), nil
	case model.ResetCommand:
		return c.ports.Control, []byte(resetToken), nil
	}
	return 0, nil, fmt.Errorf("%w: unsupported command %T", model.ErrBadRequest, cmd)
}

// JoystickPayload formats the joystick datagram body.
func JoystickPayload(j model.JoystickCommand) string {
	s := fmt.Sprintf("%sX=%d,Y=%d", joystickPrefix, model.ClampAxis(j.X), model.ClampAxis(j.Y))
	if j.Button {
		s += "," + buttonToken
	}
	return s
}

// Decode parses a datagram received on port. Used by the robot side.
func (c *DatagramCodec) Decode(port int, payload []byte) (model.Command, error) {
	line := strings.TrimSpace(string(payload))
	switch port {
	case c.ports.Control:
		if strings.EqualFold(line, resetToken) {
			return model.ResetCommand{}, nil
		}
		m, err := model.ParseMode(line)
		if err != nil {
			return nil, &model.ParseError{Input: line, Err: err}
		}
		return model.ModeCommand{Mode: m}, nil
	case c.ports.Joystick:
		j, err := parseJoystick(line)
		if err != nil {
			return nil, &model.ParseError{Input: line, Err: err}
		}
		return j, nil
	case c.ports.Heartbeat:
		if line != heartbeatToken {
			return nil, &model.ParseError{Input: line, Err: errors.New("expected HEARTBEAT")}
		}
		return model.HeartbeatCommand{}, nil
	}
	return nil, &model.ParseError{Input: line, Err: fmt.Errorf("no command on port %d", port)}
}

func parseJoystick(line string) (model.JoystickCommand, error) {
	var j model.JoystickCommand
	body, ok := strings.CutPrefix(line, joystickPrefix)
	if !ok {
		return j, errors.New("missing JOYSTICK: prefix")
	}
	var haveX, haveY bool
	for _, tok := range strings.Split(body, ",") {
		tok = strings.TrimSpace(tok)
		switch {
		case tok == buttonToken || tok == legacyButtonToken:
			j.Button = true
		case strings.HasPrefix(tok, "X="):
			v, err := strconv.Atoi(tok[2:])
			if err != nil {
				return j, fmt.Errorf("invalid x: %w", err)
			}
			j.X, haveX = model.ClampAxis(v), true
		case strings.HasPrefix(tok, "Y="):
			v, err := strconv.Atoi(tok[2:])
			if err != nil {
				return j, fmt.Errorf("invalid y: %w", err)
			}
			j.Y, haveY = model.ClampAxis(v), true
		default:
			return j, fmt.Errorf("unexpected token %q", tok)
		}
	}
	if !haveX || !haveY {
		return j, errors.New("joystick needs X and Y")
	}
	return j, nil
}

// StripButton returns the joystick line without its button token,
// the form forwarded to the motor controller.
func StripButton(j model.JoystickCommand) string {
	j.Button = false
	return JoystickPayload(j)
}
