package parser

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"RoverBridge/internal/model"
)

// ParseCommandForm maps the fields of an inbound command request onto a Command.
// Fields are checked in the order heartbeat, mode, joy, reset.
func ParseCommandForm(v url.Values) (model.Command, error) {
	switch {
	case v.Has("heartbeat"):
		return model.HeartbeatCommand{}, nil
	case v.Has("mode"):
		m, err := model.ParseMode(v.Get("mode"))
		if err != nil {
			return nil, err
		}
		return model.ModeCommand{Mode: m}, nil
	case v.Has("joy"):
		x, err := formInt(v, "x")
		if err != nil {
			return nil, err
		}
		y, err := formInt(v, "y")
		if err != nil {
			return nil, err
		}
		return model.JoystickCommand{X: x, Y: y, Button: formBool(v.Get("button"))}, nil
	case v.Has("reset"):
		return model.ResetCommand{}, nil
	}
	return nil, fmt.Errorf("%w: invalid request", model.ErrBadRequest)
}

// EncodeCommandForm is the inverse of ParseCommandForm.
func EncodeCommandForm(cmd model.Command) url.Values {
	v := url.Values{}
	switch c := cmd.(type) {
	case model.ModeCommand:
		v.Set("mode", string(c.Mode))
	case model.JoystickCommand:
		v.Set("joy", "1")
		v.Set("x", strconv.Itoa(c.X))
		v.Set("y", strconv.Itoa(c.Y))
		if c.Button {
			v.Set("button", "1")
		} else {
			v.Set("button", "0")
		}
	case model.HeartbeatCommand:
		v.Set("heartbeat", "1")
	case model.ResetCommand:
		v.Set("reset", "1")
	}
	return v
}

func formInt(v url.Values, key string) (int, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return 0, fmt.Errorf("%w: missing %s", model.ErrBadRequest, key)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not an integer", model.ErrBadRequest, key)
	}
	return n, nil
}

func formBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
