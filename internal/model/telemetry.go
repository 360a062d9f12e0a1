package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Reading is a telemetry metric the robot may report either as a JSON number
// or as a string. Numeric strings are parsed as well.
type Reading struct {
	Value float64
	Text  string
	Valid bool
}

// Number returns a numeric Reading.
func Number(v float64) *Reading {
	return &Reading{Value: v, Valid: true}
}

// Float returns the numeric value and whether one is present.
func (r *Reading) Float() (float64, bool) {
	if r == nil {
		return 0, false
	}
	return r.Value, r.Valid
}

func (r *Reading) String() string {
	if r == nil {
		return "-"
	}
	if r.Text != "" {
		return r.Text
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// UnmarshalJSON accepts a number or a string.
func (r *Reading) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("empty reading")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Reading{Text: s}
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			r.Value, r.Valid = v, true
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("reading must be number or string: %w", err)
	}
	*r = Reading{Value: v, Valid: true}
	return nil
}

// MarshalJSON writes the reading back in the form it was received.
func (r Reading) MarshalJSON() ([]byte, error) {
	if r.Text != "" {
		return json.Marshal(r.Text)
	}
	return json.Marshal(r.Value)
}

// WifiStatus is the wireless link quality block.
type WifiStatus struct {
	SignalPct *Reading `json:"signal_pct,omitempty"`
}

// JoystickPosition is the stick vector last applied by the robot.
type JoystickPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// TelemetrySnapshot is one status frame from the robot. Every field may be absent.
type TelemetrySnapshot struct {
	Mode                string            `json:"mode,omitempty"`
	Stream              *bool             `json:"stream,omitempty"`
	CPUTemp             *Reading          `json:"cpu_temp,omitempty"`
	CPUFreqMHz          *Reading          `json:"cpu_freq,omitempty"`
	CPULoadPct          *Reading          `json:"cpu_load,omitempty"`
	Time                string            `json:"time,omitempty"`
	Uptime              string            `json:"uptime,omitempty"`
	Wifi                *WifiStatus       `json:"wifi,omitempty"`
	WorldTransformReady *bool             `json:"world_transform_ready,omitempty"`
	Joystick            *JoystickPosition `json:"joystick,omitempty"`
	LastCaptureTS       *Reading          `json:"last_capture_ts,omitempty"`
	Timestamp           *Reading          `json:"timestamp,omitempty"`
}

// PlaceholderSnapshot is published when a telemetry connection opens,
// before the first real frame arrives.
func PlaceholderSnapshot() *TelemetrySnapshot {
	off := false
	return &TelemetrySnapshot{Mode: "-", Stream: &off}
}

// StreamActive reports the stream flag, treating absence as false.
func (s *TelemetrySnapshot) StreamActive() bool {
	return s != nil && s.Stream != nil && *s.Stream
}

// DisplayMode returns the mode or "-" when unknown.
func (s *TelemetrySnapshot) DisplayMode() string {
	if s == nil || s.Mode == "" {
		return "-"
	}
	return s.Mode
}
