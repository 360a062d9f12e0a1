package main

import (
	"strings"
	"testing"
	"time"

	"RoverBridge/internal/core"
	"RoverBridge/internal/model"
	"RoverBridge/internal/store"

	"github.com/charmbracelet/lipgloss"
)

func TestTempStyleThresholds(t *testing.T) {
	cases := []struct {
		temp *model.Reading
		want string
	}{
		{nil, "muted"},
		{model.Number(45), "ok"},
		{model.Number(60), "warn"},
		{model.Number(69.9), "warn"},
		{model.Number(70), "error"},
		{&model.Reading{Text: "n/a"}, "muted"},
	}
	colors := map[string]lipgloss.TerminalColor{
		"muted": mutedColor,
		"ok":    okColor,
		"warn":  warnColor,
		"error": errorColor,
	}
	for _, tc := range cases {
		got := tempStyle(tc.temp)
		if got.GetForeground() != colors[tc.want] {
			t.Errorf("tempStyle(%v) = %v, want %s", tc.temp, got.GetForeground(), tc.want)
		}
	}
}

func TestRenderSnapshot(t *testing.T) {
	on := true
	s := &model.TelemetrySnapshot{
		Mode:     "MANUAL",
		Stream:   &on,
		CPUTemp:  model.Number(52.5),
		Joystick: &model.JoystickPosition{X: 10, Y: -20},
		Uptime:   "1:02:03",
	}
	out := renderSnapshot(s, core.StateOpen)
	for _, want := range []string{"MANUAL", "52.5°C", "x=10 y=-20", "1:02:03"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}

	if out := renderSnapshot(nil, core.StateConnecting); !strings.Contains(out, "no telemetry") {
		t.Errorf("nil snapshot render = %q", out)
	}
}

func TestRenderCompactAndHistory(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	line := renderCompact(model.PlaceholderSnapshot(), now)
	if !strings.Contains(line, "mode=-") || !strings.Contains(line, "stream=off") {
		t.Errorf("compact = %q", line)
	}

	rec := store.Record{ID: "0123456789abcdef", ReceivedAt: now, Snapshot: model.TelemetrySnapshot{Mode: "AUTO"}}
	h := renderHistoryLine(rec)
	if !strings.Contains(h, "01234567") || strings.Contains(h, "89abcdef") || !strings.Contains(h, "mode=AUTO") {
		t.Errorf("history line = %q", h)
	}
}
