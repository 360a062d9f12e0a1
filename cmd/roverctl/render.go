package main

import (
	"fmt"
	"strings"
	"time"

	"RoverBridge/internal/core"
	"RoverBridge/internal/model"
	"RoverBridge/internal/store"

	"github.com/charmbracelet/lipgloss"
)

var (
	okColor    = lipgloss.Color("#10b981")
	warnColor  = lipgloss.Color("#f59e0b")
	errorColor = lipgloss.Color("#ef4444")
	mutedColor = lipgloss.Color("#94a3b8")

	okStyle    = lipgloss.NewStyle().Foreground(okColor).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(warnColor)
	errorStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	labelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(12)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
)

// tempStyle colours the CPU temperature: yellow from 60°C, red from 70°C.
func tempStyle(r *model.Reading) lipgloss.Style {
	v, ok := r.Float()
	switch {
	case !ok:
		return mutedStyle
	case v >= 70:
		return errorStyle
	case v >= 60:
		return warnStyle
	default:
		return okStyle
	}
}

func flag(b *bool) string {
	switch {
	case b == nil:
		return mutedStyle.Render("-")
	case *b:
		return okStyle.Render("yes")
	default:
		return warnStyle.Render("no")
	}
}

func withUnit(r *model.Reading, unit string) string {
	if _, ok := r.Float(); !ok {
		return r.String()
	}
	return r.String() + unit
}

func renderSnapshot(s *model.TelemetrySnapshot, state core.ConnState) string {
	if s == nil {
		return boxStyle.Render(errorStyle.Render("no telemetry") + " " + mutedStyle.Render("("+state.String()+")"))
	}
	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}
	joy := "-"
	if s.Joystick != nil {
		joy = fmt.Sprintf("x=%d y=%d", s.Joystick.X, s.Joystick.Y)
	}
	var wifi *model.Reading
	if s.Wifi != nil {
		wifi = s.Wifi.SignalPct
	}
	lines := []string{
		row("mode", okStyle.Render(s.DisplayMode())),
		row("stream", flag(s.Stream)),
		row("cpu temp", tempStyle(s.CPUTemp).Render(withUnit(s.CPUTemp, "°C"))),
		row("cpu freq", withUnit(s.CPUFreqMHz, " MHz")),
		row("cpu load", withUnit(s.CPULoadPct, "%")),
		row("wifi", withUnit(wifi, "%")),
		row("world tf", flag(s.WorldTransformReady)),
		row("joystick", joy),
		row("time", orDash(s.Time)),
		row("uptime", orDash(s.Uptime)),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderCompact(s *model.TelemetrySnapshot, now time.Time) string {
	ts := mutedStyle.Render(now.Format("15:04:05"))
	if s == nil {
		return ts + " " + errorStyle.Render("no telemetry")
	}
	stream := "off"
	if s.StreamActive() {
		stream = "on"
	}
	return fmt.Sprintf("%s mode=%s stream=%s temp=%s", ts, s.DisplayMode(), stream,
		tempStyle(s.CPUTemp).Render(s.CPUTemp.String()))
}

func renderHistoryLine(r store.Record) string {
	s := r.Snapshot
	return fmt.Sprintf("%s %s mode=%s temp=%s",
		mutedStyle.Render(r.ReceivedAt.Local().Format(time.DateTime)),
		mutedStyle.Render(shortID(r.ID)),
		s.DisplayMode(),
		tempStyle(s.CPUTemp).Render(s.CPUTemp.String()))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
