package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"RoverBridge/internal/model"
	"RoverBridge/internal/parser"
	"RoverBridge/internal/store"
)

// handleCommand accepts one command as form fields (mode, joy/x/y/button,
// heartbeat or reset) and forwards it to the robot. It answers "OK" with 200,
// or a description with 400 for bad input and 500 for transport failures.
func (a *App) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeResult(w, fmt.Errorf("%w: %v", model.ErrBadRequest, err))
		return
	}
	cmd, err := parser.ParseCommandForm(r.Form)
	if err != nil {
		writeResult(w, err)
		return
	}
	writeResult(w, a.Sender.Send(r.Context(), cmd))
}

// StatusCode maps a command error onto the edge status categories.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, model.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	code := StatusCode(err)
	w.WriteHeader(code)
	msg := "OK"
	if err != nil {
		msg = err.Error()
	}
	if _, werr := w.Write([]byte(msg)); werr != nil {
		log.Printf("[app] warning: failed to write response: %v", werr)
	}
}

// ErrRecordingDisabled is reported when the bridge runs without a telemetry store.
var ErrRecordingDisabled = errors.New("telemetry recording disabled")

// handleLatest returns the most recent recorded snapshot.
func (a *App) handleLatest(w http.ResponseWriter, r *http.Request) {
	if a.History == nil {
		http.Error(w, ErrRecordingDisabled.Error(), http.StatusServiceUnavailable)
		return
	}
	rec, err := a.History.Latest()
	if errors.Is(err, store.ErrEmpty) {
		http.Error(w, "no telemetry data", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[app] read latest telemetry: %v", err)
		http.Error(w, "failed to read telemetry", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rec)
}

// handleHistory returns up to ?limit= recorded snapshots, newest first.
func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	if a.History == nil {
		http.Error(w, ErrRecordingDisabled.Error(), http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 1000)
	}
	recs, err := a.History.History(limit)
	if err != nil {
		log.Printf("[app] read telemetry history: %v", err)
		http.Error(w, "failed to read telemetry", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	writeJSON(w, recs)
}

// ClientConfig is what the browser needs to reach the robot directly.
type ClientConfig struct {
	StreamURL          string `json:"stream_url"`
	StatusURL          string `json:"status_url"`
	LastCaptureURL     string `json:"last_capture_url"`
	JoystickIntervalMs int    `json:"joystick_interval_ms"`
}

func (a *App) handleConfig(w http.ResponseWriter, r *http.Request) {
	rc := a.Config.Robot
	writeJSON(w, ClientConfig{
		StreamURL:          rc.StreamURL(),
		StatusURL:          rc.StatusURL(),
		LastCaptureURL:     rc.LastCaptureURL(""),
		JoystickIntervalMs: a.Config.Console.JoystickIntervalMs,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[app] warning: failed to write json: %v", err)
	}
}
