package app

import (
	"net/http"
)

// registerRoutes sets up all HTTP handlers for the application.
func (a *App) registerRoutes() {
	if dir := a.Config.Bridge.StaticDir; dir != "" {
		fs := http.FileServer(http.Dir(dir))
		a.Mux.Handle("/static/", http.StripPrefix("/static/", fs))
	}

	// command edge, same contract as the robot's original send_udp endpoint
	a.Mux.HandleFunc("/send_udp", a.handleCommand)

	a.Mux.HandleFunc("/ws/ui", a.handleConsole)

	a.Mux.HandleFunc("/api/latest", a.handleLatest)
	a.Mux.HandleFunc("/api/history", a.handleHistory)
	a.Mux.HandleFunc("/api/config", a.handleConfig)
}
