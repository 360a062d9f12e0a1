// Package app implements the HTTP edge of the rover bridge: the command endpoint,
// the operator console websocket, and the telemetry history API.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"RoverBridge/internal/core"
	"RoverBridge/internal/model"
	"RoverBridge/internal/store"
)

// History reads recorded telemetry.
type History interface {
	Latest() (store.Record, error)
	History(n int) ([]store.Record, error)
}

// App bundles the HTTP server and the components its handlers use.
type App struct {
	Config  *model.Config
	Sender  core.CommandSender
	History History
	Dial    core.DialFunc
	Mux     *http.ServeMux
	Server  *http.Server

	mu       sync.Mutex
	sessions map[string]*core.Console
}

// NewApp wires the routes. hist may be nil when no recorder is configured.
func NewApp(cfg *model.Config, sender core.CommandSender, hist History) *App {
	a := &App{
		Config:   cfg,
		Sender:   sender,
		History:  hist,
		Dial:     core.DialWebsocket,
		Mux:      http.NewServeMux(),
		sessions: map[string]*core.Console{},
	}
	a.registerRoutes()
	return a
}

// Handler returns the routed handler with request logging.
func (a *App) Handler() http.Handler { return LogRequests(a.Mux) }

// Start launches the web server and blocks until stopped.
func (a *App) Start(addr string) error {
	if addr == "" {
		log.Println("[app] web server not started (empty address)")
		return nil
	}
	addr = strings.TrimPrefix(addr, "http://")
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	a.mu.Lock()
	a.Server = &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := a.Server
	a.mu.Unlock()

	log.Printf("[app] web server listening at http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("[app] HTTP server error: %w", err)
	}
	return nil
}

// Stop ends every console session and gracefully stops the web server.
func (a *App) Stop() {
	a.mu.Lock()
	for id, c := range a.sessions {
		c.Stop()
		delete(a.sessions, id)
	}
	srv := a.Server
	a.mu.Unlock()

	if srv == nil {
		return
	}
	log.Println("[app] shutting down web server...")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[app] HTTP server shutdown error: %v", err)
	} else {
		log.Println("[app] web server stopped cleanly")
	}
}

// Sessions returns the number of open console sessions.
func (a *App) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

func (a *App) addSession(c *core.Console) {
	a.mu.Lock()
	a.sessions[c.ID] = c
	a.mu.Unlock()
}

func (a *App) removeSession(c *core.Console) {
	a.mu.Lock()
	delete(a.sessions, c.ID)
	a.mu.Unlock()
}
