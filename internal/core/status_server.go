package core

import (
	"log"
	"net/http"
	"sync"
	"time"

	"RoverBridge/internal/model"
	"RoverBridge/internal/parser"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// StatusServer is the robot side of the telemetry feed: it upgrades clients to
// websocket and pushes one JSON status frame to all of them every Interval.
type StatusServer struct {
	Addr     string
	Interval time.Duration

	source  func() model.TelemetrySnapshot
	codec   parser.TelemetryCodec
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	server  *http.Server
	stop    chan struct{}
	once    sync.Once
}

// NewStatusServer constructs a StatusServer listening on addr. source is called once per frame.
func NewStatusServer(addr string, interval time.Duration, source func() model.TelemetrySnapshot) *StatusServer {
	f := &StatusServer{
		Addr:     addr,
		Interval: interval,
		source:   source,
		codec:    parser.NewJSONParser(),
		clients:  map[*websocket.Conn]bool{},
		stop:     make(chan struct{}),
	}
	// built up front so a Stop that wins the race against Start still closes it
	f.server = &http.Server{Addr: addr, Handler: f.Handler(), ReadHeaderTimeout: 5 * time.Second}
	return f
}

// Handler serves the status websocket at the root path.
func (f *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", f.handleWS)
	return mux
}

// Start launches the broadcast loop and the HTTP server.
// This call blocks until the server stops or fails.
func (f *StatusServer) Start() {
	select {
	case <-f.stop:
		return
	default:
	}
	go f.broadcastLoop()
	log.Printf("[sim] status feed listening on %s", f.Addr)
	if err := f.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[sim] status server error: %v", err)
	}
}

// Stop shuts down the HTTP server and disconnects every client.
func (f *StatusServer) Stop() {
	f.once.Do(func() { close(f.stop) })
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.server.Close()
	for c := range f.clients {
		_ = c.Close()
		delete(f.clients, c)
	}
}

// Clients returns the number of connected subscribers.
func (f *StatusServer) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *StatusServer) broadcastLoop() {
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.BroadcastNow()
		}
	}
}

// BroadcastNow sends the current status frame to every client.
func (f *StatusServer) BroadcastNow() {
	frame, err := f.codec.EncodeTelemetry(f.source())
	if err != nil {
		log.Printf("[sim] encode status: %v", err)
		return
	}
	f.broadcast(frame)
}

// handleWS upgrades HTTP to websocket, sends the current frame right away and
// registers the client for broadcasts.
func (f *StatusServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	frame, err := f.codec.EncodeTelemetry(f.source())
	f.mu.Lock()
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, []byte(frame))
	}
	if err != nil {
		f.mu.Unlock()
		log.Printf("[sim] status client %s dropped: %v", r.RemoteAddr, err)
		_ = conn.Close()
		return
	}
	f.clients[conn] = true
	f.mu.Unlock()
	log.Printf("[sim] status client %s connected", r.RemoteAddr)

	go func() {
		defer func() {
			f.mu.Lock()
			delete(f.clients, conn)
			f.mu.Unlock()
			if err := conn.Close(); err != nil {
				log.Printf("[sim] warning: failed to close websocket: %v", err)
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[sim] status client %s: %v", r.RemoteAddr, err)
				}
				return
			}
		}
	}()
}

// broadcast sends a message to all connected websocket clients.
func (f *StatusServer) broadcast(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			_ = c.Close()
			delete(f.clients, c)
		}
	}
}
