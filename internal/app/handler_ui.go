package app

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"RoverBridge/internal/core"
	"RoverBridge/internal/model"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// uiEvent is one raw UI event pushed by the browser.
type uiEvent struct {
	Type    string       `json:"type"`
	Mode    string       `json:"mode,omitempty"`
	X       float64      `json:"x"`
	Y       float64      `json:"y"`
	Pad     *core.PadBox `json:"pad,omitempty"`
	Visible bool         `json:"visible"`
}

type statusMessage struct {
	Type string                   `json:"type"`
	Data *model.TelemetrySnapshot `json:"data"`
}

type reloadMessage struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type ackMessage struct {
	Type    string `json:"type"`
	Op      string `json:"op"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// wsSink queues console output for the session writer.
type wsSink struct {
	id   string
	send chan []byte
}

func (s *wsSink) push(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("[ui %s] encode %T: %v", s.id, v, err)
		return
	}
	select {
	case s.send <- b:
	default:
		log.Printf("[ui %s] send buffer full, dropping %T", s.id, v)
	}
}

func (s *wsSink) Render(snap *model.TelemetrySnapshot) {
	s.push(statusMessage{Type: "status", Data: snap})
}

func (s *wsSink) Reload(u string) {
	s.push(reloadMessage{Type: "reload", URL: u})
}

// handleConsole upgrades to websocket and runs one operator console for the
// lifetime of the connection.
func (a *App) handleConsole(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[app] console upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	sink := &wsSink{send: make(chan []byte, 64)}
	console := core.NewConsole(a.Config, a.Sender, sink, a.Dial, core.SystemClock)
	sink.id = console.ID
	a.addSession(console)
	log.Printf("[ui %s] opened from %s", console.ID, r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		console.Run(ctx)
	}()
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		a.writePump(ctx, conn, sink)
	}()

	a.readPump(conn, console, sink)

	cancel()
	<-runDone
	<-writeDone
	a.removeSession(console)
	if err := conn.Close(); err != nil {
		log.Printf("[ui %s] warning: close websocket: %v", console.ID, err)
	}
	log.Printf("[ui %s] closed", console.ID)
}

func (a *App) readPump(conn *websocket.Conn, c *core.Console, sink *wsSink) {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var ev uiEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ui %s] read: %v", c.ID, err)
			}
			return
		}
		a.dispatch(c, sink, ev)
	}
}

func (a *App) dispatch(c *core.Console, sink *wsSink, ev uiEvent) {
	switch ev.Type {
	case "press":
		if ev.Pad == nil {
			sink.push(ackMessage{Type: "ack", Op: ev.Type, Status: http.StatusBadRequest, Message: "press needs pad"})
			return
		}
		c.Press(core.Point{X: ev.X, Y: ev.Y}, *ev.Pad)
	case "move":
		c.Move(core.Point{X: ev.X, Y: ev.Y})
	case "release":
		c.Release()
	case "capture":
		c.CaptureButton()
	case "latch":
		c.LatchButton()
	case "placeholder":
		c.PlaceholderVisible(ev.Visible)
	case "mode":
		a.ack(sink, ev.Type, a.sendMode(ev.Mode))
	case "reset":
		a.ack(sink, ev.Type, a.Sender.Send(context.Background(), model.ResetCommand{}))
	default:
		sink.push(ackMessage{Type: "ack", Op: ev.Type, Status: http.StatusBadRequest, Message: "unknown event"})
	}
}

func (a *App) sendMode(raw string) error {
	m, err := model.ParseMode(raw)
	if err != nil {
		return err
	}
	return a.Sender.Send(context.Background(), model.ModeCommand{Mode: m})
}

func (a *App) ack(sink *wsSink, op string, err error) {
	msg := "OK"
	if err != nil {
		msg = err.Error()
	}
	sink.push(ackMessage{Type: "ack", Op: op, Status: StatusCode(err), Message: msg})
}

func (a *App) writePump(ctx context.Context, conn *websocket.Conn, sink *wsSink) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case b := <-sink.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Printf("[ui %s] write: %v", sink.id, err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
