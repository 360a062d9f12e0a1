package core

import (
	"net"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"RoverBridge/internal/model"
	"RoverBridge/internal/parser"

	"github.com/gorilla/websocket"
)

func TestStatusServerPushesFrames(t *testing.T) {
	var mode atomic.Value
	mode.Store("AUTO")
	srv := NewStatusServer("", time.Second, func() model.TelemetrySnapshot {
		return model.TelemetrySnapshot{Mode: mode.Load().(string)}
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Stop()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	codec := parser.NewJSONParser()
	read := func() model.TelemetrySnapshot {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		s, err := codec.DecodeTelemetry(string(data))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		return s
	}
	if s := read(); s.Mode != "AUTO" {
		t.Fatalf("first frame = %+v", s)
	}
	eventually(t, "client registration", func() bool { return srv.Clients() == 1 })
	mode.Store("MANUAL")
	srv.BroadcastNow()
	if s := read(); s.Mode != "MANUAL" {
		t.Fatalf("broadcast frame = %+v", s)
	}
}

func TestStatusServerStopBeforeListen(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	srv := NewStatusServer(addr, time.Second, func() model.TelemetrySnapshot { return model.TelemetrySnapshot{} })
	done := make(chan struct{})
	go func() {
		srv.Start()
		close(done)
	}()
	srv.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	if c, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		_ = c.Close()
		t.Fatalf("status server still listening on %s after Stop", addr)
	}
}
