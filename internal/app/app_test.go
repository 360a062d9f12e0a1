package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"RoverBridge/internal/core"
	"RoverBridge/internal/model"
	"RoverBridge/internal/store"

	"github.com/gorilla/websocket"
)

type recordingSender struct {
	mu   sync.Mutex
	cmds []model.Command
	err  error
}

func (s *recordingSender) Send(_ context.Context, cmd model.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.cmds = append(s.cmds, cmd)
	return nil
}

func (s *recordingSender) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *recordingSender) sent() []model.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Command(nil), s.cmds...)
}

type fakeHistory struct {
	recs []store.Record
}

func (h *fakeHistory) Latest() (store.Record, error) {
	if len(h.recs) == 0 {
		return store.Record{}, store.ErrEmpty
	}
	return h.recs[0], nil
}

func (h *fakeHistory) History(n int) ([]store.Record, error) {
	if n > len(h.recs) {
		n = len(h.recs)
	}
	return h.recs[:n], nil
}

func newTestApp(t *testing.T, sender core.CommandSender, hist History, opts ...func(*App)) (*App, *httptest.Server) {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Bridge.StaticDir = ""
	a := NewApp(&cfg, sender, hist)
	for _, o := range opts {
		o(a)
	}
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, srv
}

func postForm(t *testing.T, base string, v url.Values) (int, string) {
	t.Helper()
	resp, err := http.PostForm(base+"/send_udp", v)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestHandleCommandStatuses(t *testing.T) {
	sender := &recordingSender{}
	_, srv := newTestApp(t, sender, nil)

	cases := []struct {
		name string
		form url.Values
		code int
	}{
		{"mode", url.Values{"mode": {"manual"}}, http.StatusOK},
		{"bad mode", url.Values{"mode": {"TURBO"}}, http.StatusBadRequest},
		{"joystick", url.Values{"joy": {"1"}, "x": {"50"}, "y": {"-30"}, "button": {"1"}}, http.StatusOK},
		{"joystick bad axis", url.Values{"joy": {"1"}, "x": {"left"}, "y": {"0"}}, http.StatusBadRequest},
		{"heartbeat", url.Values{"heartbeat": {"1"}}, http.StatusOK},
		{"reset", url.Values{"reset": {"1"}}, http.StatusOK},
		{"empty", url.Values{}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := postForm(t, srv.URL, tc.form)
			if code != tc.code {
				t.Fatalf("status = %d (%q), want %d", code, body, tc.code)
			}
			if code == http.StatusOK && body != "OK" {
				t.Errorf("body = %q, want OK", body)
			}
		})
	}

	got := sender.sent()
	want := []model.Command{
		model.ModeCommand{Mode: model.ModeManual},
		model.JoystickCommand{X: 50, Y: -30, Button: true},
		model.HeartbeatCommand{},
		model.ResetCommand{},
	}
	if len(got) != len(want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cmd[%d] = %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestHandleCommandTransportFailure(t *testing.T) {
	sender := &recordingSender{err: &model.TransportError{Op: "send", Addr: "robot:5005", Err: errors.New("unreachable")}}
	_, srv := newTestApp(t, sender, nil)

	code, body := postForm(t, srv.URL, url.Values{"heartbeat": {"1"}})
	if code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", code)
	}
	if !strings.Contains(body, "unreachable") {
		t.Errorf("body = %q, want the transport failure", body)
	}
}

func TestHandleCommandMethod(t *testing.T) {
	_, srv := newTestApp(t, &recordingSender{}, nil)
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/send_udp", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestCommandReachesRobotOverUDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	rc := model.DefaultConfig().Robot
	rc.Host = "127.0.0.1"
	rc.ControlPort = port
	gw := core.NewGateway(rc, time.Second)
	_, srv := newTestApp(t, gw, nil)

	if code, body := postForm(t, srv.URL, url.Values{"mode": {"distortion"}}); code != http.StatusOK {
		t.Fatalf("status = %d (%q)", code, body)
	}
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read datagram: %v", err)
	}
	if got := string(buf[:n]); got != "DISTORTION" {
		t.Errorf("datagram = %q, want DISTORTION", got)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	hist := &fakeHistory{}
	_, srv := newTestApp(t, &recordingSender{}, hist)
	c := NewClient(srv.URL)
	ctx := context.Background()

	if _, err := c.Latest(ctx); !errors.Is(err, store.ErrEmpty) {
		t.Fatalf("Latest on empty history: %v, want ErrEmpty", err)
	}

	hist.recs = []store.Record{
		{ID: "b", Snapshot: model.TelemetrySnapshot{Mode: "MANUAL"}},
		{ID: "a", Snapshot: model.TelemetrySnapshot{Mode: "AUTO"}},
	}
	rec, err := c.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != "b" || rec.Snapshot.Mode != "MANUAL" {
		t.Errorf("latest = %+v", rec)
	}
	recs, err := c.History(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != "b" {
		t.Errorf("history = %+v", recs)
	}

	resp, err := http.Get(srv.URL + "/api/history?limit=zero")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", resp.StatusCode)
	}
}

func TestHistoryDisabled(t *testing.T) {
	_, srv := newTestApp(t, &recordingSender{}, nil)
	resp, err := http.Get(srv.URL + "/api/latest")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}

	c := NewClient(srv.URL)
	if _, err := c.History(context.Background(), 5); !errors.Is(err, ErrRecordingDisabled) {
		t.Fatalf("History with recording off: %v, want ErrRecordingDisabled", err)
	}
	if _, err := c.Latest(context.Background()); errors.Is(err, store.ErrEmpty) {
		t.Fatalf("Latest with recording off reported an empty store")
	}
}

func TestHandleConfig(t *testing.T) {
	_, srv := newTestApp(t, &recordingSender{}, nil)
	resp, err := http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var cc ClientConfig
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		t.Fatal(err)
	}
	if cc.StreamURL != "http://192.168.179.252:8080/stream" {
		t.Errorf("stream_url = %q", cc.StreamURL)
	}
	if cc.StatusURL != "ws://192.168.179.252:8765" {
		t.Errorf("status_url = %q", cc.StatusURL)
	}
	if cc.JoystickIntervalMs != 500 {
		t.Errorf("joystick_interval_ms = %d", cc.JoystickIntervalMs)
	}
}

func TestClientSendMapsStatus(t *testing.T) {
	sender := &recordingSender{}
	_, srv := newTestApp(t, sender, nil)
	c := NewClient(strings.TrimPrefix(srv.URL, "http://"))
	ctx := context.Background()

	if err := c.Send(ctx, model.JoystickCommand{X: -100, Y: 100}); err != nil {
		t.Fatalf("Send joystick: %v", err)
	}
	if err := c.Send(ctx, model.ModeCommand{Mode: "TURBO"}); !errors.Is(err, model.ErrBadRequest) {
		t.Fatalf("Send bad mode: %v, want ErrBadRequest", err)
	}
	if got := sender.sent(); len(got) != 1 || got[0] != (model.JoystickCommand{X: -100, Y: 100}) {
		t.Errorf("sent = %v", got)
	}

	sender.fail(errors.New("socket closed"))
	var te *model.TransportError
	if err := c.Send(ctx, model.HeartbeatCommand{}); !errors.As(err, &te) {
		t.Fatalf("Send with failing robot: %v, want TransportError", err)
	}
}

func readAck(t *testing.T, conn *websocket.Conn, op string) ackMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var ack ackMessage
		if err := json.Unmarshal(b, &ack); err != nil {
			t.Fatalf("decode %s: %v", b, err)
		}
		if ack.Type == "ack" && ack.Op == op {
			return ack
		}
	}
}

func TestConsoleWebsocket(t *testing.T) {
	sender := &recordingSender{}
	a, srv := newTestApp(t, sender, nil, func(a *App) {
		a.Dial = func(ctx context.Context, u string) (core.WSConn, error) {
			return nil, errors.New("robot offline")
		}
	})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/ui"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(uiEvent{Type: "mode", Mode: "manual"}); err != nil {
		t.Fatal(err)
	}
	if ack := readAck(t, conn, "mode"); ack.Status != http.StatusOK {
		t.Errorf("mode ack = %+v", ack)
	}

	if err := conn.WriteJSON(uiEvent{Type: "mode", Mode: "sideways"}); err != nil {
		t.Fatal(err)
	}
	if ack := readAck(t, conn, "mode"); ack.Status != http.StatusBadRequest {
		t.Errorf("bad mode ack = %+v", ack)
	}

	if err := conn.WriteJSON(uiEvent{Type: "warp"}); err != nil {
		t.Fatal(err)
	}
	if ack := readAck(t, conn, "warp"); ack.Status != http.StatusBadRequest {
		t.Errorf("unknown event ack = %+v", ack)
	}

	if a.Sessions() != 1 {
		t.Errorf("sessions = %d, want 1", a.Sessions())
	}

	var sawMode bool
	for _, c := range sender.sent() {
		if c == (model.ModeCommand{Mode: model.ModeManual}) {
			sawMode = true
		}
	}
	if !sawMode {
		t.Errorf("mode command not forwarded: %v", sender.sent())
	}

	conn.Close()
	deadline := time.Now().Add(3 * time.Second)
	for a.Sessions() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if a.Sessions() != 0 {
		t.Errorf("session not removed after close")
	}
}
