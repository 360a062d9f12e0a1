package core

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"RoverBridge/internal/model"
	"RoverBridge/internal/parser"

	"github.com/gorilla/websocket"
)

// ConnState is the telemetry connection state.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// WSConn is the read side of a websocket connection.
type WSConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// DialFunc opens a websocket connection.
type DialFunc func(ctx context.Context, url string) (WSConn, error)

// DialWebsocket dials with gorilla/websocket.
func DialWebsocket(ctx context.Context, u string) (WSConn, error) {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := d.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Printf("[telemetry] warning: close handshake body: %v", cerr)
		}
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// TelemetryConfig wires a TelemetryClient into its event loop.
type TelemetryConfig struct {
	URL     string
	Dial    DialFunc
	Clock   Clock
	Post    func(func()) bool
	Publish func(*model.TelemetrySnapshot)
	Backoff *Backoff
}

// TelemetryClient keeps a subscription to the robot status feed and republishes
// every frame as a snapshot, or nil when no data is available. After a failure it
// reconnects with exponential backoff. All methods run on the owning loop.
type TelemetryClient struct {
	url     string
	dial    DialFunc
	clock   Clock
	post    func(func()) bool
	publish func(*model.TelemetrySnapshot)
	codec   parser.TelemetryCodec
	backoff *Backoff

	state    ConnState
	conn     WSConn
	gen      uint64
	retry    Timer
	cancel   context.CancelFunc
	shutdown bool
}

// NewTelemetryClient creates an idle client.
func NewTelemetryClient(cfg TelemetryConfig) *TelemetryClient {
	if cfg.Dial == nil {
		cfg.Dial = DialWebsocket
	}
	if cfg.Backoff == nil {
		cfg.Backoff = NewBackoff(time.Second, 15*time.Second, 1.7)
	}
	return &TelemetryClient{
		url:     cfg.URL,
		dial:    cfg.Dial,
		clock:   cfg.Clock,
		post:    cfg.Post,
		publish: cfg.Publish,
		codec:   parser.NewJSONParser(),
		backoff: cfg.Backoff,
	}
}

// State returns the connection state.
func (c *TelemetryClient) State() ConnState { return c.state }

// NextDelay returns the delay the next reconnect would wait.
func (c *TelemetryClient) NextDelay() time.Duration { return c.backoff.Peek() }

// Connect starts a connection attempt unless one is open or in progress.
func (c *TelemetryClient) Connect() {
	if c.shutdown || c.state == StateOpen || c.state == StateConnecting {
		return
	}
	if err := checkWSURL(c.url); err != nil {
		log.Printf("[telemetry] cannot connect: %v", err)
		c.state = StateClosed
		c.publish(nil)
		c.scheduleReconnect()
		return
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go func() {
		conn, err := c.dial(ctx, c.url)
		if !c.post(func() { c.dialDone(gen, conn, err) }) && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (c *TelemetryClient) dialDone(gen uint64, conn WSConn, err error) {
	if gen != c.gen || c.shutdown {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		log.Printf("[telemetry] connect %s failed: %v", c.url, err)
		c.lost()
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.onOpen()
	go c.readLoop(gen, conn)
}

func (c *TelemetryClient) onOpen() {
	c.backoff.Reset()
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	log.Printf("[telemetry] connected to %s", c.url)
	c.publish(model.PlaceholderSnapshot())
}

func (c *TelemetryClient) readLoop(gen uint64, conn WSConn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.post(func() { c.connLost(gen, err) })
			return
		}
		frame := string(data)
		if !c.post(func() { c.onMessage(gen, frame) }) {
			return
		}
	}
}

func (c *TelemetryClient) onMessage(gen uint64, frame string) {
	if gen != c.gen || c.state != StateOpen {
		return
	}
	snap, err := c.codec.DecodeTelemetry(frame)
	if err != nil {
		log.Printf("[telemetry] %v", err)
		c.publish(nil)
		return
	}
	c.publish(&snap)
}

func (c *TelemetryClient) connLost(gen uint64, err error) {
	if gen != c.gen || c.shutdown {
		return
	}
	log.Printf("[telemetry] %v: %v", model.ErrConnectionLost, err)
	if c.conn != nil {
		if cerr := c.conn.Close(); cerr != nil {
			log.Printf("[telemetry] warning: close connection: %v", cerr)
		}
		c.conn = nil
	}
	c.lost()
}

func (c *TelemetryClient) lost() {
	c.state = StateClosed
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.publish(nil)
	c.scheduleReconnect()
}

// scheduleReconnect keeps at most one reconnect timer pending.
func (c *TelemetryClient) scheduleReconnect() {
	if c.retry != nil || c.shutdown {
		return
	}
	d := c.backoff.Next()
	log.Printf("[telemetry] reconnecting in %v", d)
	c.retry = c.clock.AfterFunc(d, func() {
		c.retry = nil
		c.Connect()
	})
}

// Shutdown closes the connection and cancels any pending reconnect.
// Nothing is published afterwards.
func (c *TelemetryClient) Shutdown() {
	if c.shutdown {
		return
	}
	c.shutdown = true
	c.gen++
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			log.Printf("[telemetry] warning: close connection: %v", err)
		}
		c.conn = nil
	}
	c.state = StateClosed
}

func checkWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid status url %q: %w", raw, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid status url %q: scheme must be ws or wss", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid status url %q: missing host", raw)
	}
	return nil
}
