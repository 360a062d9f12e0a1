package core

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"RoverBridge/internal/model"
	"RoverBridge/internal/parser"
)

// CommandSender delivers one command to the robot. Implementations must not block
// for long: the sampler and heartbeat call it from the console loop.
type CommandSender interface {
	Send(ctx context.Context, cmd model.Command) error
}

// Gateway turns validated commands into single UDP datagrams addressed to the robot.
// It never retries; periodic senders upstream re-send state instead.
type Gateway struct {
	Host    string
	Codec   *parser.DatagramCodec
	Timeout time.Duration

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewGateway constructs a Gateway for the robot described by cfg.
func NewGateway(cfg model.RobotConfig, timeout time.Duration) *Gateway {
	d := &net.Dialer{}
	return &Gateway{
		Host:    cfg.EffectiveHost(),
		Codec:   parser.NewDatagramCodec(parser.PortsFrom(cfg)),
		Timeout: timeout,
		dial:    d.DialContext,
	}
}

// Send validates cmd, encodes it and writes exactly one datagram.
// Invalid modes fail with model.ErrBadRequest before any socket is created;
// socket and write failures are returned as *model.TransportError.
func (g *Gateway) Send(ctx context.Context, cmd model.Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: empty command", model.ErrBadRequest)
	}
	if m, ok := cmd.(model.ModeCommand); ok && !m.Mode.Valid() {
		return fmt.Errorf("%w: invalid mode %q", model.ErrBadRequest, m.Mode)
	}
	port, payload, err := g.Codec.Encode(cmd)
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(g.Host, strconv.Itoa(port))

	conn, err := g.dial(ctx, "udp", addr)
	if err != nil {
		return &model.TransportError{Op: "dial", Addr: addr, Err: err}
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Printf("[gateway] warning: close socket %s: %v", addr, cerr)
		}
	}()
	if g.Timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(g.Timeout)); err != nil {
			return &model.TransportError{Op: "deadline", Addr: addr, Err: err}
		}
	}
	if _, err := conn.Write(payload); err != nil {
		return &model.TransportError{Op: "send", Addr: addr, Err: err}
	}
	if cmd.Kind() != model.KindHeartbeat {
		log.Printf("[gateway] %s -> %s: %s", cmd.Kind(), addr, payload)
	}
	return nil
}

// SetMode parses raw case-insensitively and sends the mode to the control port.
func (g *Gateway) SetMode(ctx context.Context, raw string) error {
	m, err := model.ParseMode(raw)
	if err != nil {
		return err
	}
	return g.Send(ctx, model.ModeCommand{Mode: m})
}

// Joystick sends one stick sample to the joystick port.
func (g *Gateway) Joystick(ctx context.Context, x, y int, button bool) error {
	return g.Send(ctx, model.JoystickCommand{X: x, Y: y, Button: button})
}

// Heartbeat sends a liveness ping to the heartbeat port.
func (g *Gateway) Heartbeat(ctx context.Context) error {
	return g.Send(ctx, model.HeartbeatCommand{})
}

// Reset sends the restart trigger to the control port.
func (g *Gateway) Reset(ctx context.Context) error {
	return g.Send(ctx, model.ResetCommand{})
}
