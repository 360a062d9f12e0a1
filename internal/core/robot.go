package core

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"RoverBridge/internal/device"
	"RoverBridge/internal/model"
	"RoverBridge/internal/parser"
)

// ErrNotManual is returned when a joystick datagram arrives outside MANUAL mode.
var ErrNotManual = errors.New("joystick ignored outside MANUAL mode")

// DefaultThermalPath is read for the simulated CPU temperature when present.
const DefaultThermalPath = "/sys/class/thermal/thermal_zone0/temp"

// Robot simulates the robot endpoint: UDP command listeners on the control,
// joystick and heartbeat ports, and a websocket status feed. Accepted joystick
// lines are relayed to an optional motor controller Device.
type Robot struct {
	Device      device.Device
	Status      *StatusServer
	ThermalPath string

	codec    *parser.DatagramCodec
	listenIP string
	allow    []*net.IPNet
	timeout  time.Duration
	clock    Clock

	mu            sync.Mutex
	mode          model.Mode
	joy           model.JoystickCommand
	lastHeartbeat time.Time
	lastCapture   time.Time
	started       time.Time

	conns []net.PacketConn
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewRobot constructs a simulated robot from cfg. dev may be nil.
func NewRobot(cfg *model.Config, dev device.Device, clock Clock) (*Robot, error) {
	allow, err := parseAllowList(cfg.Sim.AllowedSources)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock
	}
	r := &Robot{
		Device:      dev,
		ThermalPath: DefaultThermalPath,
		codec:       parser.NewDatagramCodec(parser.PortsFrom(cfg.Robot)),
		listenIP:    cfg.Sim.ListenIP,
		allow:       allow,
		timeout:     model.Millis(cfg.Sim.HeartbeatTimeoutMs),
		clock:       clock,
		mode:        model.ModeAuto,
		started:     clock.Now(),
		stop:        make(chan struct{}),
	}
	r.Status = NewStatusServer(cfg.Sim.StatusAddr, model.Millis(cfg.Sim.StatusIntervalMs), r.Snapshot)
	return r, nil
}

// Start binds the three command ports and starts the status feed.
func (r *Robot) Start() error {
	p := r.codec.Ports()
	for _, port := range []int{p.Control, p.Joystick, p.Heartbeat} {
		pc, err := net.ListenPacket("udp", net.JoinHostPort(r.listenIP, strconv.Itoa(port)))
		if err != nil {
			r.closeConns()
			return fmt.Errorf("[sim] listen udp %d: %w", port, err)
		}
		r.conns = append(r.conns, pc)
		r.wg.Add(1)
		go r.serve(port, pc)
		log.Printf("[sim] listening on udp %s:%d", r.listenIP, port)
	}
	if r.Device != nil {
		r.wg.Add(1)
		go r.drainDevice()
	}
	go r.Status.Start()
	return nil
}

func (r *Robot) serve(port int, pc net.PacketConn) {
	defer r.wg.Done()
	buf := make([]byte, 1024)
	for {
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			select {
			case <-r.stop:
				return
			default:
			}
			log.Printf("[sim] udp %d read err: %v", port, err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		var src net.IP
		if ua, ok := addr.(*net.UDPAddr); ok {
			src = ua.IP
		}
		if err := r.Handle(port, src, buf[:n]); err != nil && !errors.Is(err, ErrNotManual) {
			log.Printf("[sim] udp %d from %v: %v", port, addr, err)
		}
	}
}

// drainDevice logs whatever the motor controller prints back.
func (r *Robot) drainDevice() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stop:
			return
		default:
		}
		line, err := r.Device.ReadLine(500 * time.Millisecond)
		if err != nil {
			if !errors.Is(err, device.ErrTimeout) {
				time.Sleep(100 * time.Millisecond)
			}
			continue
		}
		if line = strings.TrimSpace(line); line != "" {
			log.Printf("[sim] controller: %s", line)
		}
	}
}

// Handle applies one datagram received on port from src.
func (r *Robot) Handle(port int, src net.IP, payload []byte) error {
	if !r.allowed(src) {
		return fmt.Errorf("%w: source %v not allowed", model.ErrBadRequest, src)
	}
	cmd, err := r.codec.Decode(port, payload)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	switch c := cmd.(type) {
	case model.ModeCommand:
		if c.Mode != r.mode {
			log.Printf("[sim] mode %s -> %s", r.mode, c.Mode)
		}
		r.mode = c.Mode
		if c.Mode != model.ModeManual {
			r.joy = model.JoystickCommand{}
		}
	case model.ResetCommand:
		log.Printf("[sim] reset requested")
		r.mode = model.ModeAuto
		r.joy = model.JoystickCommand{}
		r.lastCapture = time.Time{}
	case model.HeartbeatCommand:
		r.lastHeartbeat = now
	case model.JoystickCommand:
		if r.mode != model.ModeManual {
			return ErrNotManual
		}
		if c.Button {
			r.lastCapture = now
			log.Printf("[sim] capture at %s", now.Format(time.RFC3339))
		}
		c.Button = false
		r.joy = c
		if r.Device != nil {
			if err := r.Device.WriteLine(parser.StripButton(c)); err != nil {
				return fmt.Errorf("relay to controller: %w", err)
			}
		}
	}
	return nil
}

// Snapshot builds the current status frame.
func (r *Robot) Snapshot() model.TelemetrySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	stream := !r.lastHeartbeat.IsZero() && now.Sub(r.lastHeartbeat) < r.timeout
	s := model.TelemetrySnapshot{
		Mode:      string(r.mode),
		Stream:    &stream,
		Time:      now.Format("2006-01-02 15:04:05"),
		Uptime:    formatUptime(now.Sub(r.started)),
		Joystick:  &model.JoystickPosition{X: r.joy.X, Y: r.joy.Y},
		Timestamp: model.Number(float64(now.Unix())),
	}
	if t, ok := readCPUTemp(r.ThermalPath); ok {
		s.CPUTemp = model.Number(t)
	}
	if !r.lastCapture.IsZero() {
		s.LastCaptureTS = model.Number(float64(r.lastCapture.Unix()))
	}
	return s
}

// Stop closes the listeners, the status feed and the device.
func (r *Robot) Stop() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	r.closeConns()
	r.Status.Stop()
	if r.Device != nil {
		if err := r.Device.Close(); err != nil {
			log.Printf("[sim] warning: close device: %v", err)
		}
	}
	r.wg.Wait()
}

func (r *Robot) closeConns() {
	for _, c := range r.conns {
		_ = c.Close()
	}
	r.conns = nil
}

func (r *Robot) allowed(src net.IP) bool {
	if len(r.allow) == 0 {
		return true
	}
	if src == nil {
		return false
	}
	for _, n := range r.allow {
		if n.Contains(src) {
			return true
		}
	}
	return false
}

// parseAllowList accepts bare IPs and CIDRs.
func parseAllowList(entries []string) ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, e := range entries {
		if ip := net.ParseIP(e); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return nil, fmt.Errorf("allowed source %q: %w", e, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func readCPUTemp(path string) (float64, bool) {
	if path == "" {
		return 0, false
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	milli, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, false
	}
	return math.Round(float64(milli)/100) / 10, true
}

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
