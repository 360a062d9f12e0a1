// Package model defines shared configuration structures used to initialize the rover bridge.
package model

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the root structure loaded from configs/config.yml.
type Config struct {
	Robot   RobotConfig   `yaml:"robot"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Console ConsoleConfig `yaml:"console"`
	Sim     SimConfig     `yaml:"sim"`
}

// RobotConfig describes where the robot listens and what it serves.
type RobotConfig struct {
	Host          string `yaml:"host"`           // robot address; empty means 127.0.0.1
	ControlPort   int    `yaml:"control_port"`   // mode and reset strings
	JoystickPort  int    `yaml:"joystick_port"`  // JOYSTICK:X=..,Y=..
	HeartbeatPort int    `yaml:"heartbeat_port"` // HEARTBEAT
	StreamPort    int    `yaml:"stream_port"`    // MJPEG stream and last capture
	StatusPort    int    `yaml:"status_port"`    // websocket status feed
}

// BridgeConfig configures the operator-side HTTP server.
type BridgeConfig struct {
	Listen        string `yaml:"listen"`          // e.g. ":8000"
	StaticDir     string `yaml:"static_dir"`      // served under /static/
	DBPath        string `yaml:"db_path"`         // bbolt history; empty disables the recorder
	HistoryLimit  int    `yaml:"history_limit"`   // snapshots kept in the store
	SendTimeoutMs int    `yaml:"send_timeout_ms"` // UDP write deadline
}

// ConsoleConfig holds the timing of the operator console components.
type ConsoleConfig struct {
	JoystickIntervalMs  int     `yaml:"joystick_interval_ms"`
	HeartbeatIntervalMs int     `yaml:"heartbeat_interval_ms"`
	ReconnectFloorMs    int     `yaml:"reconnect_floor_ms"`
	ReconnectCapMs      int     `yaml:"reconnect_cap_ms"`
	ReconnectFactor     float64 `yaml:"reconnect_factor"`
	WatchdogSettleMs    int     `yaml:"watchdog_settle_ms"`
}

// SimConfig configures the simulated robot.
type SimConfig struct {
	ListenIP           string        `yaml:"listen_ip"`
	StatusAddr         string        `yaml:"status_addr"`
	HeartbeatTimeoutMs int           `yaml:"heartbeat_timeout_ms"`
	StatusIntervalMs   int           `yaml:"status_interval_ms"`
	AllowedSources     []string      `yaml:"allowed_sources"` // IPs or CIDRs; empty allows all
	SerialDevice       string        `yaml:"serial_device"`
	SerialBaud         int           `yaml:"serial_baud"`
	VirtualSerial      VirtualSerial `yaml:"virtual_serial"`
}

// VirtualSerial names a socat PTY pair. The simulator writes to Left.
type VirtualSerial struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// DefaultConfig returns the configuration used when a key is absent.
func DefaultConfig() Config {
	return Config{
		Robot: RobotConfig{
			Host:          "192.168.179.252",
			ControlPort:   5005,
			JoystickPort:  5006,
			HeartbeatPort: 5007,
			StreamPort:    8080,
			StatusPort:    8765,
		},
		Bridge: BridgeConfig{
			Listen:        ":8000",
			StaticDir:     "web/static",
			HistoryLimit:  1000,
			SendTimeoutMs: 1000,
		},
		Console: ConsoleConfig{
			JoystickIntervalMs:  500,
			HeartbeatIntervalMs: 2000,
			ReconnectFloorMs:    1000,
			ReconnectCapMs:      15000,
			ReconnectFactor:     1.7,
			WatchdogSettleMs:    2000,
		},
		Sim: SimConfig{
			ListenIP:           "0.0.0.0",
			StatusAddr:         ":8765",
			HeartbeatTimeoutMs: 5000,
			StatusIntervalMs:   1000,
			SerialBaud:         115200,
		},
	}
}

// LoadConfig reads the YAML file at path on top of DefaultConfig and validates it.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks ports, intervals and the backoff parameters.
func (c *Config) Validate() error {
	var errs []error
	ports := map[string]int{
		"robot.control_port":   c.Robot.ControlPort,
		"robot.joystick_port":  c.Robot.JoystickPort,
		"robot.heartbeat_port": c.Robot.HeartbeatPort,
		"robot.stream_port":    c.Robot.StreamPort,
		"robot.status_port":    c.Robot.StatusPort,
	}
	for name, p := range ports {
		if p < 1 || p > 65535 {
			errs = append(errs, fmt.Errorf("%s out of range: %d", name, p))
		}
	}
	r := c.Robot
	if r.ControlPort == r.JoystickPort || r.ControlPort == r.HeartbeatPort || r.JoystickPort == r.HeartbeatPort {
		errs = append(errs, errors.New("robot command ports must be distinct"))
	}
	positive := map[string]int{
		"console.joystick_interval_ms":  c.Console.JoystickIntervalMs,
		"console.heartbeat_interval_ms": c.Console.HeartbeatIntervalMs,
		"console.reconnect_floor_ms":    c.Console.ReconnectFloorMs,
		"console.watchdog_settle_ms":    c.Console.WatchdogSettleMs,
	}
	for name, v := range positive {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Console.ReconnectCapMs < c.Console.ReconnectFloorMs {
		errs = append(errs, errors.New("console.reconnect_cap_ms must not be below reconnect_floor_ms"))
	}
	if c.Console.ReconnectFactor <= 1 {
		errs = append(errs, errors.New("console.reconnect_factor must be greater than 1"))
	}
	for _, src := range c.Sim.AllowedSources {
		if net.ParseIP(src) == nil {
			if _, _, err := net.ParseCIDR(src); err != nil {
				errs = append(errs, fmt.Errorf("sim.allowed_sources: invalid entry %q", src))
			}
		}
	}
	return errors.Join(errs...)
}

// EffectiveHost returns the robot host, falling back to loopback.
func (r RobotConfig) EffectiveHost() string {
	if r.Host == "" {
		return "127.0.0.1"
	}
	return r.Host
}

// StatusURL is the websocket address of the robot status feed.
func (r RobotConfig) StatusURL() string {
	return "ws://" + net.JoinHostPort(r.EffectiveHost(), strconv.Itoa(r.StatusPort))
}

// StreamURL is the MJPEG stream resource.
func (r RobotConfig) StreamURL() string {
	return "http://" + net.JoinHostPort(r.EffectiveHost(), strconv.Itoa(r.StreamPort)) + "/stream"
}

// LastCaptureURL is the most recent capture image, tagged with ts to defeat caching.
func (r RobotConfig) LastCaptureURL(ts string) string {
	return "http://" + net.JoinHostPort(r.EffectiveHost(), strconv.Itoa(r.StreamPort)) + "/last_capture.jpg?ts=" + ts
}

// Millis converts a millisecond config value into a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
