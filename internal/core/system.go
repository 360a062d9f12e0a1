// Package core contains the runtime components of the rover bridge: the command
// gateway, the per-session console (joystick sampler, heartbeat, telemetry client,
// stream watchdog), the telemetry recorder, the robot simulator and the System
// that manages their lifecycle.
package core

import (
	"context"
	"fmt"
	"log"
	"sync"

	"RoverBridge/internal/model"
	"RoverBridge/internal/store"
)

// System manages the lifecycle of the bridge-side components.
// It loads configuration from a YAML file and constructs objects accordingly.
type System struct {
	CfgPath  string
	Config   *model.Config
	Gateway  *Gateway
	Store    *store.TelemetryStore
	Recorder *Recorder

	cancel    context.CancelFunc
	done      chan struct{}
	started   bool
	startLock sync.Mutex
}

// NewSystem reads the configuration at cfgPath and builds the gateway and,
// when a database path is configured, the telemetry store and recorder.
func NewSystem(cfgPath string) (*System, error) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	s := &System{
		CfgPath: cfgPath,
		Config:  cfg,
		Gateway: NewGateway(cfg.Robot, model.Millis(cfg.Bridge.SendTimeoutMs)),
	}
	if cfg.Bridge.DBPath != "" {
		st, err := store.Open(cfg.Bridge.DBPath, cfg.Bridge.HistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("open telemetry store: %w", err)
		}
		s.Store = st
		s.Recorder = NewRecorder(cfg, st, DialWebsocket)
	}
	return s, nil
}

// StartAll starts the background components.
func (s *System) StartAll() error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.started {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	if s.Recorder != nil {
		go func() {
			defer close(s.done)
			s.Recorder.Run(ctx)
		}()
	} else {
		close(s.done)
	}
	log.Printf("[system] robot %s (control %d, joystick %d, heartbeat %d)",
		s.Gateway.Host, s.Config.Robot.ControlPort, s.Config.Robot.JoystickPort, s.Config.Robot.HeartbeatPort)
	s.started = true
	return nil
}

// StopAll stops the recorder and closes the store.
func (s *System) StopAll() {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.started {
		s.cancel()
		<-s.done
		s.started = false
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			log.Printf("[system] error closing telemetry store: %v", err)
		}
		s.Store = nil
	}
}
