// Package parser converts between wire formats and the bridge's typed messages.
//
// Robot datagram wire format (UDP, ASCII, one command per datagram):
//
//	control port    AUTO | MANUAL | DISTORTION | EXTRINSIK | RESET
//	joystick port   JOYSTICK:X=<x>,Y=<y>[,B=1]
//	heartbeat port  HEARTBEAT
//
// Telemetry wire format (robot -> bridge): one JSON object per websocket text frame.
package parser

import "RoverBridge/internal/model"

// TelemetryCodec encodes and decodes telemetry frames.
type TelemetryCodec interface {
	EncodeTelemetry(s model.TelemetrySnapshot) (string, error)
	DecodeTelemetry(s string) (model.TelemetrySnapshot, error)
}

// Ports holds the robot UDP port for each command class.
type Ports struct {
	Control   int
	Joystick  int
	Heartbeat int
}

// PortsFrom extracts the command ports from the robot configuration.
func PortsFrom(r model.RobotConfig) Ports {
	return Ports{Control: r.ControlPort, Joystick: r.JoystickPort, Heartbeat: r.HeartbeatPort}
}
