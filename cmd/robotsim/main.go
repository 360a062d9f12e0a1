// Robot simulator: listens for command datagrams on the control, joystick and
// heartbeat ports, relays joystick lines to a serial motor controller, and serves
// the status websocket. Use it for local testing without the real robot.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RoverBridge/internal/core"
	"RoverBridge/internal/device"
	"RoverBridge/internal/model"
	"RoverBridge/internal/util"
)

func main() {
	cfgPath := flag.String("c", "configs/config.yml", "path to configuration file")
	virt := flag.Bool("virtual-serial", false, "create the configured socat PTY pair and relay into it")
	flag.Parse()

	if _, err := util.SetupLogger(""); err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}

	cfg, err := model.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if *virt {
		vs := cfg.Sim.VirtualSerial
		pair, err := util.OpenVirtualPair(vs.Left, vs.Right, 3*time.Second)
		if err != nil {
			log.Fatalf("open sim.virtual_serial pair: %v", err)
		}
		defer func() {
			if err := pair.Close(); err != nil {
				log.Printf("[sim] warning: virtual serial cleanup: %v", err)
			}
		}()
		cfg.Sim.SerialDevice = pair.Left
	}

	var dev device.Device
	if cfg.Sim.SerialDevice != "" {
		sd, err := device.NewSerialDevice(cfg.Sim.SerialDevice, cfg.Sim.SerialBaud)
		if err != nil {
			log.Fatalf("open motor controller: %v", err)
		}
		dev = sd
		log.Printf("[sim] relaying joystick to %s @ %d", sd.Path(), cfg.Sim.SerialBaud)
	}

	robot, err := core.NewRobot(cfg, dev, core.SystemClock)
	if err != nil {
		log.Fatalf("create robot: %v", err)
	}
	if err := robot.Start(); err != nil {
		log.Fatalf("start robot: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("[sim] shutting down...")
	robot.Stop()
	log.Println("[sim] stopped")
}
