// Package main is the entry point of the rover bridge.
// It loads the configuration, builds the command gateway and telemetry recorder,
// serves the HTTP edge and operator console, and shuts down on SIGINT/SIGTERM.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"RoverBridge/internal/app"
	"RoverBridge/internal/core"
	"RoverBridge/internal/util"
)

func main() {
	cfgPath := flag.String("c", "configs/config.yml", "path to configuration file")
	logFile := flag.String("log", "", "also append logs to this file")
	flag.Parse()

	closer, err := util.SetupLogger(*logFile)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer closer.Close()

	log.Printf("[Main] Using config: %s", *cfgPath)

	sys, err := core.NewSystem(*cfgPath)
	if err != nil {
		log.Fatalf("failed to create system: %v", err)
	}
	if err := sys.StartAll(); err != nil {
		log.Fatalf("failed to start system: %v", err)
	}

	// a nil *TelemetryStore must not become a non-nil History
	var hist app.History
	if sys.Store != nil {
		hist = sys.Store
	}
	web := app.NewApp(sys.Config, sys.Gateway, hist)
	errc := make(chan error, 1)
	go func() { errc <- web.Start(sys.Config.Bridge.Listen) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errc:
		if err != nil {
			util.Error("%v", err)
		}
	}

	log.Println("[Main] Shutting down bridge...")
	web.Stop()
	sys.StopAll()
	log.Println("[Main] Bridge stopped cleanly.")
}
