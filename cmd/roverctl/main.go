package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RoverBridge/internal/app"
	"RoverBridge/internal/core"
	"RoverBridge/internal/model"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	bridge     string
	direct     bool
	host       string
	timeout    time.Duration
}

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "roverctl",
		Short: "Drive and watch the weed robot",
		Long: `roverctl sends mode, joystick, heartbeat and reset commands to the robot,
either through a running bridge (default) or directly as UDP datagrams, and
can follow the robot's telemetry feed.`,
		SilenceUsage: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "configuration file (defaults are used when empty)")
	pf.StringVar(&opts.bridge, "bridge", "http://localhost:8000", "bridge base URL")
	pf.BoolVar(&opts.direct, "direct", false, "send datagrams to the robot instead of going through the bridge")
	pf.StringVar(&opts.host, "host", "", "override the robot host from the configuration")
	pf.DurationVar(&opts.timeout, "timeout", 2*time.Second, "per-command timeout")

	rootCmd.AddCommand(newModeCommand(opts))
	rootCmd.AddCommand(newJoyCommand(opts))
	rootCmd.AddCommand(newHeartbeatCommand(opts))
	rootCmd.AddCommand(newResetCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, model.ErrBadRequest) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func (o *options) config() (*model.Config, error) {
	var cfg *model.Config
	if o.configPath != "" {
		c, err := model.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		c := model.DefaultConfig()
		cfg = &c
	}
	if o.host != "" {
		cfg.Robot.Host = o.host
	}
	return cfg, nil
}

func (o *options) sender() (core.CommandSender, error) {
	if !o.direct {
		return app.NewClient(o.bridge), nil
	}
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	return core.NewGateway(cfg.Robot, o.timeout), nil
}

func (o *options) send(cmd model.Command) error {
	s, err := o.sender()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	if err := s.Send(ctx, cmd); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("OK"), cmd.Kind())
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
