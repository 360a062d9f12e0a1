package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"RoverBridge/internal/app"
	"RoverBridge/internal/core"
	"RoverBridge/internal/model"

	"github.com/spf13/cobra"
)

func newModeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "mode <AUTO|MANUAL|DISTORTION|EXTRINSIK>",
		Short:     "Switch the robot operating mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"AUTO", "MANUAL", "DISTORTION", "EXTRINSIK"},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := model.ParseMode(args[0])
			if err != nil {
				return err
			}
			return opts.send(model.ModeCommand{Mode: m})
		},
	}
}

func newJoyCommand(opts *options) *cobra.Command {
	var button bool
	cmd := &cobra.Command{
		Use:   "joy <x> <y>",
		Short: "Send one joystick vector (axes in -100..100)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: x must be an integer", model.ErrBadRequest)
			}
			y, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: y must be an integer", model.ErrBadRequest)
			}
			return opts.send(model.JoystickCommand{X: x, Y: y, Button: button})
		},
	}
	cmd.Flags().BoolVarP(&button, "button", "b", false, "press the capture button with this vector")
	return cmd
}

func newHeartbeatCommand(opts *options) *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Send a keepalive, once or repeatedly with --every",
		RunE: func(cmd *cobra.Command, args []string) error {
			if every <= 0 {
				return opts.send(model.HeartbeatCommand{})
			}
			sender, err := opts.sender()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			loop := core.NewLoop(core.SystemClock)
			hb := core.NewHeartbeat(loop.Clock(), sender, every)
			loop.Post(hb.Start)
			fmt.Printf("sending heartbeat every %v, Ctrl+C to stop\n", every)
			loop.Run(ctx)
			hb.Stop()
			return nil
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "repeat at this interval until interrupted")
	return cmd
}

func newResetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the robot state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.send(model.ResetCommand{})
		},
	}
}

func newHistoryCommand(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show telemetry recorded by the bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
			defer cancel()
			recs, err := app.NewClient(opts.bridge).History(ctx, limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println(mutedStyle.Render("no telemetry recorded"))
				return nil
			}
			for _, r := range recs {
				fmt.Println(renderHistoryLine(r))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records")
	return cmd
}
