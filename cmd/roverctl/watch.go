package main

import (
	"fmt"
	"time"

	"RoverBridge/internal/core"
	"RoverBridge/internal/model"

	"github.com/spf13/cobra"
)

func newWatchCommand(opts *options) *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the robot status feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			loop := core.NewLoop(core.SystemClock)
			cc := cfg.Console
			var client *core.TelemetryClient
			client = core.NewTelemetryClient(core.TelemetryConfig{
				URL:   cfg.Robot.StatusURL(),
				Clock: loop.Clock(),
				Post:  loop.Post,
				Publish: func(s *model.TelemetrySnapshot) {
					if compact {
						fmt.Println(renderCompact(s, time.Now()))
						return
					}
					fmt.Println(renderSnapshot(s, client.State()))
				},
				Backoff: core.NewBackoff(model.Millis(cc.ReconnectFloorMs), model.Millis(cc.ReconnectCapMs), cc.ReconnectFactor),
			})
			fmt.Println(mutedStyle.Render("watching " + cfg.Robot.StatusURL()))
			loop.Post(client.Connect)
			loop.Run(ctx)
			client.Shutdown()
			return nil
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "one line per frame")
	return cmd
}
