package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dronefleet/internal/client"
	"dronefleet/internal/logging"
	"dronefleet/internal/tui"
)

var (
	watchPlain bool
	watchAdmin string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the fleet live",
	Long:  "watch loads the fleet, opens the live feed and shows every change, as a terminal UI when stdout is a terminal and as log lines otherwise.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		if watchAdmin != "" {
			cfg.AdminAddr = watchAdmin
		}
		tty := term.IsTerminal(int(os.Stdout.Fd()))
		interactive := !watchPlain && tty
		if interactive && logLevel == "" {
			// stderr shares the terminal with the UI
			log = logging.Discard()
		}
		c, err := client.New(cfg, log)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- c.Run(ctx) }()

		if interactive {
			retry := func(ctx context.Context) { c.Retry(ctx) }
			if err := tui.Run(ctx, c.Store, c.Commands, retry); err != nil {
				cancel()
				<-done
				return err
			}
			cancel()
		} else {
			tui.NewPrinter(cmd.OutOrStdout(), tty).Run(ctx, c.Store)
		}
		return <-done
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "Print log lines instead of the terminal UI")
	watchCmd.Flags().StringVar(&watchAdmin, "admin-addr", "", "Serve the status page and metrics on this address (e.g. :9090)")
}
