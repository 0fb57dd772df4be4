package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dronefleet/internal/record"
	"dronefleet/internal/store"
	"dronefleet/internal/tui"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replayLogFile   string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded live feed",
	Long:  "replay feeds live updates from a JSONL recording through the client store, printing every change and optionally exporting to GreptimeDB.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		st := store.New(store.Initial())
		st.Dispatch(store.SetLoading{Loading: false})
		writer, cleanup, err := newReplayWriter(cfg, st, log, replayPrintOnly, replayLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		printer := tui.NewPrinter(cmd.OutOrStdout(), false)
		done := make(chan struct{})
		go func() {
			printer.Run(ctx, st)
			close(done)
		}()

		n, err := record.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
		cancel()
		<-done
		printer.Print(st.Snapshot())
		fmt.Fprintf(cmd.OutOrStdout(), "replayed %d updates\n", n)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to recorded feed (JSONL)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays without delay)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Do not export to GreptimeDB")
	replayCmd.Flags().StringVar(&replayLogFile, "log-file", "", "Re-record the replayed updates to this JSONL file")
	replayCmd.MarkFlagRequired("input")
}
