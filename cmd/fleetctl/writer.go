package main

import (
	"log/slog"

	"dronefleet/internal/config"
	"dronefleet/internal/notify"
	"dronefleet/internal/record"
	"dronefleet/internal/store"
)

// newReplayWriter sets up the sinks for replayed updates. Updates always go
// into st, deriving notifications on the way; GreptimeDB receives them
// unless printOnly is set or no endpoint is configured, and logFile re-records
// them as JSONL. The returned cleanup closes any opened file.
func newReplayWriter(cfg *config.ClientConfig, st *store.Store, log *slog.Logger, printOnly bool, logFile string) (record.Writer, func(), error) {
	cleanup := func() {}
	deriver := notify.NewDeriver(notify.NewNotifier(st, log, nil), cfg.LowBatteryThreshold)
	var writer record.Writer = record.NewStoreWriter(st, deriver)

	var extra []record.Writer
	if !printOnly && cfg.Greptime.Endpoint != "" {
		gw, err := record.NewGreptimeDBWriter(cfg.Greptime.Endpoint, cfg.Greptime.Database, cfg.Greptime.Table, log)
		if err != nil {
			return nil, nil, err
		}
		extra = append(extra, gw)
	}
	if logFile != "" {
		fw, err := record.NewFileWriter(logFile)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { fw.Close() }
		extra = append(extra, fw)
	}
	if len(extra) == 0 {
		return writer, cleanup, nil
	}
	return record.NewMultiWriter(append([]record.Writer{writer}, extra...)...), cleanup, nil
}
