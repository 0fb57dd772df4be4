package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dronefleet/internal/config"
	"dronefleet/internal/fleet"
	"dronefleet/internal/logging"
	"dronefleet/internal/record"
	"dronefleet/internal/store"
)

func lowBatteryUpdate() fleet.LiveUpdate {
	return fleet.LiveUpdate{
		Type:      fleet.MsgLiveUpdate,
		Drones:    []fleet.Drone{{ID: 4, Name: "Delta-4", Status: fleet.StatusOnline, Battery: 9}},
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}
}

func TestNewReplayWriterPrintOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Greptime.Endpoint = "localhost:4001"
	st := store.New(store.Initial())
	w, cleanup, err := newReplayWriter(&cfg, st, logging.Discard(), true, "")
	if err != nil {
		t.Fatalf("newReplayWriter returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*record.StoreWriter); !ok {
		t.Fatalf("expected *record.StoreWriter, got %T", w)
	}
}

func TestNewReplayWriterGreptimeFallback(t *testing.T) {
	cfg := config.Default()
	st := store.New(store.Initial())
	w, cleanup, err := newReplayWriter(&cfg, st, logging.Discard(), false, "")
	if err != nil {
		t.Fatalf("newReplayWriter returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*record.StoreWriter); !ok {
		t.Fatalf("expected *record.StoreWriter without an endpoint, got %T", w)
	}
}

func TestNewReplayWriterLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replayed.jsonl")
	cfg := config.Default()
	st := store.New(store.Initial())
	w, cleanup, err := newReplayWriter(&cfg, st, logging.Discard(), true, path)
	if err != nil {
		t.Fatalf("newReplayWriter returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*record.MultiWriter); !ok {
		t.Fatalf("expected *record.MultiWriter, got %T", w)
	}
	if err := w.WriteUpdate(lowBatteryUpdate()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected log file to be non-empty")
	}
	s := st.Snapshot()
	if len(s.Drones) != 1 || len(s.Notifications) != 1 || s.Notifications[0].Message != "Low battery on Delta-4: 9%" {
		t.Fatalf("unexpected store state: %+v", s)
	}
}

func TestReplayCommandPrintsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	fw, err := record.NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WriteUpdate(lowBatteryUpdate()); err != nil {
		t.Fatalf("WriteUpdate: %v", err)
	}
	fw.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"replay", "--input", path, "--speed", "0", "--print-only", "--log-level", "error"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("replay: %v", err)
	}
	got := out.String()
	for _, want := range []string{"drones=1 online=1 low_battery=1", "Low battery on Delta-4: 9%", "replayed 1 updates"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}
