package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const schemaPath = "../../schemas/client.cue"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
api_base_url: https://fleet.example.com
feed_url: wss://fleet.example.com/ws
client_id: ops-7
reconnect_interval: 500ms
low_battery_threshold: 25
greptime:
  endpoint: greptime:4001
  table: live
`)
	cfg, err := Load(path, schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.APIBaseURL != "https://fleet.example.com" || cfg.ClientID != "ops-7" || cfg.LowBatteryThreshold != 25 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.ReconnectInterval.Std() != 500*time.Millisecond {
		t.Errorf("reconnect interval = %v", cfg.ReconnectInterval.Std())
	}
	// untouched fields keep their defaults
	if cfg.RequestTimeout.Std() != 10*time.Second || cfg.MaxReconnectAttempts != 5 || cfg.Greptime.Database != "public" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Greptime.Endpoint != "greptime:4001" || cfg.Greptime.Table != "live" {
		t.Errorf("greptime = %+v", cfg.Greptime)
	}
}

func TestLoadConfig_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"bad scheme":     "api_base_url: ftp://fleet\n",
		"bad feed":       "feed_url: http://fleet/ws\n",
		"bad duration":   "reconnect_interval: soon\n",
		"threshold":      "low_battery_threshold: 120\n",
		"unknown field":  "tick_interval: 1s\n",
		"numeric client": "client_id: 1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body), schemaPath); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	cfg, err := Load("../../config/client.yaml", schemaPath)
	if err != nil {
		t.Fatalf("example config invalid: %v", err)
	}
	if cfg.FeedURL != "ws://localhost:8080/ws" || cfg.ReconnectInterval.Std() != 3*time.Second {
		t.Errorf("unexpected example config: %+v", cfg)
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	t.Setenv("FLEET_API_URL", "http://backend:8080")
	t.Setenv("RECONNECT_INTERVAL", "1500")
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "http://backend:8080" || cfg.ReconnectInterval.Std() != 1500*time.Millisecond {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"FLEET_FEED_URL":      "ws://feed/ws",
		"FLEET_CLIENT_ID":     "9",
		"GREPTIMEDB_ENDPOINT": "db:4001",
		"GREPTIMEDB_TABLE":    "fleet",
		"RECONNECT_INTERVAL":  "2s",
	}
	cfg := Default()
	if err := applyEnv(&cfg, func(k string) (string, bool) { v, ok := env[k]; return v, ok }); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.FeedURL != "ws://feed/ws" || cfg.ClientID != "9" || cfg.Greptime.Endpoint != "db:4001" ||
		cfg.Greptime.Table != "fleet" || cfg.ReconnectInterval.Std() != 2*time.Second {
		t.Errorf("unexpected config: %+v", cfg)
	}

	env["RECONNECT_INTERVAL"] = "-5"
	err := applyEnv(&cfg, func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	if err == nil || !strings.Contains(err.Error(), "RECONNECT_INTERVAL") {
		t.Fatalf("expected RECONNECT_INTERVAL error, got %v", err)
	}
}
