// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration read from strings such as "3s" or "500ms".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration string form.
func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Greptime configures the optional live batch export.
type Greptime struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// ClientConfig is the root configuration of the fleet client.
type ClientConfig struct {
	APIBaseURL           string   `yaml:"api_base_url"`
	FeedURL              string   `yaml:"feed_url"`
	ClientID             string   `yaml:"client_id"`
	ReconnectInterval    Duration `yaml:"reconnect_interval"`
	MaxReconnectAttempts int      `yaml:"max_reconnect_attempts"`
	RequestTimeout       Duration `yaml:"request_timeout"`
	LowBatteryThreshold  int      `yaml:"low_battery_threshold"`
	RecordFile           string   `yaml:"record_file"`
	AdminAddr            string   `yaml:"admin_addr"`
	LogLevel             string   `yaml:"log_level"`
	Greptime             Greptime `yaml:"greptime"`
}

// Default returns the configuration used when no file is given.
func Default() ClientConfig {
	return ClientConfig{
		APIBaseURL:           "http://localhost:8080",
		FeedURL:              "ws://localhost:8080/ws",
		ClientID:             "1",
		ReconnectInterval:    Duration(3 * time.Second),
		MaxReconnectAttempts: 5,
		RequestTimeout:       Duration(10 * time.Second),
		LowBatteryThreshold:  20,
		LogLevel:             "info",
		Greptime:             Greptime{Database: "public", Table: "drone_live"},
	}
}

// Load reads configPath over the defaults after validating it against the
// CUE schema at cueSchemaPath, then applies environment overrides. An empty
// configPath yields the defaults plus overrides.
func Load(configPath, cueSchemaPath string) (*ClientConfig, error) {
	cfg := Default()
	if configPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *ClientConfig, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"FLEET_API_URL":       &cfg.APIBaseURL,
		"FLEET_FEED_URL":      &cfg.FeedURL,
		"FLEET_CLIENT_ID":     &cfg.ClientID,
		"GREPTIMEDB_ENDPOINT": &cfg.Greptime.Endpoint,
		"GREPTIMEDB_TABLE":    &cfg.Greptime.Table,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("RECONNECT_INTERVAL"); ok && v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("invalid RECONNECT_INTERVAL: %w", err)
		}
		cfg.ReconnectInterval = Duration(d)
	}
	return nil
}

// parseInterval accepts a duration string or a bare millisecond count.
func parseInterval(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", ms)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", v)
	}
	return d, nil
}
