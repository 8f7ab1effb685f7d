package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
analytics:
  max_lag: 6
  lambda: 0.12
  alpha: 2
  hot_window: 40
  neighbor_k: 3

monitor:
  poll_interval: 30s
  window_size: 150
  threshold: 60
  top_k: 3

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

storage:
  max_spins_per_table: 1000
  db_path: "./data/test.db"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Monitor.PollInterval != 30*time.Second {
		t.Errorf("Unexpected poll interval: %v", cfg.Monitor.PollInterval)
	}
	if cfg.Monitor.WindowSize != 150 {
		t.Errorf("Unexpected window size: %d", cfg.Monitor.WindowSize)
	}
	if cfg.Monitor.MinSpins != 20 {
		t.Errorf("Expected default min_spins 20, got %d", cfg.Monitor.MinSpins)
	}
	opts := cfg.Analytics.Options()
	if opts.MaxLag != 6 || opts.Lambda != 0.12 || opts.Alpha != 2 || opts.HotWindow != 40 || opts.NeighborK != 3 {
		t.Errorf("Unexpected analytics options: %+v", opts)
	}
	if cfg.Telegram.RetryDelayBase != time.Second {
		t.Errorf("Expected default telegram retry delay, got %v", cfg.Telegram.RetryDelayBase)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analytics.MaxLag != 8 || cfg.Analytics.Lambda != 0.08 || cfg.Analytics.Alpha != 1 || cfg.Analytics.NeighborK != 2 {
		t.Errorf("Unexpected analytics defaults: %+v", cfg.Analytics)
	}
	if cfg.Monitor.Threshold != 45 {
		t.Errorf("Unexpected threshold default: %d", cfg.Monitor.Threshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ROULETTEMON_MONITOR_THRESHOLD", "70")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Monitor.Threshold != 70 {
		t.Errorf("Expected env override 70, got %d", cfg.Monitor.Threshold)
	}
}

func TestLoadZeroRadiusAndDecay(t *testing.T) {
	path := writeConfig(t, `
analytics:
  lambda: 0
  neighbor_k: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero lambda and neighbor_k should validate: %v", err)
	}
	opts := cfg.Analytics.Options()
	if opts.Lambda != 0 || opts.NeighborK != 0 {
		t.Errorf("Expected explicit zeros to survive, got %+v", opts)
	}
	if opts.MaxLag != 8 {
		t.Errorf("Expected default max_lag 8, got %d", opts.MaxLag)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/roulettemon.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return cfg
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing telegram token when enabled", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.ChatID = "1"
		}},
		{"missing telegram chat when enabled", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.BotToken = "x"
		}},
		{"feed without url", func(c *Config) {
			c.Feed.Enabled = true
			c.Feed.Tables = []string{"t1"}
		}},
		{"feed without tables", func(c *Config) {
			c.Feed.Enabled = true
			c.Feed.BaseURL = "https://example.com"
		}},
		{"zero max lag", func(c *Config) { c.Analytics.MaxLag = 0 }},
		{"negative lambda", func(c *Config) { c.Analytics.Lambda = -0.1 }},
		{"zero alpha", func(c *Config) { c.Analytics.Alpha = 0 }},
		{"negative hot window", func(c *Config) { c.Analytics.HotWindow = -1 }},
		{"neighbor radius wraps the wheel", func(c *Config) { c.Analytics.NeighborK = 19 }},
		{"threshold above 100", func(c *Config) { c.Monitor.Threshold = 101 }},
		{"poll interval too short", func(c *Config) { c.Monitor.PollInterval = time.Second }},
		{"invalid window size", func(c *Config) { c.Monitor.WindowSize = 0 }},
		{"spin cap below window", func(c *Config) { c.Storage.MaxSpinsPerTable = 10 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() expected error")
			}
		})
	}
}
