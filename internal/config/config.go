package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rewired-gh/roulettemon/internal/analytics"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AnalyticsConfig holds the tuning knobs of the statistics engine
type AnalyticsConfig struct {
	MaxLag    int     `mapstructure:"max_lag"`
	Lambda    float64 `mapstructure:"lambda"`
	Alpha     float64 `mapstructure:"alpha"`
	HotWindow int     `mapstructure:"hot_window"` // 0 = min(60, window length)
	NeighborK int     `mapstructure:"neighbor_k"`
}

// Options converts the section into analytics options.
func (a AnalyticsConfig) Options() analytics.Options {
	return analytics.Options{
		MaxLag:    a.MaxLag,
		Lambda:    a.Lambda,
		Alpha:     a.Alpha,
		HotWindow: a.HotWindow,
		NeighborK: a.NeighborK,
	}
}

// MonitorConfig holds monitoring behavior configuration
type MonitorConfig struct {
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	WindowSize         int           `mapstructure:"window_size"`
	MinSpins           int           `mapstructure:"min_spins"`
	Threshold          int           `mapstructure:"threshold"`
	TopK               int           `mapstructure:"top_k"`
	CooldownMultiplier int           `mapstructure:"cooldown_multiplier"`
	CheckpointInterval int           `mapstructure:"checkpoint_interval"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath           string `mapstructure:"db_path"`
	MaxSpinsPerTable int    `mapstructure:"max_spins_per_table"` // 0 = unlimited
}

// FeedConfig holds the optional results feed configuration
type FeedConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	Tables         []string      `mapstructure:"tables"`
	Limit          int           `mapstructure:"limit"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("ROULETTEMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Analytics defaults
	v.SetDefault("analytics.max_lag", analytics.DefaultMaxLag)
	v.SetDefault("analytics.lambda", analytics.DefaultLambda)
	v.SetDefault("analytics.alpha", analytics.DefaultAlpha)
	v.SetDefault("analytics.hot_window", 0)
	v.SetDefault("analytics.neighbor_k", analytics.DefaultNeighborK)

	// Monitor defaults
	v.SetDefault("monitor.poll_interval", "1m")
	v.SetDefault("monitor.window_size", 200)
	v.SetDefault("monitor.min_spins", 20)
	v.SetDefault("monitor.threshold", 45)
	v.SetDefault("monitor.top_k", 5)
	v.SetDefault("monitor.cooldown_multiplier", 5)
	v.SetDefault("monitor.checkpoint_interval", 12)

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/roulettemon.db")
	v.SetDefault("storage.max_spins_per_table", 5000)

	// Feed defaults
	v.SetDefault("feed.enabled", false)
	v.SetDefault("feed.limit", 100)
	v.SetDefault("feed.timeout", "15s")
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.retry_delay_base", "1s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Analytics config
	if c.Analytics.MaxLag < 1 || c.Analytics.MaxLag > 100 {
		return fmt.Errorf("analytics.max_lag must be between 1 and 100")
	}
	if c.Analytics.Lambda < 0 {
		return fmt.Errorf("analytics.lambda must not be negative")
	}
	if c.Analytics.Alpha <= 0 {
		return fmt.Errorf("analytics.alpha must be positive")
	}
	if c.Analytics.HotWindow < 0 {
		return fmt.Errorf("analytics.hot_window must not be negative")
	}
	if c.Analytics.NeighborK < 0 || 2*c.Analytics.NeighborK+1 > analytics.NumPockets {
		return fmt.Errorf("analytics.neighbor_k must be between 0 and 18")
	}

	// Validate Monitor config
	if c.Monitor.PollInterval < 5*time.Second {
		return fmt.Errorf("monitor.poll_interval must be at least 5 seconds")
	}
	if c.Monitor.WindowSize < 1 {
		return fmt.Errorf("monitor.window_size must be at least 1")
	}
	if c.Monitor.MinSpins < 0 {
		return fmt.Errorf("monitor.min_spins must not be negative")
	}
	if c.Monitor.Threshold < 0 || c.Monitor.Threshold > 100 {
		return fmt.Errorf("monitor.threshold must be between 0 and 100")
	}
	if c.Monitor.TopK < 1 {
		return fmt.Errorf("monitor.top_k must be at least 1")
	}
	if c.Monitor.CooldownMultiplier < 0 {
		return fmt.Errorf("monitor.cooldown_multiplier must not be negative")
	}
	if c.Monitor.CheckpointInterval < 1 {
		return fmt.Errorf("monitor.checkpoint_interval must be at least 1")
	}

	// Validate Storage config
	if c.Storage.MaxSpinsPerTable < 0 {
		return fmt.Errorf("storage.max_spins_per_table must not be negative")
	}
	if c.Storage.MaxSpinsPerTable > 0 && c.Storage.MaxSpinsPerTable < c.Monitor.WindowSize {
		return fmt.Errorf("storage.max_spins_per_table must be at least monitor.window_size")
	}

	// Validate Feed config
	if c.Feed.Enabled {
		if c.Feed.BaseURL == "" {
			return fmt.Errorf("feed.base_url is required when feed is enabled")
		}
		if len(c.Feed.Tables) == 0 {
			return fmt.Errorf("feed.tables must contain at least one table when feed is enabled")
		}
		if c.Feed.Limit < 1 || c.Feed.Limit > 1000 {
			return fmt.Errorf("feed.limit must be between 1 and 1000")
		}
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
