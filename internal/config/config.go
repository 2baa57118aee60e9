// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Race     RaceConfig     `mapstructure:"race"`
	Progress ProgressConfig `mapstructure:"progress"`
	DB       DBConfig       `mapstructure:"db"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// RaceConfig supplies defaults and caps for runner creation.
type RaceConfig struct {
	DefaultMaxProgress int `mapstructure:"default_max_progress"`
	DefaultIncrement   int `mapstructure:"default_increment"`
	DefaultDelayMs     int `mapstructure:"default_delay_ms"`
	MaxRunners         int `mapstructure:"max_runners"`
}

// DefaultDelay returns the configured default tick interval.
func (c RaceConfig) DefaultDelay() time.Duration {
	return time.Duration(c.DefaultDelayMs) * time.Millisecond
}

// ProgressConfig tunes the event hub.
type ProgressConfig struct {
	BufferSize      int `mapstructure:"buffer_size"`
	FlushCount      int `mapstructure:"flush_count"`
	FlushIntervalMs int `mapstructure:"flush_interval_ms"`
	SinkTimeoutSec  int `mapstructure:"sink_timeout_seconds"`
}

// FlushInterval returns the configured hub flush interval.
func (c ProgressConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// SinkTimeout returns the configured per-sink timeout.
func (c ProgressConfig) SinkTimeout() time.Duration {
	return time.Duration(c.SinkTimeoutSec) * time.Second
}

// DBConfig selects and configures the run repository.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
}

// NotifyConfig selects and configures the finish-line notifier.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PACER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("race.default_max_progress", 100)
	v.SetDefault("race.default_increment", 1)
	v.SetDefault("race.default_delay_ms", 500)
	v.SetDefault("race.max_runners", 1000)

	v.SetDefault("progress.buffer_size", 1024)
	v.SetDefault("progress.flush_count", 64)
	v.SetDefault("progress.flush_interval_ms", 250)
	v.SetDefault("progress.sink_timeout_seconds", 5)

	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.dsn", "")

	v.SetDefault("notify.provider", "none")
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic_id", "")

	v.SetDefault("logging.development", false)
}

// Validate checks cross-field invariants after unmarshalling.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d outside (0, 65535]", c.Server.Port)
	}
	if c.Race.DefaultMaxProgress <= 0 {
		return fmt.Errorf("race.default_max_progress must be > 0")
	}
	if c.Race.DefaultIncrement <= 0 {
		return fmt.Errorf("race.default_increment must be > 0")
	}
	if c.Race.DefaultDelayMs < 0 {
		return fmt.Errorf("race.default_delay_ms must be >= 0")
	}
	if c.Race.MaxRunners <= 0 {
		return fmt.Errorf("race.max_runners must be > 0")
	}

	switch c.DB.Provider {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.provider is postgres but db.dsn is not set")
		}
	default:
		return fmt.Errorf("unknown db provider: %s", c.DB.Provider)
	}

	switch c.Notify.Provider {
	case "none", "memory":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.TopicID == "" {
			return fmt.Errorf("notify.provider is pubsub but project_id or topic_id is not set")
		}
	default:
		return fmt.Errorf("unknown notify provider: %s", c.Notify.Provider)
	}
	return nil
}
