// Package hostconfig loads the tuning knobs a demo host needs around
// the entity-synchronisation core: listen address, packet sizing,
// rate limits, and logging. It never touches Config itself (handle
// timeouts, keepalive interval) — those are a protocol concern and
// belong to the caller who builds a hexahydrate.Config directly.
package hostconfig

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the environment-driven settings for a demo server or
// client process.
//
// Tags:
//
//	env: environment variable name
//	envDefault: default value if not set
type Config struct {
	Addr string `env:"HEXA_ADDR" envDefault:":9302"`

	NATSURL     string `env:"HEXA_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSSubject string `env:"HEXA_NATS_SUBJECT" envDefault:"hexahydrate.sync"`

	KafkaBrokers string `env:"HEXA_KAFKA_BROKERS" envDefault:"localhost:19092"`
	ReplayTopic  string `env:"HEXA_REPLAY_TOPIC" envDefault:"hexahydrate-replay"`

	MaxBytesPerPacket int `env:"HEXA_MAX_BYTES_PER_PACKET" envDefault:"1200"`
	MaxConnections    int `env:"HEXA_MAX_CONNECTIONS" envDefault:"256"`

	SendRatePerSecond  float64 `env:"HEXA_SEND_RATE" envDefault:"60"`
	SendRateBurst      int     `env:"HEXA_SEND_BURST" envDefault:"120"`
	MetricsInterval    time.Duration `env:"HEXA_METRICS_INTERVAL" envDefault:"15s"`

	LogLevel  string `env:"HEXA_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"HEXA_LOG_FORMAT" envDefault:"json"`

	Environment string `env:"HEXA_ENVIRONMENT" envDefault:"development"`
}

// Load reads configuration from a .env file (optional) and the
// process environment, then validates it. Priority: env vars > .env
// file > struct defaults.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("HEXA_ADDR is required")
	}
	if c.MaxBytesPerPacket < 16 {
		return fmt.Errorf("HEXA_MAX_BYTES_PER_PACKET must be >= 16, got %d", c.MaxBytesPerPacket)
	}
	if c.MaxConnections < 1 || c.MaxConnections > 256 {
		return fmt.Errorf("HEXA_MAX_CONNECTIONS must be 1-256, got %d", c.MaxConnections)
	}
	if c.SendRatePerSecond <= 0 {
		return fmt.Errorf("HEXA_SEND_RATE must be > 0, got %.1f", c.SendRatePerSecond)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("HEXA_LOG_LEVEL must be one of: debug, info, warn, error (got %s)", c.LogLevel)
	}

	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("HEXA_LOG_FORMAT must be one of: json, console (got %s)", c.LogFormat)
	}

	return nil
}

// LogFields logs the resolved configuration as structured fields.
func (c *Config) LogFields(logger zerolog.Logger) {
	logger.Info().
		Str("environment", c.Environment).
		Str("addr", c.Addr).
		Str("nats_url", c.NATSURL).
		Str("nats_subject", c.NATSSubject).
		Str("kafka_brokers", c.KafkaBrokers).
		Int("max_bytes_per_packet", c.MaxBytesPerPacket).
		Int("max_connections", c.MaxConnections).
		Float64("send_rate_per_second", c.SendRatePerSecond).
		Int("send_rate_burst", c.SendRateBurst).
		Dur("metrics_interval", c.MetricsInterval).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("configuration loaded")
}
