// Package config loads the process configuration from a YAML file,
// the same way the rest of the ecosystem does it: unmarshal with
// yaml.v3 into typed structs, then validate the result before letting
// callers depend on it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of the server's YAML configuration
// file.
type Config struct {
	Book        BookConfig        `yaml:"book"`
	Replay      ReplayConfig      `yaml:"replay"`
	Server      ServerConfig      `yaml:"server"`
	Broadcaster BroadcasterConfig `yaml:"broadcaster"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// BookConfig controls the matching engine's construction options.
type BookConfig struct {
	Depth              int  `yaml:"depth"`
	NoLiquidityIsError bool `yaml:"no_liquidity_is_error"`
	SpreadHistory      int  `yaml:"spread_history"`
}

// ReplayConfig points at the CSV tape to drive the engine from.
type ReplayConfig struct {
	CSVPath          string        `yaml:"csv_path"`
	PlaybackSpeed    float64       `yaml:"playback_speed"`
	TimestampIndex   string        `yaml:"timestamp_index_dir"`
	SeekToTimeUnixNs uint64        `yaml:"seek_to_time_unix_ns"`
	Timeout          time.Duration `yaml:"timeout"`
}

// ServerConfig is where the operator surfaces listen.
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
	WSAddr   string `yaml:"ws_addr"`
}

// BroadcasterConfig configures the Kafka trade tape, the raw snapshot
// topic, and whether the websocket fan-out is enabled.
type BroadcasterConfig struct {
	KafkaBrokers  []string `yaml:"kafka_brokers"`
	TradeTopic    string   `yaml:"trade_topic"`
	SnapshotTopic string   `yaml:"snapshot_topic"`
	EnableWS      bool     `yaml:"enable_ws"`
}

// LoggingConfig mirrors infra/logging.Configure's parameters.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Config{
		Book:    BookConfig{Depth: 10},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Metrics: MetricsConfig{Enabled: true, Addr: ":2112"},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Replay.CSVPath) == "" {
		return fmt.Errorf("replay.csv_path is required")
	}
	if cfg.Book.Depth <= 0 {
		return fmt.Errorf("book.depth must be greater than 0")
	}
	if cfg.Replay.PlaybackSpeed < 0 {
		return fmt.Errorf("replay.playback_speed must be >= 0")
	}
	if strings.TrimSpace(cfg.Server.GRPCAddr) == "" {
		return fmt.Errorf("server.grpc_addr is required")
	}
	if len(cfg.Broadcaster.KafkaBrokers) > 0 {
		if cfg.Broadcaster.TradeTopic == "" {
			return fmt.Errorf("broadcaster.trade_topic is required when kafka_brokers is set")
		}
		if cfg.Broadcaster.SnapshotTopic == "" {
			return fmt.Errorf("broadcaster.snapshot_topic is required when kafka_brokers is set")
		}
	}
	return nil
}
