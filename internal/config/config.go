package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers selectable through configuration.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverNone   = "none"
)

// Config contains application configuration parameters.
type Config struct {
	LogLevel int   `env:"LOG_LEVEL" envDefault:"0"`
	Store    Store `envPrefix:"STORE_"`
	Poll     Poll  `envPrefix:"POLL_"`
}

// Store contains record store parameters.
type Store struct {
	// Driver selects the embedded engine: sqlite, bolt, or none. The none
	// driver stands in for environments without persistent storage.
	Driver  string `env:"DRIVER" envDefault:"sqlite"`
	DataDir string `env:"DATA_DIR" envDefault:"."`
	// FileName is the database file created inside DataDir.
	FileName string `env:"FILE_NAME" envDefault:"localchat.db"`
}

// Poll contains sync poller parameters.
type Poll struct {
	Interval time.Duration `env:"INTERVAL" envDefault:"2s"`
}

// NewConfig loads configuration from LOCALCHAT_-prefixed environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "LOCALCHAT_"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	switch cfg.Store.Driver {
	case DriverSQLite, DriverBolt, DriverNone:
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return &cfg, nil
}
