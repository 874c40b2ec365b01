package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/dfryer1193/apodcache/shared/db/sqlite"
	"github.com/dfryer1193/apodcache/shared/nasa"
)

// Config is the whole server configuration, read from the environment.
type Config struct {
	Port         int            `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel     string         `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string         `env:"LOG_FORMAT" envDefault:"console"`
	ImageDir     string         `env:"IMAGE_CACHE_DIR" envDefault:"./images"`
	CatalogEpoch domain.DateKey `env:"CATALOG_EPOCH" envDefault:"1995-06-16"`

	SQLite sqlite.SQLiteConfig
	Nasa   nasa.Config
}

// Load parses the environment into a Config and checks the values that
// cannot be validated by type alone.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.ImageDir == "" {
		return nil, fmt.Errorf("IMAGE_CACHE_DIR cannot be empty")
	}
	if cfg.Nasa.BaseURL == "" {
		return nil, fmt.Errorf("APOD_BASE_URL cannot be empty")
	}

	return cfg, nil
}
