// Package config loads service and CLI settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/liamcoop/labourcompliance/internal/logger"
)

// Config holds every setting read from the environment.
type Config struct {
	// DatabaseURL selects the Postgres stores. Empty means in-memory stores
	// seeded from the catalog.
	DatabaseURL string `env:"DATABASE_URL"`
	Port        int    `env:"PORT" envDefault:"8080"`

	// RedisURL enables the shared rule cache.
	RedisURL      string        `env:"REDIS_URL"`
	RulesCacheTTL time.Duration `env:"RULES_CACHE_TTL" envDefault:"5m"`

	RulesCatalog      string `env:"RULES_CATALOG" envDefault:"catalog/rules.yaml"`
	RulesCatalogWatch bool   `env:"RULES_CATALOG_WATCH" envDefault:"false"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	// ComplianceServerURL is the rule service the CLI talks to.
	ComplianceServerURL string `env:"COMPLIANCE_SERVER_URL" envDefault:"http://localhost:8080"`

	Log logger.Config
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns the configuration of the current process.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
