package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kerbrat/tripcast/core/metrics"
	"github.com/kerbrat/tripcast/core/recalc"
	"github.com/kerbrat/tripcast/core/schedule"
	"github.com/kerbrat/tripcast/infra/mqtt"
	"github.com/kerbrat/tripcast/infra/redistore"
)

// Config is the root configuration document.
type Config struct {
	Store    StoreConfig     `json:"store"`
	API      APIConfig       `json:"api"`
	Schedule schedule.Config `json:"schedule"`
	Recalc   recalc.Config   `json:"recalc"`
	Metrics  metrics.Config  `json:"metrics"`
	MQTT     mqtt.Config     `json:"mqtt"`
}

// APIConfig defines the HTTP API listener.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Validate checks mandatory fields.
func (c APIConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("addr is required when the api is enabled")
	}
	return nil
}

// StoreConfig selects the document store backend and the optional Redis
// cache for forecasts and the recalc queue.
type StoreConfig struct {
	// Backend selects the document store type: "memory", "sqlite" or
	// "postgres".
	Backend string `json:"backend"`
	// DSN is the sqlite file path or the postgres connection URL.
	DSN string `json:"dsn"`
	// Redis, when enabled, holds forecasts and the recalc queue instead of
	// the document store.
	Redis redistore.Config `json:"redis"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Backend == "sqlite" && c.DSN == "" {
		c.DSN = "tripcast.db"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", c.Backend)
	}
	if c.Backend == "postgres" && c.DSN == "" {
		return fmt.Errorf("dsn is required for the postgres backend")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}
	return nil
}

// Load reads the configuration file and applies environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("TC_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "tc_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Store.SetDefaults()
	cfg.API.SetDefaults()
	cfg.Schedule.SetDefaults()
	cfg.Recalc.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.MQTT.SetDefaults()
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.API.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Recalc.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
