// Package config loads process configuration from environment variables and
// an optional YAML draft-format file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gridironlabs/draftroom/internal/engine"
	"github.com/gridironlabs/draftroom/internal/models"
)

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DBConfigFromEnv reads DB_* environment variables (with defaults).
func DBConfigFromEnv() DBConfig {
	return DBConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "draftroom"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// DSN returns the Postgres connection URL.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// ServerConfig holds the HTTP listener and event bus settings.
type ServerConfig struct {
	Addr        string
	NATSURL     string
	PlayersPath string // CSV or sqlite player catalog
	FormatPath  string // optional YAML draft format
	UseMemory   bool   // in-memory store instead of Postgres
}

// ServerConfigFromEnv reads server settings from the environment.
func ServerConfigFromEnv() ServerConfig {
	return ServerConfig{
		Addr:        getEnv("DRAFTROOM_ADDR", ":8080"),
		NATSURL:     getEnv("NATS_URL", ""),
		PlayersPath: getEnv("DRAFTROOM_PLAYERS", "players.csv"),
		FormatPath:  getEnv("DRAFTROOM_FORMAT", ""),
		UseMemory:   getEnv("DRAFTROOM_STORE", "postgres") == "memory",
	}
}

// Format mirrors the YAML draft-format file. Zero values fall back to the
// engine defaults, so a partial file only overrides what it names.
type Format struct {
	Capacity          int            `yaml:"capacity"`
	PreDraftCountdown int            `yaml:"pre_draft_countdown_seconds"`
	MockStallAfter    int            `yaml:"mock_stall_seconds"`
	LiveStallAfter    int            `yaml:"live_stall_seconds"`
	AutoPickDebounce  int            `yaml:"auto_pick_debounce_seconds"`
	StallSettleDelay  int            `yaml:"stall_settle_seconds"`
	ManualCaps        map[string]int `yaml:"manual_caps"`
	AutoCaps          map[string]int `yaml:"auto_caps"`
}

// LoadEngineConfig builds the engine configuration, overlaying the YAML
// format file at path when it is non-empty.
func LoadEngineConfig(path string) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read format file: %w", err)
	}
	var f Format
	if err := yaml.Unmarshal(data, &f); err != nil {
		return cfg, fmt.Errorf("parse format file: %w", err)
	}

	if f.Capacity > 0 {
		cfg.Capacity = f.Capacity
	}
	if f.PreDraftCountdown > 0 {
		cfg.PreDraftCountdown = time.Duration(f.PreDraftCountdown) * time.Second
	}
	if f.MockStallAfter > 0 {
		cfg.MockStallAfter = time.Duration(f.MockStallAfter) * time.Second
	}
	if f.LiveStallAfter > 0 {
		cfg.LiveStallAfter = time.Duration(f.LiveStallAfter) * time.Second
	}
	if f.AutoPickDebounce > 0 {
		cfg.AutoPickDebounce = time.Duration(f.AutoPickDebounce) * time.Second
	}
	if f.StallSettleDelay > 0 {
		cfg.StallSettleDelay = time.Duration(f.StallSettleDelay) * time.Second
	}
	if len(f.ManualCaps) > 0 {
		caps, err := parseCaps(f.ManualCaps)
		if err != nil {
			return cfg, fmt.Errorf("manual_caps: %w", err)
		}
		cfg.ManualCaps = caps
	}
	if len(f.AutoCaps) > 0 {
		caps, err := parseCaps(f.AutoCaps)
		if err != nil {
			return cfg, fmt.Errorf("auto_caps: %w", err)
		}
		cfg.AutoCaps = caps
	}
	return cfg, nil
}

func parseCaps(raw map[string]int) (map[models.Position]int, error) {
	caps := make(map[models.Position]int, len(raw))
	for pos, limit := range raw {
		p := models.Position(pos)
		if !p.Valid() {
			return nil, fmt.Errorf("unknown position %q", pos)
		}
		if limit <= 0 {
			return nil, fmt.Errorf("cap for %q must be positive", pos)
		}
		caps[p] = limit
	}
	return caps, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
