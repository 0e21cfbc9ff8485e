package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridironlabs/draftroom/internal/engine"
	"github.com/gridironlabs/draftroom/internal/models"
)

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "draftroom", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5433/draftroom?sslmode=disable", c.DSN())
}

func TestLoadEngineConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadEngineConfig("")
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig().Capacity, cfg.Capacity)
}

func TestLoadEngineConfigPartialOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "format.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
capacity: 10
live_stall_seconds: 20
manual_caps:
  QB: 2
  RB: 8
`), 0o644))

	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Capacity)
	assert.Equal(t, 20*time.Second, cfg.LiveStallAfter)
	assert.Equal(t, 2, cfg.ManualCaps[models.PositionQB])
	// Unnamed settings keep their defaults.
	assert.Equal(t, engine.DefaultConfig().MockStallAfter, cfg.MockStallAfter)
	assert.Equal(t, engine.DefaultConfig().AutoCaps[models.PositionWR], cfg.AutoCaps[models.PositionWR])
}

func TestLoadEngineConfigRejectsBadCaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "format.yaml")
	require.NoError(t, os.WriteFile(path, []byte("manual_caps:\n  LB: 3\n"), 0o644))

	_, err := LoadEngineConfig(path)
	assert.Error(t, err)
}
