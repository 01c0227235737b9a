package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Run from a temp dir so a developer's local config.yaml never leaks in.
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "datacleaner.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "artifacts", cfg.Storage.Dir)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 100, cfg.Anthropic.MaxBatchSize)
	assert.Equal(t, 30, cfg.Anthropic.CacheTTLDays)
	assert.Equal(t, 0.85, cfg.Engine.ReviewThreshold)
	assert.Equal(t, 0.7, cfg.Engine.HybridFloor)
	assert.Equal(t, 10, cfg.Engine.PreviewHead)
	assert.Equal(t, 5000, cfg.Limits.FreeMaxRows)
	assert.Equal(t, 100000, cfg.Limits.ProMaxRows)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATACLEANER_STORE_DRIVER", "postgres")
	t.Setenv("DATACLEANER_ANTHROPIC_KEY", "sk-test")
	t.Setenv("DATACLEANER_ENGINE_REVIEW_THRESHOLD", "0.9")
	t.Setenv("DATACLEANER_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, 0.9, cfg.Engine.ReviewThreshold)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "json"}))
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "console"}))

	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}
