package config

import (
	"testing"
	"time"

	"mcspec/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "UI_PORT", "DEBOUNCE_MS", "ASSUME_CONTINUOUS", "DATA_FILE", "DATABASE_URL", "HISTORY_LIMIT", "DATASET_TTL"} {
		t.Setenv(key, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "8081", cfg.Server.UIPort)
	assert.Equal(t, 400*time.Millisecond, cfg.Resolver.Debounce)
	assert.False(t, cfg.Resolver.AssumeContinuous)
	assert.Equal(t, 25, cfg.History.Limit)
	assert.Equal(t, 30*time.Minute, cfg.Data.TTL)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DEBOUNCE_MS", "150")
	t.Setenv("ASSUME_CONTINUOUS", "true")
	t.Setenv("DATASET_TTL", "5m")
	t.Setenv("HISTORY_LIMIT", "10")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, cfg.Resolver.Debounce)
	assert.True(t, cfg.Resolver.AssumeContinuous)
	assert.Equal(t, 5*time.Minute, cfg.Data.TTL)
	assert.Equal(t, 10, cfg.History.Limit)
}

func TestLoadRejectsNonPositive(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
