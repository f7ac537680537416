package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("RECONCILE_INTERVAL", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "database", cfg.StorageBackend)
	assert.False(t, cfg.UseMemory())
	assert.Equal(t, time.Minute, cfg.ReconcileInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("RECONCILE_INTERVAL", "15s")

	cfg := Load()
	assert.Equal(t, "3000", cfg.Port)
	assert.True(t, cfg.UseMemory())
	assert.Equal(t, 15*time.Second, cfg.ReconcileInterval)
}

func TestLoad_BadIntervalFallsBack(t *testing.T) {
	t.Setenv("RECONCILE_INTERVAL", "soon")
	assert.Equal(t, time.Minute, Load().ReconcileInterval)
}
