package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, 300*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Cache.MaxEntries)
	assert.Equal(t, 0.25, cfg.Cache.EvictFraction)
	assert.Equal(t, 24.0, cfg.Animation.FPS)
	assert.Equal(t, 1, cfg.Animation.StartFrame)
	assert.False(t, cfg.FluentBit.Enabled)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "CACHE_TTL=90s\nCACHE_MAX_ENTRIES=7\nANIMATION_FPS=30\nLOG_JSON=true\nFLUENTBIT_ENABLED=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	for _, k := range []string{"CACHE_TTL", "CACHE_MAX_ENTRIES", "ANIMATION_FPS", "LOG_JSON", "FLUENTBIT_ENABLED", "FLUENTBIT_HOST"} {
		k := k
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}

	cfg := Load(path)

	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 7, cfg.Cache.MaxEntries)
	assert.Equal(t, 30.0, cfg.Animation.FPS)
	assert.True(t, cfg.Log.JSON)
	// enabled without a host is switched off
	assert.False(t, cfg.FluentBit.Enabled)
}

func TestEnvHelpers_FallBackOnParseErrors(t *testing.T) {
	t.Setenv("TEST_INT", "nope")
	t.Setenv("TEST_BOOL", "maybe")
	t.Setenv("TEST_FLOAT", "x")
	t.Setenv("TEST_DURATION", "soon")
	t.Setenv("TEST_SECONDS", "45")

	assert.Equal(t, 3, getEnvAsInt("TEST_INT", 3))
	assert.True(t, getEnvAsBool("TEST_BOOL", true))
	assert.Equal(t, 1.5, getEnvAsFloat("TEST_FLOAT", 1.5))
	assert.Equal(t, time.Minute, getEnvAsDuration("TEST_DURATION", time.Minute))
	assert.Equal(t, 45*time.Second, getEnvAsDuration("TEST_SECONDS", time.Minute))
}
