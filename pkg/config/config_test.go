package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/isitobservable/netwait/pkg/wait"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, wait.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, wait.DefaultInterval, cfg.Interval)
	assert.Equal(t, wait.DefaultMaxInterval, cfg.MaxInterval)
	assert.Equal(t, wait.DefaultConnectionTimeout, cfg.ConnectionTimeout)
	assert.Zero(t, cfg.RetryLimit)
	assert.Equal(t, 8080, cfg.MCPPort)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("NETWAIT_LOG_LEVEL", "debug")
	t.Setenv("NETWAIT_TIMEOUT", "2m")
	t.Setenv("NETWAIT_INTERVAL", "500ms")
	t.Setenv("NETWAIT_RETRY_LIMIT", "7")
	t.Setenv("NETWAIT_SECURITY_PRESET", "production")
	t.Setenv("NETWAIT_MCP_PORT", "9999")

	cfg := Load()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Interval)
	assert.Equal(t, 7, cfg.RetryLimit)
	assert.Equal(t, "production", cfg.SecurityPreset)
	assert.Equal(t, 9999, cfg.MCPPort)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("NETWAIT_TIMEOUT", "not-a-duration")
	t.Setenv("NETWAIT_RETRY_LIMIT", "-3")
	t.Setenv("NETWAIT_MCP_PORT", "70000")

	cfg := Load()
	assert.Equal(t, wait.DefaultTimeout, cfg.Timeout)
	assert.Zero(t, cfg.RetryLimit)
	assert.Equal(t, 8080, cfg.MCPPort)
}

func TestWaitConfig(t *testing.T) {
	t.Setenv("NETWAIT_TIMEOUT", "45s")
	cfg := Load().WaitConfig()
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Nil(t, cfg.Gate)
	assert.False(t, cfg.WaitForAny)
}
