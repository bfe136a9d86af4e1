// Package config loads environment configuration and sets up logging.
// Every setting has a NETWAIT_-prefixed environment variable; CLI flags
// take precedence over the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/isitobservable/netwait/pkg/wait"
)

// Config carries environment-derived defaults for the CLI and MCP server.
type Config struct {
	LogLevel          string
	Timeout           time.Duration
	Interval          time.Duration
	MaxInterval       time.Duration
	ConnectionTimeout time.Duration
	RetryLimit        int
	SecurityPreset    string
	RateLimit         int
	MCPPort           int
}

// Load reads NETWAIT_* environment variables, falling back to the engine
// defaults. Malformed values are ignored rather than fatal so a bad
// environment cannot break a readiness gate.
func Load() *Config {
	cfg := &Config{
		LogLevel:          "info",
		Timeout:           wait.DefaultTimeout,
		Interval:          wait.DefaultInterval,
		MaxInterval:       wait.DefaultMaxInterval,
		ConnectionTimeout: wait.DefaultConnectionTimeout,
		SecurityPreset:    os.Getenv("NETWAIT_SECURITY_PRESET"),
		MCPPort:           8080,
	}

	if v := os.Getenv("NETWAIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if d, ok := envDuration("NETWAIT_TIMEOUT"); ok {
		cfg.Timeout = d
	}
	if d, ok := envDuration("NETWAIT_INTERVAL"); ok {
		cfg.Interval = d
	}
	if d, ok := envDuration("NETWAIT_MAX_INTERVAL"); ok {
		cfg.MaxInterval = d
	}
	if d, ok := envDuration("NETWAIT_CONNECTION_TIMEOUT"); ok {
		cfg.ConnectionTimeout = d
	}
	if n, ok := envInt("NETWAIT_RETRY_LIMIT"); ok && n >= 0 {
		cfg.RetryLimit = n
	}
	if n, ok := envInt("NETWAIT_RATE_LIMIT"); ok && n > 0 {
		cfg.RateLimit = n
	}
	if n, ok := envInt("NETWAIT_MCP_PORT"); ok && n > 0 && n < 65536 {
		cfg.MCPPort = n
	}

	return cfg
}

// WaitConfig converts the environment defaults into an engine config.
// The policy gate is attached separately because presets come from flags too.
func (c *Config) WaitConfig() wait.Config {
	return wait.Config{
		Timeout:           c.Timeout,
		Interval:          c.Interval,
		MaxInterval:       c.MaxInterval,
		ConnectionTimeout: c.ConnectionTimeout,
		RetryLimit:        c.RetryLimit,
	}
}

func envDuration(name string) (time.Duration, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("ignoring malformed duration", "var", name, "value", v)
		return 0, false
	}
	return d, true
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring malformed integer", "var", name, "value", v)
		return 0, false
	}
	return n, true
}

// SetupLogging initializes the global slog logger with JSON output at the
// specified level. Logs go to stderr so stdout stays clean for JSON results.
func SetupLogging(level string) {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))
}
