package wait

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialStrategy(t *testing.T) {
	s := NewExponentialStrategy(100*time.Millisecond, time.Second)

	assert.Equal(t, 100*time.Millisecond, s.Next())
	assert.Equal(t, 150*time.Millisecond, s.Next())
	assert.Equal(t, 225*time.Millisecond, s.Next())

	// The interval never exceeds the cap and never decreases.
	prev := time.Duration(0)
	for i := 0; i < 20; i++ {
		d := s.Next()
		assert.LessOrEqual(t, d, time.Second)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
	assert.Equal(t, time.Second, prev)

	s.Reset()
	assert.Equal(t, 100*time.Millisecond, s.Next())
}

func TestExponentialStrategyZeroInterval(t *testing.T) {
	// A zero initial interval must not produce a hot spin.
	s := NewExponentialStrategy(0, 0)
	assert.GreaterOrEqual(t, s.Next(), time.Millisecond)
}

func TestLinearStrategy(t *testing.T) {
	s := NewLinearStrategy(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, s.Next())
	assert.Equal(t, 250*time.Millisecond, s.Next())
	s.Reset()
	assert.Equal(t, 250*time.Millisecond, s.Next())
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{}.Normalize()
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultMaxInterval, cfg.MaxInterval)
	assert.Equal(t, DefaultConnectionTimeout, cfg.ConnectionTimeout)

	// MaxInterval is raised to at least the initial interval.
	cfg = Config{Interval: 10 * time.Second, MaxInterval: time.Second}.Normalize()
	assert.Equal(t, 10*time.Second, cfg.MaxInterval)

	cfg = Config{RetryLimit: -5}.Normalize()
	assert.Zero(t, cfg.RetryLimit)
}

func TestPresets(t *testing.T) {
	assert.Equal(t, 10*time.Second, LocalDev().Timeout)
	assert.Equal(t, 100*time.Millisecond, LocalDev().Interval)
	assert.Equal(t, 5*time.Minute, Docker().Timeout)
	assert.Zero(t, Docker().RetryLimit)
	assert.Equal(t, 2*time.Minute, Production().Timeout)
	assert.NotNil(t, Production().Gate.Validator)
	assert.False(t, Production().Gate.Validator.AllowLocalhost)
	assert.Equal(t, 90*time.Second, Microservices().Timeout)
	assert.Equal(t, 3*time.Minute, ExternalServices().Timeout)
	assert.Equal(t, time.Minute, CICD().Timeout)
}
