package wait

import (
	"time"

	"github.com/isitobservable/netwait/pkg/policy"
)

// Defaults applied by Normalize for unset Config fields.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultInterval          = time.Second
	DefaultMaxInterval       = 30 * time.Second
	DefaultConnectionTimeout = 10 * time.Second

	// minInterval guards against hot-spinning when a caller configures a
	// zero retry interval.
	minInterval = time.Millisecond
)

// Config controls one wait operation.
type Config struct {
	// Timeout bounds the whole operation. The deadline is computed once,
	// when the wait starts.
	Timeout time.Duration
	// Interval is the delay before the first retry.
	Interval time.Duration
	// MaxInterval caps the exponential backoff growth.
	MaxInterval time.Duration
	// ConnectionTimeout bounds a single attempt. The effective per-attempt
	// timeout is the smaller of this and the time left until the deadline.
	ConnectionTimeout time.Duration
	// RetryLimit caps attempts per target. Zero means unlimited.
	RetryLimit int
	// WaitForAny switches from the all strategy (every target must become
	// ready) to the any strategy (first ready target wins).
	WaitForAny bool
	// Gate, when non-nil, is consulted before every attempt. Gate
	// rejections are terminal.
	Gate *policy.Gate
}

// DefaultConfig returns the baseline configuration: 30s overall, 1s initial
// interval, 30s interval cap, 10s per attempt, unlimited retries, all
// strategy, no gate.
func DefaultConfig() Config {
	return Config{
		Timeout:           DefaultTimeout,
		Interval:          DefaultInterval,
		MaxInterval:       DefaultMaxInterval,
		ConnectionTimeout: DefaultConnectionTimeout,
	}
}

// Normalize fills zero durations with defaults and enforces the minimum
// retry interval.
func (c Config) Normalize() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Interval < minInterval {
		c.Interval = minInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	if c.MaxInterval < c.Interval {
		c.MaxInterval = c.Interval
	}
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = DefaultConnectionTimeout
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	return c
}

// LocalDev is tuned for local development loops: short timeout, fast polling.
func LocalDev() Config {
	return Config{
		Timeout:           10 * time.Second,
		Interval:          100 * time.Millisecond,
		MaxInterval:       time.Second,
		ConnectionTimeout: 2 * time.Second,
		RetryLimit:        50,
		Gate:              policy.NewGate(policy.Development(), policy.NewRateLimiter(120, time.Minute)),
	}
}

// CICD is tuned for CI pipelines: moderate timeout and polling.
func CICD() Config {
	return Config{
		Timeout:           time.Minute,
		Interval:          500 * time.Millisecond,
		MaxInterval:       5 * time.Second,
		ConnectionTimeout: 10 * time.Second,
		RetryLimit:        30,
		Gate:              policy.NewGate(policy.Development(), policy.NewRateLimiter(60, time.Minute)),
	}
}

// Docker is tuned for container startup: long timeout, no retry cap.
func Docker() Config {
	return Config{
		Timeout:           5 * time.Minute,
		Interval:          2 * time.Second,
		MaxInterval:       30 * time.Second,
		ConnectionTimeout: 15 * time.Second,
		Gate:              policy.NewGate(policy.Development(), policy.NewRateLimiter(60, time.Minute)),
	}
}

// Production is tuned for production health checks, with the strict
// security preset.
func Production() Config {
	return Config{
		Timeout:           2 * time.Minute,
		Interval:          time.Second,
		MaxInterval:       30 * time.Second,
		ConnectionTimeout: 30 * time.Second,
		RetryLimit:        20,
		Gate:              policy.NewGate(policy.Production(), policy.NewRateLimiter(30, time.Minute)),
	}
}

// Microservices is tuned for service-mesh readiness checks.
func Microservices() Config {
	return Config{
		Timeout:           90 * time.Second,
		Interval:          500 * time.Millisecond,
		MaxInterval:       10 * time.Second,
		ConnectionTimeout: 5 * time.Second,
		RetryLimit:        40,
		Gate:              policy.NewGate(policy.Development(), policy.NewRateLimiter(60, time.Minute)),
	}
}

// ExternalServices is tuned for third-party dependencies: patient polling
// with the strict security preset.
func ExternalServices() Config {
	return Config{
		Timeout:           3 * time.Minute,
		Interval:          5 * time.Second,
		MaxInterval:       time.Minute,
		ConnectionTimeout: 30 * time.Second,
		RetryLimit:        15,
		Gate:              policy.NewGate(policy.Production(), policy.NewRateLimiter(20, time.Minute)),
	}
}
