package wait

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryStrategy yields the delay before each retry. Implementations are not
// required to be safe for concurrent use; the prober gives each target its
// own instance.
type RetryStrategy interface {
	// Next returns the delay to sleep before the next attempt.
	Next() time.Duration
	// Reset restores the strategy to its initial state.
	Reset()
}

// exponentialStrategy grows the interval by 1.5x per retry up to a cap,
// with no jitter so retry timing stays deterministic.
type exponentialStrategy struct {
	b *backoff.ExponentialBackOff
}

// NewExponentialStrategy builds the default retry strategy: initial delay
// grows by a factor of 1.5 until it reaches max. Intervals below one
// millisecond are raised to one millisecond.
func NewExponentialStrategy(initial, max time.Duration) RetryStrategy {
	if initial < minInterval {
		initial = minInterval
	}
	if max < initial {
		max = initial
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.RandomizationFactor = 0
	b.Multiplier = 1.5
	b.MaxInterval = max
	b.Reset()
	return &exponentialStrategy{b: b}
}

func (s *exponentialStrategy) Next() time.Duration {
	d := s.b.NextBackOff()
	if d < minInterval {
		d = minInterval
	}
	return d
}

func (s *exponentialStrategy) Reset() { s.b.Reset() }

// linearStrategy retries at a fixed interval.
type linearStrategy struct {
	interval time.Duration
}

// NewLinearStrategy builds a fixed-interval strategy.
func NewLinearStrategy(interval time.Duration) RetryStrategy {
	if interval < minInterval {
		interval = minInterval
	}
	return &linearStrategy{interval: interval}
}

func (s *linearStrategy) Next() time.Duration { return s.interval }

func (s *linearStrategy) Reset() {}
