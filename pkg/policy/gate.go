package policy

import "github.com/isitobservable/netwait/pkg/target"

// Gate composes the security validator and the rate limiter into the single
// pre-attempt check the prober runs. Either component may be nil, which
// disables that check.
type Gate struct {
	Validator *Validator
	Limiter   *RateLimiter
}

// NewGate builds a gate from an optional validator and limiter.
func NewGate(v *Validator, l *RateLimiter) *Gate {
	return &Gate{Validator: v, Limiter: l}
}

// Check runs the validator first, then the limiter. Rejections from either
// are terminal for the probe: they must not be retried.
func (g *Gate) Check(t target.Target) error {
	if g == nil {
		return nil
	}
	if g.Validator != nil {
		if err := g.Validator.Validate(t); err != nil {
			return err
		}
	}
	if g.Limiter != nil {
		if err := g.Limiter.Allow(t); err != nil {
			return err
		}
	}
	return nil
}
