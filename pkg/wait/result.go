package wait

import (
	"time"

	"github.com/isitobservable/netwait/pkg/target"
)

// TargetResult reports the outcome of probing one target.
type TargetResult struct {
	Target   target.Target
	Success  bool
	Elapsed  time.Duration
	Attempts int
	// Err is nil on success. On failure it carries the terminal error,
	// wrapping the last connection error observed.
	Err error
}

// Result reports the outcome of one wait operation over a set of targets.
// With the any strategy only the winning target appears in Targets.
type Result struct {
	Success       bool
	Elapsed       time.Duration
	TotalAttempts int
	Targets       []TargetResult
}

// FailedTargets returns the display names of targets that did not become
// ready, in input order.
func (r *Result) FailedTargets() []string {
	var failed []string
	for _, tr := range r.Targets {
		if !tr.Success {
			failed = append(failed, tr.Target.String())
		}
	}
	return failed
}
