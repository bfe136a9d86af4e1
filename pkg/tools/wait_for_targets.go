package tools

import (
	"context"
	"time"

	"github.com/isitobservable/netwait/pkg/config"
	"github.com/isitobservable/netwait/pkg/output"
	"github.com/isitobservable/netwait/pkg/policy"
	"github.com/isitobservable/netwait/pkg/target"
	"github.com/isitobservable/netwait/pkg/telemetry"
	"github.com/isitobservable/netwait/pkg/types"
	"github.com/isitobservable/netwait/pkg/wait"
)

// WaitForTargetsTool blocks until the given targets are reachable, with the
// same retry and policy semantics as the CLI.
type WaitForTargetsTool struct {
	Cfg    *config.Config
	Meters *telemetry.Meters
	// Checker overrides the dial checker, for tests.
	Checker wait.Checker
}

func (t *WaitForTargetsTool) Name() string { return "wait_for_targets" }

func (t *WaitForTargetsTool) Description() string {
	return "Wait until TCP host:port or HTTP(S) endpoints become reachable, with exponential backoff. Returns per-target attempts and timing."
}

func (t *WaitForTargetsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"targets": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Targets to wait for: host:port or http(s)://host/path",
			},
			"timeout": map[string]interface{}{
				"type":        "string",
				"description": "Overall timeout as a Go duration, e.g. \"30s\" or \"2m\" (default 30s)",
			},
			"interval": map[string]interface{}{
				"type":        "string",
				"description": "Initial retry interval, e.g. \"1s\" (default 1s)",
			},
			"max_interval": map[string]interface{}{
				"type":        "string",
				"description": "Backoff interval cap, e.g. \"30s\" (default 30s)",
			},
			"connection_timeout": map[string]interface{}{
				"type":        "string",
				"description": "Per-attempt timeout, e.g. \"10s\" (default 10s)",
			},
			"retry_limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum attempts per target; 0 means unlimited",
			},
			"wait_for_any": map[string]interface{}{
				"type":        "boolean",
				"description": "Succeed as soon as one target is ready instead of requiring all",
			},
			"expect_status": map[string]interface{}{
				"type":        "integer",
				"description": "Expected HTTP status code for HTTP targets (default 200)",
			},
			"headers": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "HTTP headers in \"Name: value\" form, applied to all HTTP targets",
			},
			"security_preset": map[string]interface{}{
				"type":        "string",
				"description": "Security policy preset: production, development, or off",
			},
			"rate_limit": map[string]interface{}{
				"type":        "integer",
				"description": "Max attempts per endpoint per minute; 0 disables rate limiting",
			},
		},
		"required": []string{"targets"},
	}
}

func (t *WaitForTargetsTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	specs := getStringSliceArg(args, "targets")
	if len(specs) == 0 {
		return nil, types.NewError(types.ErrCodeInvalidInput, "at least one target must be specified")
	}

	targets, err := parseTargets(specs, args)
	if err != nil {
		return nil, err
	}

	cfg := t.Cfg.WaitConfig()
	cfg.Timeout = getDurationArg(args, "timeout", cfg.Timeout)
	cfg.Interval = getDurationArg(args, "interval", cfg.Interval)
	cfg.MaxInterval = getDurationArg(args, "max_interval", cfg.MaxInterval)
	cfg.ConnectionTimeout = getDurationArg(args, "connection_timeout", cfg.ConnectionTimeout)
	cfg.RetryLimit = getIntArg(args, "retry_limit", cfg.RetryLimit)
	cfg.WaitForAny = getBoolArg(args, "wait_for_any", false)

	gate, err := buildGate(
		getStringArg(args, "security_preset", t.Cfg.SecurityPreset),
		getIntArg(args, "rate_limit", t.Cfg.RateLimit),
	)
	if err != nil {
		return nil, err
	}
	cfg.Gate = gate

	opts := []wait.Option{wait.WithMeters(t.Meters)}
	if t.Checker != nil {
		opts = append(opts, wait.WithChecker(t.Checker))
	}
	waiter := wait.New(cfg, opts...)
	res, waitErr := waiter.Wait(ctx, targets)
	if waitErr != nil && types.IsCancelled(waitErr) {
		return nil, waitErr
	}

	// Timeouts are reported as data, not tool errors: the caller asked
	// whether the targets came up, and "no" is a valid answer.
	return NewResponse(t.Name(), output.BuildJSON(res, waitErr)), nil
}

// parseTargets converts target strings plus shared HTTP options into
// validated targets.
func parseTargets(specs []string, args map[string]interface{}) ([]target.Target, error) {
	expectStatus := getIntArg(args, "expect_status", 200)
	headers, err := target.ParseHeaders(getStringSliceArg(args, "headers"))
	if err != nil {
		return nil, err
	}

	targets, err := target.ParseAll(specs, expectStatus)
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		for i, tgt := range targets {
			withHeaders, err := tgt.WithHeaders(headers)
			if err != nil {
				return nil, err
			}
			targets[i] = withHeaders
		}
	}
	return targets, nil
}

func buildGate(preset string, rateLimit int) (*policy.Gate, error) {
	validator, err := policy.Preset(preset)
	if err != nil {
		return nil, err
	}
	var limiter *policy.RateLimiter
	if rateLimit > 0 {
		limiter = policy.NewRateLimiter(rateLimit, time.Minute)
	}
	if validator == nil && limiter == nil {
		return nil, nil
	}
	return policy.NewGate(validator, limiter), nil
}
