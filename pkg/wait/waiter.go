// Package wait implements the readiness engine: it probes TCP and HTTP
// targets with exponential backoff until they become reachable, a deadline
// passes, or the caller cancels.
package wait

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"

	"github.com/isitobservable/netwait/pkg/target"
	"github.com/isitobservable/netwait/pkg/telemetry"
	"github.com/isitobservable/netwait/pkg/types"
)

// Waiter probes sets of targets according to a Config. One Waiter may be
// reused across Wait calls and is safe for concurrent use.
type Waiter struct {
	cfg         Config
	checker     Checker
	log         *slog.Logger
	meters      *telemetry.Meters
	newStrategy func() RetryStrategy
}

// Option customizes a Waiter.
type Option func(*Waiter)

// WithChecker replaces the connection checker. Tests use this to substitute
// scripted outcomes for real dials.
func WithChecker(c Checker) Option {
	return func(w *Waiter) { w.checker = c }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Waiter) { w.log = l }
}

// WithMeters enables attempt and wait metrics.
func WithMeters(m *telemetry.Meters) Option {
	return func(w *Waiter) { w.meters = m }
}

// WithStrategy replaces the retry strategy factory. The factory is invoked
// once per target so strategies need not be concurrency-safe.
func WithStrategy(f func() RetryStrategy) Option {
	return func(w *Waiter) { w.newStrategy = f }
}

// New builds a Waiter. The config is normalized first.
func New(cfg Config, opts ...Option) *Waiter {
	cfg = cfg.Normalize()
	w := &Waiter{
		cfg:     cfg,
		checker: NewDialChecker(),
		log:     slog.Default(),
		newStrategy: func() RetryStrategy {
			return NewExponentialStrategy(cfg.Interval, cfg.MaxInterval)
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wait probes targets with the given config using a one-off Waiter. It is
// the convenience entry point for library callers.
func Wait(ctx context.Context, targets []target.Target, cfg Config) (*Result, error) {
	return New(cfg).Wait(ctx, targets)
}

// Wait probes all targets concurrently and blocks until the configured
// strategy is satisfied. The returned Result is non-nil whenever the
// operation ran to completion, including failures, so callers can report
// per-target outcomes; the error is non-nil when the operation failed or
// was cancelled. An empty target set succeeds immediately.
func (w *Waiter) Wait(ctx context.Context, targets []target.Target) (*Result, error) {
	start := time.Now()

	if len(targets) == 0 {
		return &Result{Success: true, Elapsed: time.Since(start)}, nil
	}

	var (
		res *Result
		err error
	)
	if w.cfg.WaitForAny {
		res, err = w.waitAny(ctx, targets, start)
	} else {
		res, err = w.waitAll(ctx, targets, start)
	}
	w.recordWait(ctx, res, err, time.Since(start))
	return res, err
}

// waitAll probes every target and requires all of them to become ready.
func (w *Waiter) waitAll(ctx context.Context, targets []target.Target, start time.Time) (*Result, error) {
	results := make([]TargetResult, len(targets))
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t target.Target) {
			defer wg.Done()
			results[i], errs[i] = w.probe(ctx, t)
		}(i, t)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	res := &Result{Success: true, Elapsed: time.Since(start), Targets: results}
	var failures error
	for _, tr := range results {
		res.TotalAttempts += tr.Attempts
		if !tr.Success {
			res.Success = false
			failures = multierr.Append(failures, tr.Err)
		}
	}
	if !res.Success {
		return res, types.WrapError(types.ErrCodeWaitTimeout, "", failures,
			"targets not ready: %s", strings.Join(res.FailedTargets(), ", "))
	}
	return res, nil
}

// waitAny probes every target and succeeds as soon as one becomes ready,
// cancelling the rest. Only the winner appears in the result.
func (w *Waiter) waitAny(ctx context.Context, targets []target.Target, start time.Time) (*Result, error) {
	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		res TargetResult
		err error
	}
	outcomes := make(chan outcome, len(targets))
	for _, t := range targets {
		go func(t target.Target) {
			res, err := w.probe(probeCtx, t)
			outcomes <- outcome{res: res, err: err}
		}(t)
	}

	var losers []TargetResult
	for range targets {
		o := <-outcomes
		if o.err == nil && o.res.Success {
			cancel()
			return &Result{
				Success:       true,
				Elapsed:       time.Since(start),
				TotalAttempts: o.res.Attempts,
				Targets:       []TargetResult{o.res},
			}, nil
		}
		if o.err != nil {
			// Cancellation of sibling probes after a winner is handled
			// above; an error here means the parent context went away.
			if ctx.Err() != nil {
				return nil, o.err
			}
			continue
		}
		losers = append(losers, o.res)
	}

	if ctx.Err() != nil {
		return nil, types.WrapError(types.ErrCodeCancelled, "", ctx.Err(), "wait cancelled")
	}

	res := &Result{Success: false, Elapsed: time.Since(start), Targets: losers}
	var failures error
	for _, tr := range losers {
		res.TotalAttempts += tr.Attempts
		failures = multierr.Append(failures, tr.Err)
	}
	return res, types.WrapError(types.ErrCodeWaitTimeout, "", failures,
		"no target became ready: %s", strings.Join(res.FailedTargets(), ", "))
}

func (w *Waiter) recordWait(ctx context.Context, res *Result, err error, took time.Duration) {
	if w.meters == nil {
		return
	}
	outcome := "success"
	switch {
	case err != nil && types.IsCancelled(err):
		outcome = types.ErrCodeCancelled
	case err != nil || res == nil || !res.Success:
		outcome = types.ErrCodeWaitTimeout
	}
	attrs := attrsOpt([]attribute.KeyValue{
		attribute.String("outcome", outcome),
		attribute.Bool("any", w.cfg.WaitForAny),
	})
	w.meters.WaitsTotal.Add(ctx, 1, attrs)
	w.meters.WaitDuration.Record(ctx, took.Seconds(), attrs)
}

func attrsOpt(attrs []attribute.KeyValue) metric.MeasurementOption {
	return telemetry.WithAttrs(attrs...)
}
