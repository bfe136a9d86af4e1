package wait

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/isitobservable/netwait/pkg/target"
	"github.com/isitobservable/netwait/pkg/types"
)

// probe retries a single target until it becomes ready, the deadline
// passes, the retry limit is hit, or the context is cancelled. Cancellation
// is the only condition reported as an error; everything else is a
// TargetResult.
func (w *Waiter) probe(ctx context.Context, t target.Target) (TargetResult, error) {
	ctx, span := otel.Tracer("netwait").Start(ctx, "probe_target")
	defer span.End()
	span.SetAttributes(
		attribute.String("target", t.String()),
		attribute.String("target.kind", string(t.Kind())),
	)

	start := time.Now()
	deadline := start.Add(w.cfg.Timeout)
	strategy := w.newStrategy()

	attempts := 0
	var lastErr error

	for {
		if ctx.Err() != nil {
			return TargetResult{}, cancelledError(t, ctx)
		}

		now := time.Now()
		if !now.Before(deadline) {
			return w.finish(t, start, attempts, types.WrapError(
				types.ErrCodeWaitTimeout, t.String(), lastErr,
				"overall timeout exceeded after %d attempts", attempts)), nil
		}

		attempts++

		// A late attempt must not overshoot the overall deadline.
		attemptTimeout := w.cfg.ConnectionTimeout
		if remaining := deadline.Sub(now); remaining < attemptTimeout {
			attemptTimeout = remaining
		}

		err := w.attempt(ctx, t, attemptTimeout)
		if err == nil {
			w.log.Info("target ready", "target", t.String(), "attempts", attempts, "elapsed", time.Since(start))
			return TargetResult{
				Target:   t,
				Success:  true,
				Elapsed:  time.Since(start),
				Attempts: attempts,
			}, nil
		}
		lastErr = err
		w.log.Debug("attempt failed", "target", t.String(), "attempt", attempts, "error", err)

		// Gate rejections are terminal: retrying cannot make a forbidden
		// target allowed, and hammering a rate-limited one makes it worse.
		if types.IsPolicy(err) {
			return w.finish(t, start, attempts, err), nil
		}

		if ctx.Err() != nil {
			return TargetResult{}, cancelledError(t, ctx)
		}

		if w.cfg.RetryLimit > 0 && attempts >= w.cfg.RetryLimit {
			return w.finish(t, start, attempts, types.WrapError(
				types.ErrCodeWaitTimeout, t.String(), lastErr,
				"max retries (%d) exceeded", w.cfg.RetryLimit)), nil
		}

		sleep := strategy.Next()
		if remaining := time.Until(deadline); sleep > remaining {
			sleep = remaining
		}
		if sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return TargetResult{}, cancelledError(t, ctx)
			case <-timer.C:
			}
		}
	}
}

// attempt runs the policy gate and then one connection check, recording
// attempt metrics when meters are configured.
func (w *Waiter) attempt(ctx context.Context, t target.Target, timeout time.Duration) error {
	if err := w.cfg.Gate.Check(t); err != nil {
		w.recordAttempt(ctx, t, 0, err)
		return err
	}

	attemptStart := time.Now()
	err := w.checker.Check(ctx, t, timeout)
	w.recordAttempt(ctx, t, time.Since(attemptStart), err)
	return err
}

func (w *Waiter) recordAttempt(ctx context.Context, t target.Target, took time.Duration, err error) {
	if w.meters == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = types.Code(err)
		if outcome == "" {
			outcome = types.ErrCodeInternalError
		}
	}
	attrs := []attribute.KeyValue{
		attribute.String("target.kind", string(t.Kind())),
		attribute.String("outcome", outcome),
	}
	w.meters.AttemptsTotal.Add(ctx, 1, attrsOpt(attrs))
	w.meters.AttemptDuration.Record(ctx, took.Seconds(), attrsOpt(attrs))
}

func (w *Waiter) finish(t target.Target, start time.Time, attempts int, err error) TargetResult {
	return TargetResult{
		Target:   t,
		Success:  false,
		Elapsed:  time.Since(start),
		Attempts: attempts,
		Err:      err,
	}
}

func cancelledError(t target.Target, ctx context.Context) error {
	return types.WrapError(types.ErrCodeCancelled, t.String(), ctx.Err(), "wait cancelled")
}
