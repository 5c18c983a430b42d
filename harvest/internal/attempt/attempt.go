// CLAUDE:SUMMARY Single wrapper for optional browser steps: run with a fixed timeout, log and swallow failure.
// Package attempt formalises the failure policy for optional steps. Every
// optional wait or click in the harvester goes through Optional, so a step
// that times out or errors degrades to a no-op in exactly one place.
package attempt

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Step is one optional unit of browser work.
type Step func(ctx context.Context) error

// Optional runs step bounded by timeout (no bound when timeout <= 0). A
// failure is logged at debug level and reported as false; it never
// propagates. Cancellation of the parent context is also reported as false,
// callers check ctx.Err() to tell the two apart.
func Optional(ctx context.Context, logger *slog.Logger, name string, timeout time.Duration, step Step) bool {
	if logger == nil {
		logger = slog.Default()
	}
	stepCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := step(stepCtx)
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Debug("attempt: step timed out, continuing", "step", name, "timeout", timeout)
	} else {
		logger.Debug("attempt: step skipped", "step", name, "error", err)
	}
	return false
}

// Pause blocks for d or until ctx is done. It returns ctx.Err() in the
// latter case.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
