// Package await implements the bounded poll loop that blocks until a
// backend-tracked async job reaches a terminal state.
package await

import (
	"context"
	"fmt"
	"time"

	"github.com/packbridge/packbridge/core/infra/logging"
	"github.com/packbridge/packbridge/core/infra/metrics"
)

const (
	// DefaultInterval is the pause between poll iterations.
	DefaultInterval = 5 * time.Second
	// DefaultAttempts is the poll attempt budget.
	DefaultAttempts = 600
)

// Resource is the polled view of a processing resource.
type Resource struct {
	State      string
	StorageURI string
}

// Getter fetches the current processing state of a resource locator.
type Getter func(ctx context.Context, locator string) (Resource, error)

// StateError reports a terminal backend state other than the expected
// success state. It is fatal and never retried.
type StateError struct {
	Stage   string
	State   string
	Locator string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("stage %s reached fatal state %q for %s", e.Stage, e.State, e.Locator)
}

// TimeoutError reports attempt-budget exhaustion while the resource was
// still pending. It is distinct from a backend-reported failure.
type TimeoutError struct {
	Stage    string
	Attempts int
	Locator  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("stage %s still pending after %d attempts for %s", e.Stage, e.Attempts, e.Locator)
}

// Waiter polls a resource until a named stage completes.
type Waiter struct {
	Get      Getter
	Interval time.Duration
	Attempts int
	Metrics  metrics.Metrics

	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a waiter with default interval and attempt budget.
func New(get Getter) *Waiter {
	return &Waiter{
		Get:      get,
		Interval: DefaultInterval,
		Attempts: DefaultAttempts,
		Metrics:  metrics.Noop{},
	}
}

// WaitFor polls the resource until its state equals "<stage>Success".
// A "<stage>Pending" state sleeps one interval and consumes one attempt;
// any other state is fatal. Cancelling the context aborts the wait.
func (w *Waiter) WaitFor(ctx context.Context, locator, stage string) (Resource, error) {
	if w.Get == nil {
		return Resource{}, fmt.Errorf("waiter has no getter")
	}
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	attempts := w.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	m := w.Metrics
	if m == nil {
		m = metrics.Noop{}
	}

	success := stage + "Success"
	pending := stage + "Pending"

	for attempt := 0; attempt < attempts; attempt++ {
		res, err := w.Get(ctx, locator)
		if err != nil {
			return Resource{}, fmt.Errorf("poll %s: %w", stage, err)
		}
		m.IncPolls(stage)
		switch res.State {
		case success:
			return res, nil
		case pending:
			if err := w.doSleep(ctx, interval); err != nil {
				return Resource{}, err
			}
		default:
			return Resource{}, &StateError{Stage: stage, State: res.State, Locator: locator}
		}
	}
	logging.Warn("await", "attempt budget exhausted", "stage", stage, "attempts", attempts)
	return Resource{}, &TimeoutError{Stage: stage, Attempts: attempts, Locator: locator}
}

func (w *Waiter) doSleep(ctx context.Context, d time.Duration) error {
	if w.sleep != nil {
		return w.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
