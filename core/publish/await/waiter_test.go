package await

import (
	"context"
	"errors"
	"testing"
	"time"
)

func sequenceGetter(states ...string) (Getter, *int) {
	calls := new(int)
	return func(ctx context.Context, locator string) (Resource, error) {
		state := states[len(states)-1]
		if *calls < len(states) {
			state = states[*calls]
		}
		*calls++
		return Resource{State: state}, nil
	}, calls
}

func newTestWaiter(get Getter) *Waiter {
	w := New(get)
	w.Interval = time.Millisecond
	w.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return w
}

func TestWaitForSuccessAfterPending(t *testing.T) {
	get, calls := sequenceGetter("CommitFilePending", "CommitFilePending", "CommitFileSuccess")
	w := newTestWaiter(get)

	res, err := w.WaitFor(context.Background(), "/v1/apps/a/files/f", "CommitFile")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.State != "CommitFileSuccess" {
		t.Fatalf("unexpected state: %s", res.State)
	}
	if *calls != 3 {
		t.Fatalf("expected exactly 3 polls, got %d", *calls)
	}
}

func TestWaitForFatalState(t *testing.T) {
	get, calls := sequenceGetter("CommitFilePending", "CommitFileFailed", "CommitFileSuccess")
	w := newTestWaiter(get)

	_, err := w.WaitFor(context.Background(), "/f", "CommitFile")
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if stateErr.State != "CommitFileFailed" {
		t.Fatalf("unexpected fatal state: %s", stateErr.State)
	}
	if *calls != 2 {
		t.Fatalf("expected polling to stop at the fatal state, got %d polls", *calls)
	}
}

func TestWaitForTimedOutStateIsFatal(t *testing.T) {
	get, _ := sequenceGetter("AzureStorageUriRenewalTimedOut")
	w := newTestWaiter(get)

	_, err := w.WaitFor(context.Background(), "/f", "AzureStorageUriRenewal")
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
}

func TestWaitForBudgetExhaustion(t *testing.T) {
	get, calls := sequenceGetter("AzureStorageUriRequestPending")
	w := newTestWaiter(get)
	w.Attempts = 4

	_, err := w.WaitFor(context.Background(), "/f", "AzureStorageUriRequest")
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if timeoutErr.Attempts != 4 || *calls != 4 {
		t.Fatalf("unexpected attempt accounting: err=%d polls=%d", timeoutErr.Attempts, *calls)
	}
}

func TestWaitForOtherStageStateIsFatal(t *testing.T) {
	// A success state for a different stage must not be treated as success.
	get, _ := sequenceGetter("AzureStorageUriRequestSuccess")
	w := newTestWaiter(get)

	_, err := w.WaitFor(context.Background(), "/f", "CommitFile")
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
}

func TestWaitForCancellation(t *testing.T) {
	get, _ := sequenceGetter("CommitFilePending")
	w := New(get)
	w.Interval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := w.WaitFor(ctx, "/f", "CommitFile")
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("wait did not abort on cancellation")
	}
}

func TestWaitForGetterError(t *testing.T) {
	w := newTestWaiter(func(ctx context.Context, locator string) (Resource, error) {
		return Resource{}, errors.New("connection refused")
	})
	if _, err := w.WaitFor(context.Background(), "/f", "CommitFile"); err == nil {
		t.Fatalf("expected getter error to propagate")
	}
}
