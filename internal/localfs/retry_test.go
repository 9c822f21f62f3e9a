package localfs

import (
	"context"
	"errors"
	"io/fs"
	"syscall"
	"testing"
	"time"
)

// busyErr mimics what os.WriteFile returns when another process holds the file.
var busyErr = &fs.PathError{Op: "open", Path: "x.json", Err: syscall.EBUSY}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("called %d times, want 1", calls)
	}
}

func TestRetry_BusyThenSucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func() error {
		calls++
		if calls < 2 {
			return busyErr
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("called %d times, want 2", calls)
	}
}

func TestRetry_AllAttemptsBusy(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func() error {
		calls++
		return busyErr
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if calls != 3 {
		t.Errorf("called %d times, want 3", calls)
	}
	if !errors.Is(err, syscall.EBUSY) {
		t.Errorf("error chain does not contain EBUSY: %v", err)
	}
}

func TestRetry_NonBusyErrorNotRetried(t *testing.T) {
	sentinel := errors.New("disk full")
	calls := 0
	err := Retry(context.Background(), 3, func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("called %d times, want 1 (non-busy errors surface immediately)", calls)
	}
}

func TestRetry_ContextCancelledBeforeAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	calls := 0
	err := Retry(ctx, 3, func() error {
		calls++
		return nil
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if calls != 0 {
		t.Errorf("called %d times, want 0 (context already cancelled)", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got: %v", err)
	}
}

func TestRetry_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	err := Retry(ctx, 10, func() error {
		calls++
		return busyErr
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	// Should have made at least 1 call but fewer than 10 due to timeout.
	if calls < 1 || calls >= 10 {
		t.Errorf("calls = %d, expected between 1 and 9", calls)
	}
}

func TestIsBusy(t *testing.T) {
	if !IsBusy(busyErr) {
		t.Error("EBUSY path error should classify as busy")
	}
	if !IsBusy(syscall.EAGAIN) {
		t.Error("bare EAGAIN should classify as busy")
	}
	if IsBusy(errors.New("no such file")) {
		t.Error("plain error should not classify as busy")
	}
	if IsBusy(nil) {
		t.Error("nil should not classify as busy")
	}
}
