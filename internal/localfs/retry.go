package localfs

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

const (
	// defaultMaxAttempts is the number of tries before Retry gives up.
	defaultMaxAttempts = 3

	// retryDelay is the fixed pause between attempts. Local busy conditions
	// (another process briefly holding the file) either clear quickly or not
	// at all, so there is no exponential growth here.
	retryDelay = 200 * time.Millisecond
)

// IsBusy reports whether err is a transient "resource busy" local I/O
// condition worth retrying. Everything else surfaces immediately.
func IsBusy(err error) bool {
	err = unwrapPathError(err)
	return errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.ETXTBSY)
}

// Retry executes fn up to maxAttempts times, pausing retryDelay between
// attempts, but only while the failure classifies as busy via [IsBusy].
// It returns nil on the first successful call, a non-busy error as-is, or a
// wrapped error containing the last busy failure once attempts are exhausted.
func Retry(ctx context.Context, maxAttempts int, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := range maxAttempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsBusy(lastErr) {
			return lastErr
		}

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(retryDelay):
			}
		}
	}
	return fmt.Errorf("still busy after %d attempts: %w", maxAttempts, lastErr)
}
