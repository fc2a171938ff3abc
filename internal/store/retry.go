// ABOUTME: Bounded-retry policy around handle acquisition and execution
// ABOUTME: Reopens a concurrently-closed handle up to a fixed attempt count

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// retryPolicy retries an operation whose handle was closed out from under
// it. No backoff: a closed handle either reopens immediately or the store
// is gone.
type retryPolicy struct {
	attempts int
}

// run acquires the handle and invokes fn, retrying on closed-handle errors.
// Any other error passes through on the first occurrence.
func (p retryPolicy) run(h *handleRef, fn func(db *sql.DB) error) error {
	var lastErr error
	for attempt := 0; attempt < p.attempts; attempt++ {
		db, release, err := h.acquire()
		if err != nil {
			return err
		}
		err = fn(db)
		release()
		if err == nil {
			return nil
		}
		if !isClosedHandle(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("database handle kept closing after %d attempts: %w (last: %v)",
		p.attempts, ErrStoreUnavailable, lastErr)
}

// isClosedHandle reports whether err means the *sql.DB or its connection was
// closed by another goroutine mid-operation.
func isClosedHandle(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
