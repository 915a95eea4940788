// Package testutil provides testing utilities for slotpool packages.
package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// RunConcurrently starts workers goroutines running fn and waits for all of
// them. The first non-nil error fails the test.
func RunConcurrently(t *testing.T, workers int, fn func(worker int) error) {
	t.Helper()

	var g errgroup.Group
	start := make(chan struct{})
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			<-start
			return fn(w)
		})
	}
	close(start)

	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent worker failed: %v", err)
	}
}

// Sequence hands out distinct positive integers. Tests use it to build
// factories whose objects are easy to tell apart.
type Sequence struct {
	next atomic.Int64
}

// Next returns the next value, starting at 1.
func (s *Sequence) Next() int {
	return int(s.next.Add(1))
}

// Count returns how many values were handed out.
func (s *Sequence) Count() int {
	return int(s.next.Load())
}
