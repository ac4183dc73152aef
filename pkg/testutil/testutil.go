// Package testutil provides testing utilities for Burger Drop
package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout that is
// cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
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

// FrameClock is a synthetic monotonic clock for driving frame loops in
// tests without sleeping.
type FrameClock struct {
	now time.Duration
}

// NewFrameClock starts a clock at start.
func NewFrameClock(start time.Duration) *FrameClock {
	return &FrameClock{now: start}
}

// Now returns the current reading.
func (c *FrameClock) Now() time.Duration { return c.now }

// Advance moves the clock forward by d and returns the new reading.
func (c *FrameClock) Advance(d time.Duration) time.Duration {
	c.now += d
	return c.now
}

// Drive calls fn n times, advancing by frame before each call.
func (c *FrameClock) Drive(n int, frame time.Duration, fn func(now time.Duration)) {
	for i := 0; i < n; i++ {
		fn(c.Advance(frame))
	}
}
