// Package testutil provides testing utilities for polycephaly tests.
package testutil

import (
	"context"
	"testing"
	"time"
)

// Eventually polls cond every few milliseconds until it returns true or
// timeout elapses, failing the test with msg in the latter case.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v: %s", timeout, msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Gate is a worker that blocks until its context ends or Release is called.
type Gate struct {
	started chan struct{}
	release chan struct{}
}

// NewGate creates a Gate.
func NewGate() *Gate {
	return &Gate{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

// Worker blocks until released or ctx is done. It returns nil when released
// and ctx.Err() otherwise.
func (g *Gate) Worker(ctx context.Context) error {
	select {
	case g.started <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release lets every blocked Worker return. Call it once.
func (g *Gate) Release() {
	close(g.release)
}

// WaitStarted blocks until Worker has been entered, failing the test after timeout.
func (g *Gate) WaitStarted(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(timeout):
		t.Fatalf("worker did not start within %v", timeout)
	}
}
