// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// newManual returns a limiter whose window never fires, so tests control
// refills by calling refill directly.
func newManual(capacity int) *Limiter {
	return New(capacity, time.Hour)
}

func TestAcquireConsumesCapacity(t *testing.T) {
	l := newManual(3)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.TryAcquire() {
			t.Fatalf("token %d should be available", i)
		}
	}
	if l.TryAcquire() {
		t.Error("bucket should be empty after capacity acquisitions")
	}
}

func TestConcurrentAcquireNeverOverIssues(t *testing.T) {
	const capacity = 4
	const callers = 20

	l := newManual(capacity)
	defer l.Stop()

	var proceeded int32
	var wg sync.WaitGroup
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(ctx); err == nil {
				atomic.AddInt32(&proceeded, 1)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&proceeded); got != capacity {
		t.Errorf("proceeded = %d, want exactly %d per window", got, capacity)
	}
}

func TestRefillRestoresToCapacityOnly(t *testing.T) {
	l := newManual(2)
	defer l.Stop()

	if !l.TryAcquire() {
		t.Fatal("first token should be available")
	}

	// Two refills in a row must not stack beyond capacity.
	l.refill()
	l.refill()

	count := 0
	for l.TryAcquire() {
		count++
	}
	if count != 2 {
		t.Errorf("tokens after refill = %d, want 2", count)
	}
}

func TestAcquireUnblocksOnRefill(t *testing.T) {
	l := newManual(1)
	defer l.Stop()

	if !l.TryAcquire() {
		t.Fatal("first token should be available")
	}

	done := make(chan error, 1)
	go func() {
		done <- l.Acquire(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("Acquire should block on an empty bucket")
	case <-time.After(20 * time.Millisecond):
	}

	l.refill()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Acquire after refill: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock after refill")
	}
}

func TestAcquireContextCancelled(t *testing.T) {
	l := newManual(1)
	defer l.Stop()

	if !l.TryAcquire() {
		t.Fatal("first token should be available")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Acquire(ctx); err != context.Canceled {
		t.Errorf("Acquire on cancelled context = %v, want context.Canceled", err)
	}
}

func TestPeriodicRefill(t *testing.T) {
	l := New(2, 30*time.Millisecond)
	defer l.Stop()

	for l.TryAcquire() {
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Acquire(ctx); err != nil {
		t.Errorf("Acquire should succeed after the window refills: %v", err)
	}
}
