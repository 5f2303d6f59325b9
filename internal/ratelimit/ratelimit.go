// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit provides the fixed-window token bucket shared by all
// outbound search calls. It is safe for concurrent use by multiple goroutines.
package ratelimit

import (
	"context"
	"time"
)

// Limiter issues up to capacity tokens per window. Tokens are replenished
// to capacity at the start of each window, never beyond it. Callers blocked
// in Acquire are served in roughly arrival order via a shared channel.
type Limiter struct {
	tokens chan struct{}
	ticker *time.Ticker
	done   chan struct{}
}

// New creates a limiter with the given capacity and refill window. The
// bucket starts full. Callers must Stop the limiter when done with it.
func New(capacity int, window time.Duration) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Second
	}

	l := &Limiter{
		tokens: make(chan struct{}, capacity),
		ticker: time.NewTicker(window),
		done:   make(chan struct{}),
	}
	l.refill()
	go l.run()
	return l
}

// Acquire blocks until a token is available or ctx expires. Consuming a
// token is a single channel receive, so concurrent callers can never drive
// the bucket negative.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case <-l.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire consumes a token without blocking and reports whether one was
// available.
func (l *Limiter) TryAcquire() bool {
	select {
	case <-l.tokens:
		return true
	default:
		return false
	}
}

// Stop releases the refill goroutine and ticker. Pending Acquire calls keep
// draining whatever tokens remain.
func (l *Limiter) Stop() {
	l.ticker.Stop()
	close(l.done)
}

func (l *Limiter) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.ticker.C:
			l.refill()
		}
	}
}

// refill tops the bucket up to capacity. Unconsumed tokens carry over
// within the same window, so the total never exceeds capacity.
func (l *Limiter) refill() {
	for {
		select {
		case l.tokens <- struct{}{}:
		default:
			return
		}
	}
}
