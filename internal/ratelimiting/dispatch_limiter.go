package ratelimiting

import (
	"context"
	"sync"
	"time"
)

// DispatchLimiter gates outbound bridge requests: at most maxConcurrent in
// flight, consecutive dispatches at least minInterval apart, and no dispatch
// while the upstream cool-down window is active.
//
// nowFunc and afterFunc are injected so tests can control time.
type DispatchLimiter struct {
	minInterval time.Duration
	window      *Window
	nowFunc     func() time.Time
	afterFunc   func(time.Duration) <-chan time.Time

	availableSlots chan struct{}

	mu           sync.Mutex
	nextDispatch time.Time
}

func NewDispatchLimiter(
	maxConcurrent int,
	minInterval time.Duration,
	window *Window,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) *DispatchLimiter {
	availableSlots := make(chan struct{}, maxConcurrent)
	for i := 0; i < maxConcurrent; i++ {
		availableSlots <- struct{}{}
	}

	return &DispatchLimiter{
		minInterval:    minInterval,
		window:         window,
		nowFunc:        nowFunc,
		afterFunc:      afterFunc,
		availableSlots: availableSlots,
	}
}

// Acquire blocks until a dispatch may proceed and returns a release function
// that must be called when the request completes (success, failure or
// timeout). On error the slot has already been returned.
func (l *DispatchLimiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case <-l.availableSlots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	release := func() {
		l.availableSlots <- struct{}{}
	}

	// The window may be extended while we wait, so re-check until clear.
	for {
		wait := l.window.Until(l.nowFunc())
		if wait <= 0 {
			break
		}
		select {
		case <-l.afterFunc(wait):
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}

	if err := l.waitForInterval(ctx); err != nil {
		release()
		return nil, err
	}

	return release, nil
}

// waitForInterval reserves the next dispatch time under the lock so two
// concurrent acquirers can never schedule less than minInterval apart.
func (l *DispatchLimiter) waitForInterval(ctx context.Context) error {
	l.mu.Lock()
	now := l.nowFunc()
	scheduled := l.nextDispatch
	if scheduled.Before(now) {
		scheduled = now
	}
	l.nextDispatch = scheduled.Add(l.minInterval)
	l.mu.Unlock()

	wait := scheduled.Sub(now)
	if wait <= 0 {
		return nil
	}

	select {
	case <-l.afterFunc(wait):
		return nil
	case <-ctx.Done():
		// Give the reservation back if nobody scheduled after us.
		l.mu.Lock()
		if l.nextDispatch.Equal(scheduled.Add(l.minInterval)) {
			l.nextDispatch = scheduled
		}
		l.mu.Unlock()
		return ctx.Err()
	}
}
