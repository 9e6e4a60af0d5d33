package ratelimiting

import (
	"sync"
	"time"
)

// Window is the process-wide cool-down declared by the upstream API. A zero
// reset time means no active cool-down. It is written out-of-band by the page
// bridge and read by the dispatch limiter.
type Window struct {
	mu        sync.Mutex
	resetTime time.Time
}

func NewWindow() *Window {
	return &Window{}
}

func (w *Window) Set(resetTime time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetTime = resetTime
}

func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetTime = time.Time{}
}

// Until returns how long dispatch must still wait, or 0 when no cool-down is
// active. A reset time in the past clears the window.
func (w *Window) Until(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.resetTime.IsZero() {
		return 0
	}
	if !w.resetTime.After(now) {
		w.resetTime = time.Time{}
		return 0
	}
	return w.resetTime.Sub(now)
}

func (w *Window) Active(now time.Time) bool {
	return w.Until(now) > 0
}
