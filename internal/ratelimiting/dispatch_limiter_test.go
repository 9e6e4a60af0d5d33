package ratelimiting_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matshaug/flagline/internal/ratelimiting"
	"github.com/stretchr/testify/require"
)

// MockTime helps control time in tests
type MockTime struct {
	mu          sync.Mutex
	currentTime time.Time
	timers      []chan time.Time
}

func NewMockTime(startTime time.Time) *MockTime {
	return &MockTime{currentTime: startTime}
}

func (m *MockTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

func (m *MockTime) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan time.Time, 1)
	m.timers = append(m.timers, ch)
	return ch
}

func (m *MockTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)

	for _, ch := range m.timers {
		select {
		case ch <- m.currentTime:
		default:
		}
	}
	m.timers = nil
}

func acquireAsync(t *testing.T, limiter *ratelimiting.DispatchLimiter, ctx context.Context) (<-chan struct{}, *func()) {
	t.Helper()

	done := make(chan struct{})
	var release func()
	go func() {
		defer close(done)
		r, err := limiter.Acquire(ctx)
		if err == nil {
			release = r
		}
	}()
	return done, &release
}

func requireDone(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal(msg)
	}
}

func requireBlocked(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-done:
		t.Fatal(msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatchLimiterInterval(t *testing.T) {
	t.Parallel()

	mockTime := NewMockTime(time.Now())
	window := ratelimiting.NewWindow()
	limiter := ratelimiting.NewDispatchLimiter(2, 2*time.Second, window, mockTime.Now, mockTime.After)

	ctx := context.Background()

	// First acquire proceeds immediately.
	release1, err := limiter.Acquire(ctx)
	require.NoError(t, err)

	// Second acquire has a free slot but must wait out the interval.
	done2, release2 := acquireAsync(t, limiter, ctx)
	requireBlocked(t, done2, "second dispatch must wait for the interval")

	mockTime.Advance(2 * time.Second)
	requireDone(t, done2, "second dispatch should proceed after the interval")

	release1()
	(*release2)()
}

func TestDispatchLimiterConcurrency(t *testing.T) {
	t.Parallel()

	mockTime := NewMockTime(time.Now())
	window := ratelimiting.NewWindow()
	limiter := ratelimiting.NewDispatchLimiter(2, time.Millisecond, window, mockTime.Now, mockTime.After)

	ctx := context.Background()

	release1, err := limiter.Acquire(ctx)
	require.NoError(t, err)

	done2, release2 := acquireAsync(t, limiter, ctx)
	mockTime.Advance(time.Millisecond)
	requireDone(t, done2, "second slot should be available")

	// Both slots taken: the third acquire blocks even after the interval.
	done3, release3 := acquireAsync(t, limiter, ctx)
	mockTime.Advance(time.Millisecond)
	requireBlocked(t, done3, "third dispatch must wait for a slot")

	release1()
	mockTime.Advance(time.Millisecond)
	requireDone(t, done3, "third dispatch should proceed after a release")

	(*release2)()
	(*release3)()
}

func TestDispatchLimiterCoolDown(t *testing.T) {
	t.Parallel()

	start := time.Now()
	mockTime := NewMockTime(start)
	window := ratelimiting.NewWindow()
	window.Set(start.Add(time.Minute))

	limiter := ratelimiting.NewDispatchLimiter(2, 2*time.Second, window, mockTime.Now, mockTime.After)

	ctx := context.Background()

	done, release := acquireAsync(t, limiter, ctx)
	requireBlocked(t, done, "dispatch must wait out the cool-down window")

	mockTime.Advance(time.Minute)
	requireDone(t, done, "dispatch should proceed after the window resets")

	(*release)()
}

func TestDispatchLimiterCancel(t *testing.T) {
	t.Parallel()

	mockTime := NewMockTime(time.Now())
	window := ratelimiting.NewWindow()
	limiter := ratelimiting.NewDispatchLimiter(1, 2*time.Second, window, mockTime.Now, mockTime.After)

	release1, err := limiter.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := limiter.Acquire(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled acquire should return")
	}

	// The slot must still be usable after the canceled acquire.
	release1()
	done, release2 := acquireAsync(t, limiter, context.Background())
	mockTime.Advance(2 * time.Second)
	requireDone(t, done, "slot should be available after cancel and release")
	(*release2)()
}

func TestRetryLimiter(t *testing.T) {
	t.Parallel()

	limiter, stop := ratelimiting.NewTokenBucketRetryLimiter(time.Hour, 2)
	defer stop()

	require.True(t, limiter.Consume("alice"))
	require.True(t, limiter.Consume("alice"))
	require.False(t, limiter.Consume("alice"), "burst exhausted")

	// Budgets are per handle.
	require.True(t, limiter.Consume("bob"))
}
