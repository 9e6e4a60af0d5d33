package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicCacheClaim(t *testing.T) {
	t.Parallel()

	c := NewBasicCache[string]()

	first := c.getOrClaim("alice")
	require.True(t, first.claimed)
	require.False(t, first.valid)
	assert.Equal(t, 1, c.Len())

	second := c.getOrClaim("alice")
	require.False(t, second.claimed)
	require.False(t, second.valid)

	c.set("alice", "Paris, France")

	third := c.getOrClaim("alice")
	require.False(t, third.claimed)
	require.True(t, third.valid)
	assert.Equal(t, "Paris, France", third.data)

	c.delete("alice")
	assert.Equal(t, 0, c.Len())

	fourth := c.getOrClaim("alice")
	require.True(t, fourth.claimed)
}

func TestGetOrCreateSingleCaller(t *testing.T) {
	t.Parallel()

	c := NewBasicCache[int]()
	ctx := context.Background()

	calls := 0
	value, created, err := GetOrCreate(ctx, c, "key", func() (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, 42, value)
	require.Equal(t, 1, calls)

	value, created, err = GetOrCreate(ctx, c, "key", func() (int, error) {
		calls++
		return 0, nil
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 42, value)
	require.Equal(t, 1, calls)
}

func TestGetOrCreateConcurrentCallersShareOneCreate(t *testing.T) {
	t.Parallel()

	c, stop := NewTTLCache[string](time.Minute)
	defer stop()
	ctx := context.Background()

	var calls atomic.Int64
	release := make(chan struct{})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, _, err := GetOrCreate(ctx, c, "alice", func() (string, error) {
				calls.Add(1)
				<-release
				return "Paris, France", nil
			})
			assert.NoError(t, err)
			results[i] = value
		}(i)
	}

	// Give every goroutine a chance to enter GetOrCreate before the single
	// create call is allowed to finish.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int64(1), calls.Load())
	for _, value := range results {
		assert.Equal(t, "Paris, France", value)
	}
}

func TestGetOrCreateFailureReleasesClaim(t *testing.T) {
	t.Parallel()

	c := NewBasicCache[string]()
	ctx := context.Background()

	boom := errors.New("boom")
	_, _, err := GetOrCreate(ctx, c, "alice", func() (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, c.Len())

	value, created, err := GetOrCreate(ctx, c, "alice", func() (string, error) {
		return "Oslo, Norway", nil
	})
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, "Oslo, Norway", value)
}
