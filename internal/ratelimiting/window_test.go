package ratelimiting_test

import (
	"testing"
	"time"

	"github.com/matshaug/flagline/internal/ratelimiting"
	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("inactive by default", func(t *testing.T) {
		t.Parallel()
		w := ratelimiting.NewWindow()
		assert.False(t, w.Active(now))
		assert.Zero(t, w.Until(now))
	})

	t.Run("active until reset", func(t *testing.T) {
		t.Parallel()
		w := ratelimiting.NewWindow()
		w.Set(now.Add(90 * time.Second))

		assert.True(t, w.Active(now))
		assert.Equal(t, 90*time.Second, w.Until(now))
	})

	t.Run("past reset clears", func(t *testing.T) {
		t.Parallel()
		w := ratelimiting.NewWindow()
		w.Set(now.Add(-time.Second))

		assert.False(t, w.Active(now))
		assert.Zero(t, w.Until(now))
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()
		w := ratelimiting.NewWindow()
		w.Set(now.Add(time.Hour))
		w.Clear()

		assert.False(t, w.Active(now))
	})
}
