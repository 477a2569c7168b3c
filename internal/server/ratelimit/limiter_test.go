package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_WindowAndRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("1.2.3.4")
		assert.True(t, ok, "hit %d", i)
	}

	ok, retry := l.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	ok, _ = l.Allow("5.6.7.8")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute + time.Millisecond)
	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok, "window slid past the old hits")
}

func TestLimiter_MinimumRetryAfter(t *testing.T) {
	now := time.Now()
	l := New(1, time.Second)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow("k")
	assert.True(t, ok)

	now = now.Add(999 * time.Millisecond)
	ok, retry := l.Allow("k")
	assert.False(t, ok)
	assert.Equal(t, time.Second, retry)
}

func TestLimiter_Defaults(t *testing.T) {
	l := New(0, 0)
	assert.Equal(t, 100, l.maxHits)
	assert.Equal(t, 15*time.Minute, l.window)
}

func TestLimiter_EvictsStaleKeys(t *testing.T) {
	now := time.Now()
	l := New(10, time.Second)
	l.maxMemory = 2
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	now = now.Add(2 * time.Second)
	l.Allow("c")

	assert.Len(t, l.hits, 1)
	_, ok := l.hits["c"]
	assert.True(t, ok)
}
