package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surgebot/internal/constants"
)

func TestUserLimiterAllowsBurst(t *testing.T) {
	ul := newUserLimiter()
	for i := 0; i < constants.RATE_LIMIT_EVENTS; i++ {
		assert.True(t, ul.Allow(100), "event %d within the burst should pass", i)
	}
	assert.False(t, ul.Allow(100), "event beyond the burst should be dropped")
}

func TestUserLimiterEvictsIdleChats(t *testing.T) {
	ul := newUserLimiter()
	clock := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ul.now = func() time.Time { return clock }

	ul.Allow(100)
	ul.Allow(200)
	require.Len(t, ul.limiters, 2)

	// Chat 200 stays active; chat 100 goes quiet for a full window.
	clock = clock.Add(constants.RATE_LIMIT_WINDOW / 2)
	ul.Allow(200)
	clock = clock.Add(constants.RATE_LIMIT_WINDOW/2 + time.Second)
	ul.Allow(300)

	_, stale := ul.limiters[100]
	assert.False(t, stale, "idle chat should be evicted")
	_, active := ul.limiters[200]
	assert.True(t, active, "recently seen chat should survive the sweep")
	require.Len(t, ul.limiters, 2)
}

func TestUserLimiterIsPerChat(t *testing.T) {
	ul := newUserLimiter()
	for i := 0; i < constants.RATE_LIMIT_EVENTS; i++ {
		ul.Allow(100)
	}
	assert.False(t, ul.Allow(100))
	assert.True(t, ul.Allow(200), "a different chat has its own budget")
}
