package handlers

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"surgebot/internal/constants"
)

// userLimiter enforces a per-chat message rate so a single user cannot
// flood the verification pipeline. Entries idle for longer than the rate
// window are evicted on the next pass, keeping the map bounded by the
// number of recently active chats.
type userLimiter struct {
	mu        sync.Mutex
	limiters  map[int64]*limiterEntry
	lastSweep time.Time
	now       func() time.Time // stubbed in tests
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter() *userLimiter {
	return &userLimiter{
		limiters: make(map[int64]*limiterEntry),
		now:      time.Now,
	}
}

// Allow reports whether chatID may process another update right now.
func (ul *userLimiter) Allow(chatID int64) bool {
	now := ul.now()

	ul.mu.Lock()
	defer ul.mu.Unlock()

	// An entry idle for a full window has a refilled budget anyway, so
	// dropping and recreating it changes nothing for the user.
	if now.Sub(ul.lastSweep) > constants.RATE_LIMIT_WINDOW {
		for id, entry := range ul.limiters {
			if now.Sub(entry.lastSeen) > constants.RATE_LIMIT_WINDOW {
				delete(ul.limiters, id)
			}
		}
		ul.lastSweep = now
	}

	entry, ok := ul.limiters[chatID]
	if !ok {
		entry = &limiterEntry{
			lim: rate.NewLimiter(rate.Every(constants.RATE_LIMIT_WINDOW/constants.RATE_LIMIT_EVENTS), constants.RATE_LIMIT_EVENTS),
		}
		ul.limiters[chatID] = entry
	}
	entry.lastSeen = now
	return entry.lim.Allow()
}
