// Package sweeper runs the periodic subscription expiry checks: warning
// users ahead of expiry, deactivating lapsed subscriptions, and reminding
// operators to revoke TradingView access for expired users.
package sweeper

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"surgebot/internal/constants"
	"surgebot/internal/models"
)

// Store is the slice of the persistence layer the sweeps need.
type Store interface {
	ExpiringSubscriptions(lookahead time.Duration) ([]models.User, error)
	DeactivateSubscription(chatID int64) (bool, error)
	ExpiredWithTradingView() ([]models.User, error)
	MarkOperatorNoticed(chatID int64, subEnd time.Time) (bool, error)
	EvictOperatorNotices(olderThan time.Duration) (int64, error)
}

// Notifier delivers a text message to a chat. Failures are per-recipient;
// the sweeps count them and move on.
type Notifier interface {
	Notify(chatID int64, text string) error
}

// Monitor schedules and runs the two sweeps.
type Monitor struct {
	store       Store
	notifier    Notifier
	operatorIDs []int64
	lookahead   time.Duration

	cron      *cron.Cron
	userBusy  atomic.Bool
	adminBusy atomic.Bool

	now func() time.Time
}

// NewMonitor wires a monitor. operatorIDs receive the access-revocation
// notices.
func NewMonitor(store Store, notifier Notifier, operatorIDs []int64) *Monitor {
	return &Monitor{
		store:       store,
		notifier:    notifier,
		operatorIDs: operatorIDs,
		lookahead:   constants.SWEEP_LOOKAHEAD,
		now:         time.Now,
	}
}

// Start registers both sweeps on a cron scheduler and runs each once
// immediately, matching the behavior users expect after a restart.
func (m *Monitor) Start(userInterval, adminInterval time.Duration) error {
	m.cron = cron.New()

	if _, err := m.cron.AddFunc(fmt.Sprintf("@every %s", userInterval), m.RunUserSweep); err != nil {
		return fmt.Errorf("scheduling user sweep: %w", err)
	}
	if _, err := m.cron.AddFunc(fmt.Sprintf("@every %s", adminInterval), m.RunOperatorSweep); err != nil {
		return fmt.Errorf("scheduling operator sweep: %w", err)
	}

	go m.RunUserSweep()
	go m.RunOperatorSweep()

	m.cron.Start()
	log.Printf("Subscription monitoring started (user sweep every %s, operator sweep every %s).", userInterval, adminInterval)
	return nil
}

// Stop halts the scheduler. In-flight sweeps finish on their own.
func (m *Monitor) Stop() {
	if m.cron != nil {
		m.cron.Stop()
		log.Println("Subscription monitoring stopped.")
	}
}

// RunUserSweep processes subscriptions ending within the lookahead window.
// Expired ones are deactivated and notified exactly once; the active flag
// flip in the store is the guard, so an overlapping or repeated run sends
// nothing twice. Not-yet-expired ones get an advisory warning, which may
// repeat across runs. Errors never stop the cycle, let alone the schedule.
func (m *Monitor) RunUserSweep() {
	if !m.userBusy.CompareAndSwap(false, true) {
		log.Println("RunUserSweep: previous run still in flight, skipping.")
		return
	}
	defer m.userBusy.Store(false)

	users, err := m.store.ExpiringSubscriptions(m.lookahead)
	if err != nil {
		log.Printf("RunUserSweep: error querying expiring subscriptions: %v", err)
		return
	}
	if len(users) == 0 {
		return
	}
	log.Printf("RunUserSweep: %d subscriptions ending within %s.", len(users), m.lookahead)

	now := m.now()
	var failures int
	for _, user := range users {
		if !user.Subscription.End.Valid {
			continue
		}
		remaining := user.Subscription.End.Time.Sub(now)

		if remaining <= 0 {
			flipped, err := m.store.DeactivateSubscription(user.ChatID)
			if err != nil {
				log.Printf("RunUserSweep: error deactivating chat_id %d: %v", user.ChatID, err)
				continue
			}
			if !flipped {
				// Someone else (a concurrent run, a renewal) got here first.
				continue
			}
			text := "Your SURGE subscription has expired.\n\n" +
				"To continue receiving signals, renew with /renew."
			if err := m.notifier.Notify(user.ChatID, text); err != nil {
				failures++
				log.Printf("RunUserSweep: could not notify chat_id %d about expiry: %v", user.ChatID, err)
			}
			continue
		}

		hours := int(remaining.Hours())
		text := fmt.Sprintf("Subscription expiring soon.\n\n"+
			"Your SURGE subscription ends in about %d hours. Renew with /renew to avoid any interruption.", hours)
		if err := m.notifier.Notify(user.ChatID, text); err != nil {
			failures++
			log.Printf("RunUserSweep: could not warn chat_id %d: %v", user.ChatID, err)
		}
	}
	if failures > 0 {
		log.Printf("RunUserSweep: %d notifications failed to deliver.", failures)
	}
}

// RunOperatorSweep tells operators about expired users whose TradingView
// access still needs manual removal. The admin_notices table dedups per
// (user, expiry) across runs and restarts; stale entries are evicted after
// the retention window.
func (m *Monitor) RunOperatorSweep() {
	if !m.adminBusy.CompareAndSwap(false, true) {
		log.Println("RunOperatorSweep: previous run still in flight, skipping.")
		return
	}
	defer m.adminBusy.Store(false)

	if _, err := m.store.EvictOperatorNotices(constants.ADMIN_NOTICE_RETENTION); err != nil {
		log.Printf("RunOperatorSweep: error evicting stale notices: %v", err)
	}

	users, err := m.store.ExpiredWithTradingView()
	if err != nil {
		log.Printf("RunOperatorSweep: error querying expired users: %v", err)
		return
	}
	if len(users) == 0 {
		return
	}
	log.Printf("RunOperatorSweep: %d expired users still have TradingView access.", len(users))

	var failures int
	for _, user := range users {
		if !user.Subscription.End.Valid {
			continue
		}
		fresh, err := m.store.MarkOperatorNoticed(user.ChatID, user.Subscription.End.Time)
		if err != nil {
			log.Printf("RunOperatorSweep: error recording notice for chat_id %d: %v", user.ChatID, err)
			continue
		}
		if !fresh {
			continue
		}

		text := fmt.Sprintf("TradingView access removal required.\n\n"+
			"User: %s (chat id %d)\nTradingView: %s\nExpired: %s\n\n"+
			"Please remove this user's TradingView access.",
			user.DisplayName(), user.ChatID, user.TVUsername.String,
			user.Subscription.End.Time.Format(time.RFC1123))

		for _, operatorID := range m.operatorIDs {
			if err := m.notifier.Notify(operatorID, text); err != nil {
				failures++
				log.Printf("RunOperatorSweep: could not notify operator %d: %v", operatorID, err)
			}
		}
	}
	if failures > 0 {
		log.Printf("RunOperatorSweep: %d operator notifications failed to deliver.", failures)
	}
}
