package sweeper

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surgebot/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	notices map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[int64]*models.User),
		notices: make(map[string]bool),
	}
}

func (s *fakeStore) addUser(chatID int64, end time.Time, active bool, tvUsername string) {
	s.users[chatID] = &models.User{
		ChatID:     chatID,
		TVUsername: sql.NullString{String: tvUsername, Valid: tvUsername != ""},
		Subscription: models.Subscription{
			End:    sql.NullTime{Time: end, Valid: true},
			Active: active,
		},
	}
}

func (s *fakeStore) ExpiringSubscriptions(lookahead time.Duration) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	cutoff := time.Now().Add(lookahead)
	for _, u := range s.users {
		if u.Subscription.Active && u.Subscription.End.Time.Before(cutoff) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *fakeStore) DeactivateSubscription(chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chatID]
	if !ok || !u.Subscription.Active {
		return false, nil
	}
	u.Subscription.Active = false
	return true, nil
}

func (s *fakeStore) ExpiredWithTradingView() ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	now := time.Now()
	for _, u := range s.users {
		if !u.Subscription.Active && u.Subscription.End.Time.Before(now) && u.TVUsername.Valid {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkOperatorNoticed(chatID int64, subEnd time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%d|%d", chatID, subEnd.UnixNano())
	if s.notices[key] {
		return false, nil
	}
	s.notices[key] = true
	return true, nil
}

func (s *fakeStore) EvictOperatorNotices(olderThan time.Duration) (int64, error) {
	return 0, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	sent     map[int64][]string
	failFor  map[int64]bool
	failures int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		sent:    make(map[int64][]string),
		failFor: make(map[int64]bool),
	}
}

func (n *fakeNotifier) Notify(chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[chatID] {
		n.failures++
		return errors.New("forbidden: bot was blocked by the user")
	}
	n.sent[chatID] = append(n.sent[chatID], text)
	return nil
}

func (n *fakeNotifier) count(chatID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent[chatID])
}

func TestUserSweepExpiresExactlyOnce(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	store.addUser(1, time.Now().Add(-time.Second), true, "")

	m := NewMonitor(store, notifier, nil)
	m.RunUserSweep()

	assert.False(t, store.users[1].Subscription.Active)
	require.Equal(t, 1, notifier.count(1))
	assert.Contains(t, notifier.sent[1][0], "expired")

	// A second cycle must not notify the same expiry again.
	m.RunUserSweep()
	assert.Equal(t, 1, notifier.count(1))
}

func TestUserSweepWarnsBeforeExpiry(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	store.addUser(1, time.Now().Add(12*time.Hour), true, "")

	m := NewMonitor(store, notifier, nil)
	m.RunUserSweep()

	assert.True(t, store.users[1].Subscription.Active, "advisory warning must not deactivate")
	require.Equal(t, 1, notifier.count(1))
	assert.Contains(t, notifier.sent[1][0], "expiring soon")

	// The warning is advisory and may repeat.
	m.RunUserSweep()
	assert.Equal(t, 2, notifier.count(1))
}

func TestUserSweepIgnoresHealthySubscriptions(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	store.addUser(1, time.Now().Add(72*time.Hour), true, "")

	m := NewMonitor(store, notifier, nil)
	m.RunUserSweep()

	assert.Zero(t, notifier.count(1))
	assert.True(t, store.users[1].Subscription.Active)
}

func TestUserSweepDeliveryFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	store.addUser(1, time.Now().Add(-time.Minute), true, "")
	store.addUser(2, time.Now().Add(-time.Minute), true, "")
	notifier.failFor[1] = true

	m := NewMonitor(store, notifier, nil)
	m.RunUserSweep()

	// Both flipped regardless of the failed delivery to user 1.
	assert.False(t, store.users[1].Subscription.Active)
	assert.False(t, store.users[2].Subscription.Active)
	assert.Equal(t, 1, notifier.count(2))
	assert.Equal(t, 1, notifier.failures)
}

func TestOperatorSweepDedup(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	end := time.Now().Add(-2 * time.Hour)
	store.addUser(1, end, false, "trader_joe")
	operators := []int64{900, 901}

	m := NewMonitor(store, notifier, operators)
	m.RunOperatorSweep()

	require.Equal(t, 1, notifier.count(900))
	require.Equal(t, 1, notifier.count(901))
	assert.Contains(t, notifier.sent[900][0], "trader_joe")

	// Same expiry event: nothing new.
	m.RunOperatorSweep()
	assert.Equal(t, 1, notifier.count(900))

	// The user renewed and lapsed again: a new expiry re-arms the notice.
	store.users[1].Subscription.End = sql.NullTime{Time: end.Add(30 * 24 * time.Hour), Valid: true}
	m.RunOperatorSweep()
	assert.Equal(t, 1, notifier.count(900), "future end date is not expired yet")
}

func TestOperatorSweepSkipsUsersWithoutTradingView(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	store.addUser(1, time.Now().Add(-time.Hour), false, "")

	m := NewMonitor(store, notifier, []int64{900})
	m.RunOperatorSweep()

	assert.Zero(t, notifier.count(900))
}

func TestOverlappingUserSweepSkipped(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	store.addUser(1, time.Now().Add(-time.Minute), true, "")

	m := NewMonitor(store, notifier, nil)
	m.userBusy.Store(true) // simulate a run still in flight
	m.RunUserSweep()

	assert.True(t, store.users[1].Subscription.Active)
	assert.Zero(t, notifier.count(1))

	m.userBusy.Store(false)
	m.RunUserSweep()
	assert.False(t, store.users[1].Subscription.Active)
}
