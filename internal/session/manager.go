// Package session holds the in-memory, per-user conversational state of the
// payment flow. State is strictly keyed by chat id; nothing here is shared
// between users, and nothing here is durable. Every financially meaningful
// fact lives in the store, not the session.
package session

import (
	"sync"
	"time"

	"surgebot/internal/constants"
)

// PlanSnapshot pins the plan the user chose, so a catalog change mid-flow
// cannot alter the price or duration of an in-flight purchase.
type PlanSnapshot struct {
	Key          string
	Name         string
	PriceSOL     float64
	DurationDays int
}

// PaymentDraft is the working data for one user's in-flight purchase.
// Only the fields valid for the current state are ever set.
type PaymentDraft struct {
	Plan    PlanSnapshot
	Renewal bool   // renewal pricing was applied to PriceSOL
	TxID    string // verified signature, set once the payment is on record
	Started time.Time
}

// Manager owns user states and payment drafts. All access is behind one
// RWMutex; handler goroutines for different users contend only briefly.
type Manager struct {
	mu     sync.RWMutex
	states map[int64]string
	drafts map[int64]PaymentDraft
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]string),
		drafts: make(map[int64]PaymentDraft),
	}
}

// GetState returns the user's current state, STATE_IDLE when none is set.
func (m *Manager) GetState(chatID int64) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[chatID]
	if !ok {
		return constants.STATE_IDLE
	}
	return state
}

// SetState moves the user to a new state.
func (m *Manager) SetState(chatID int64, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[chatID] = state
}

// SetDraft stores the payment draft for a user, replacing any previous one.
func (m *Manager) SetDraft(chatID int64, draft PaymentDraft) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[chatID] = draft
}

// GetDraft returns the user's payment draft, if one exists.
func (m *Manager) GetDraft(chatID int64) (PaymentDraft, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	draft, ok := m.drafts[chatID]
	return draft, ok
}

// Cancel drops the in-flight draft and returns the user to idle. Persisted
// transactions are untouched; cancel only ever discards session-local data.
func (m *Manager) Cancel(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, chatID)
	m.states[chatID] = constants.STATE_IDLE
}

// Reset clears all session data for a user, draft and state alike.
func (m *Manager) Reset(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, chatID)
	delete(m.states, chatID)
}
