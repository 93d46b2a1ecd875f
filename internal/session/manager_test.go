package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surgebot/internal/constants"
)

func TestStateDefaultsToIdle(t *testing.T) {
	m := NewManager()
	assert.Equal(t, constants.STATE_IDLE, m.GetState(42))
}

func TestStateTransitions(t *testing.T) {
	m := NewManager()
	m.SetState(42, constants.STATE_PLAN_SELECTED)
	assert.Equal(t, constants.STATE_PLAN_SELECTED, m.GetState(42))

	m.SetState(42, constants.STATE_AWAITING_TXID)
	assert.Equal(t, constants.STATE_AWAITING_TXID, m.GetState(42))

	// Another user is unaffected.
	assert.Equal(t, constants.STATE_IDLE, m.GetState(43))
}

func TestDraftLifecycle(t *testing.T) {
	m := NewManager()

	_, ok := m.GetDraft(42)
	assert.False(t, ok)

	draft := PaymentDraft{
		Plan: PlanSnapshot{Key: "monthly", Name: "Monthly Plan", PriceSOL: 1, DurationDays: 30},
	}
	m.SetDraft(42, draft)

	got, ok := m.GetDraft(42)
	require.True(t, ok)
	assert.Equal(t, "Monthly Plan", got.Plan.Name)
	assert.Equal(t, 1.0, got.Plan.PriceSOL)
}

func TestCancelClearsDraftAndState(t *testing.T) {
	m := NewManager()
	m.SetState(42, constants.STATE_AWAITING_TXID)
	m.SetDraft(42, PaymentDraft{Plan: PlanSnapshot{Key: "monthly"}})

	m.Cancel(42)

	assert.Equal(t, constants.STATE_IDLE, m.GetState(42))
	_, ok := m.GetDraft(42)
	assert.False(t, ok)
}

func TestUsersDoNotCrossContaminate(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			m.SetState(chatID, constants.STATE_AWAITING_TXID)
			m.SetDraft(chatID, PaymentDraft{
				Plan: PlanSnapshot{Key: fmt.Sprintf("plan-%d", chatID), PriceSOL: float64(chatID)},
			})
		}(i)
	}
	wg.Wait()

	for i := int64(1); i <= 50; i++ {
		draft, ok := m.GetDraft(i)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("plan-%d", i), draft.Plan.Key)
		assert.Equal(t, float64(i), draft.Plan.PriceSOL)
	}
}
