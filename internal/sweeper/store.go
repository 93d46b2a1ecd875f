package sweeper

import (
	"time"

	"surgebot/internal/db"
	"surgebot/internal/models"
)

// DBStore adapts the db package to the Store interface.
type DBStore struct{}

func (DBStore) ExpiringSubscriptions(lookahead time.Duration) ([]models.User, error) {
	return db.ExpiringSubscriptions(lookahead)
}

func (DBStore) DeactivateSubscription(chatID int64) (bool, error) {
	return db.DeactivateSubscription(chatID)
}

func (DBStore) ExpiredWithTradingView() ([]models.User, error) {
	return db.ExpiredWithTradingView()
}

func (DBStore) MarkOperatorNoticed(chatID int64, subEnd time.Time) (bool, error) {
	return db.MarkOperatorNoticed(chatID, subEnd)
}

func (DBStore) EvictOperatorNotices(olderThan time.Duration) (int64, error) {
	return db.EvictOperatorNotices(olderThan)
}
