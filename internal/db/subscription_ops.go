package db

import (
	"log"
	"time"

	"surgebot/internal/models"
)

// ExpiringSubscriptions returns users with an active subscription whose end
// date falls within the lookahead window, expired ones included.
func ExpiringSubscriptions(lookahead time.Duration) ([]models.User, error) {
	rows, err := DB.Query(`
        SELECT `+userColumns+`
        FROM users
        WHERE sub_active = TRUE AND sub_end IS NOT NULL AND sub_end <= $1
        ORDER BY sub_end`,
		time.Now().Add(lookahead))
	if err != nil {
		log.Printf("ExpiringSubscriptions: query error: %v", err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			log.Printf("ExpiringSubscriptions: scan error: %v", err)
			continue
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeactivateSubscription flips an active subscription off. It reports whether
// this call was the one that did the flip, which is what makes the expiry
// notification exactly-once: the guard on sub_active means a concurrent or
// repeated sweep affects zero rows and sends nothing. The sub_end predicate
// re-checks expiry at write time, so a verification that lands between the
// sweep's read and this write keeps the freshly extended window active.
func DeactivateSubscription(chatID int64) (bool, error) {
	res, err := DB.Exec(
		`UPDATE users SET sub_active = FALSE, updated_at = NOW()
         WHERE chat_id = $1 AND sub_active = TRUE AND sub_end <= NOW()`,
		chatID,
	)
	if err != nil {
		log.Printf("DeactivateSubscription: error for chat_id %d: %v", chatID, err)
		return false, err
	}
	rows, _ := res.RowsAffected()
	if rows > 0 {
		log.Printf("Subscription for chat_id %d deactivated.", chatID)
	}
	return rows > 0, nil
}

// ExpiredWithTradingView lists users whose subscription has lapsed but who
// still have a TradingView username on file, meaning an operator has manual
// access revocation left to do.
func ExpiredWithTradingView() ([]models.User, error) {
	rows, err := DB.Query(`
        SELECT `+userColumns+`
        FROM users
        WHERE sub_active = FALSE
          AND sub_end IS NOT NULL AND sub_end < NOW()
          AND tv_username IS NOT NULL AND tv_username <> ''
        ORDER BY sub_end`)
	if err != nil {
		log.Printf("ExpiredWithTradingView: query error: %v", err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			log.Printf("ExpiredWithTradingView: scan error: %v", err)
			continue
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// MarkOperatorNoticed records that operators were told about this user's
// expiry event. The (chat_id, sub_end) key makes the dedup survive restarts:
// a renewal moves sub_end, which naturally re-arms the notice for the next
// expiry. Returns false when the notice was already recorded.
func MarkOperatorNoticed(chatID int64, subEnd time.Time) (bool, error) {
	res, err := DB.Exec(`
        INSERT INTO admin_notices (chat_id, sub_end)
        VALUES ($1, $2)
        ON CONFLICT (chat_id, sub_end) DO NOTHING`,
		chatID, subEnd)
	if err != nil {
		log.Printf("MarkOperatorNoticed: error for chat_id %d: %v", chatID, err)
		return false, err
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// EvictOperatorNotices drops dedup entries older than the retention window.
func EvictOperatorNotices(olderThan time.Duration) (int64, error) {
	res, err := DB.Exec(`DELETE FROM admin_notices WHERE notified_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		log.Printf("EvictOperatorNotices: error: %v", err)
		return 0, err
	}
	rows, _ := res.RowsAffected()
	if rows > 0 {
		log.Printf("Evicted %d stale operator notices.", rows)
	}
	return rows, nil
}

// Stats is a snapshot of store counters for the ops API.
type Stats struct {
	TotalUsers          int     `json:"totalUsers"`
	ActiveSubscriptions int     `json:"activeSubscriptions"`
	PendingTransactions int     `json:"pendingTransactions"`
	CompletedRevenueSOL float64 `json:"completedRevenueSol"`
	PendingRewardsSOL   float64 `json:"pendingRewardsSol"`
}

// GetStats gathers the ops API counters in one round trip.
func GetStats() (Stats, error) {
	var s Stats
	err := DB.QueryRow(`
        SELECT
            (SELECT COUNT(*) FROM users),
            (SELECT COUNT(*) FROM users WHERE sub_active = TRUE),
            (SELECT COUNT(*) FROM transactions WHERE status = 'pending'),
            (SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE status = 'completed'),
            (SELECT COALESCE(SUM(amount), 0) FROM referral_rewards WHERE status = 'pending')`,
	).Scan(&s.TotalUsers, &s.ActiveSubscriptions, &s.PendingTransactions, &s.CompletedRevenueSOL, &s.PendingRewardsSOL)
	if err != nil {
		log.Printf("GetStats: query error: %v", err)
		return s, err
	}
	return s, nil
}
