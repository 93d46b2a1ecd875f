package db

import (
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"surgebot/internal/models"
)

// GetPendingRewards lists a referrer's unredeemed rewards, newest first.
func GetPendingRewards(chatID int64) ([]models.ReferralReward, error) {
	return rewardsByStatus(chatID, models.RewardStatusPending)
}

func rewardsByStatus(chatID int64, status string) ([]models.ReferralReward, error) {
	rows, err := DB.Query(`
        SELECT id, beneficiary_chat_id, source_chat_id, tx_id, amount, status,
               payout_reference, created_at, paid_at
        FROM referral_rewards
        WHERE beneficiary_chat_id = $1 AND status = $2
        ORDER BY created_at DESC`,
		chatID, status)
	if err != nil {
		log.Printf("rewardsByStatus: query error for chat_id %d: %v", chatID, err)
		return nil, err
	}
	defer rows.Close()

	var rewards []models.ReferralReward
	for rows.Next() {
		var r models.ReferralReward
		if err := rows.Scan(
			&r.ID, &r.BeneficiaryChat, &r.SourceChat, &r.TxID, &r.Amount,
			&r.Status, &r.PayoutReference, &r.CreatedAt, &r.PaidAt,
		); err != nil {
			log.Printf("rewardsByStatus: scan error: %v", err)
			continue
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

// GetAllRewards returns every reward row, newest first, for operator exports.
func GetAllRewards() ([]models.ReferralReward, error) {
	rows, err := DB.Query(`
        SELECT id, beneficiary_chat_id, source_chat_id, tx_id, amount, status,
               payout_reference, created_at, paid_at
        FROM referral_rewards ORDER BY created_at DESC`)
	if err != nil {
		log.Printf("GetAllRewards: query error: %v", err)
		return nil, err
	}
	defer rows.Close()

	var rewards []models.ReferralReward
	for rows.Next() {
		var r models.ReferralReward
		if err := rows.Scan(
			&r.ID, &r.BeneficiaryChat, &r.SourceChat, &r.TxID, &r.Amount,
			&r.Status, &r.PayoutReference, &r.CreatedAt, &r.PaidAt,
		); err != nil {
			log.Printf("GetAllRewards: scan error: %v", err)
			continue
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

// RedeemRewards marks all of a referrer's pending rewards paid under a single
// payout reference, and moves the aggregated amount from pending to total
// earnings, in one database transaction. Requires a payout wallet to be set.
//
// Invariant maintained: pending_earnings always equals the sum of the
// currently pending reward rows, and the total_earnings delta always equals
// the sum of rows marked paid.
func RedeemRewards(chatID int64) (models.PayoutSummary, error) {
	var summary models.PayoutSummary

	tx, err := DB.Begin()
	if err != nil {
		log.Printf("RedeemRewards: error starting transaction: %v", err)
		return summary, err
	}
	defer tx.Rollback()

	var wallet sql.NullString
	err = tx.QueryRow(`SELECT wallet_address FROM users WHERE chat_id = $1 FOR UPDATE`, chatID).Scan(&wallet)
	if err != nil {
		log.Printf("RedeemRewards: error loading user %d: %v", chatID, err)
		return summary, err
	}
	if !wallet.Valid || wallet.String == "" {
		return summary, ErrNoPayoutAddress
	}

	reference := uuid.New().String()
	now := time.Now()
	rows, err := tx.Query(`
        UPDATE referral_rewards
        SET status = 'paid', payout_reference = $1, paid_at = $2
        WHERE beneficiary_chat_id = $3 AND status = 'pending'
        RETURNING amount`,
		reference, now, chatID)
	if err != nil {
		log.Printf("RedeemRewards: error marking rewards paid for %d: %v", chatID, err)
		return summary, err
	}
	var total float64
	var count int
	for rows.Next() {
		var amount float64
		if err := rows.Scan(&amount); err != nil {
			rows.Close()
			return summary, err
		}
		total += amount
		count++
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return summary, err
	}
	rows.Close()

	if count == 0 {
		return summary, ErrNoPendingRewards
	}

	_, err = tx.Exec(`
        UPDATE users
        SET total_earnings = total_earnings + $1,
            pending_earnings = pending_earnings - $1,
            paid_referrals = paid_referrals + $2,
            updated_at = NOW()
        WHERE chat_id = $3`,
		total, count, chatID)
	if err != nil {
		log.Printf("RedeemRewards: error updating aggregates for %d: %v", chatID, err)
		return summary, err
	}

	if err = tx.Commit(); err != nil {
		log.Printf("RedeemRewards: commit error for %d: %v", chatID, err)
		return summary, err
	}

	summary = models.PayoutSummary{
		Amount:    total,
		Count:     count,
		Reference: reference,
		Wallet:    wallet.String,
		PaidAt:    now,
	}
	log.Printf("Redeemed %d rewards totaling %.4f SOL for chat_id %d (payout %s).", count, total, chatID, reference)
	return summary, nil
}
