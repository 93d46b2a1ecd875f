package db

import (
	"database/sql"
	"log"
	"time"

	"surgebot/internal/models"
)

// TxIDExists reports whether a proof of payment with this signature was ever
// submitted, by any user. Checked before the ledger is consulted so replayed
// proofs are rejected cheaply.
func TxIDExists(txID string) (bool, error) {
	var count int
	err := DB.QueryRow(`SELECT COUNT(*) FROM transactions WHERE tx_id = $1`, txID).Scan(&count)
	if err != nil {
		log.Printf("TxIDExists: error checking %s: %v", txID, err)
		return false, err
	}
	return count > 0, nil
}

// CreateTransaction records a verified-on-ledger proof of payment as pending.
// The plan fields are a snapshot of the user's selection, not a catalog
// reference.
func CreateTransaction(chatID int64, txID, plan string, durationDays int, amount float64) (int64, error) {
	var id int64
	query := `
        INSERT INTO transactions (tx_id, chat_id, plan, duration_days, amount, status)
        VALUES ($1, $2, $3, $4, $5, 'pending')
        RETURNING id`
	err := DB.QueryRow(query, txID, chatID, plan, durationDays, amount).Scan(&id)
	if err != nil {
		log.Printf("CreateTransaction: error inserting %s for chat_id %d: %v", txID, chatID, err)
		return 0, err
	}
	log.Printf("Transaction #%d (%s) recorded as pending for chat_id %d.", id, txID, chatID)
	return id, nil
}

// GetTransactionByTxID fetches one transaction by its on-chain signature.
func GetTransactionByTxID(txID string) (models.Transaction, error) {
	var t models.Transaction
	query := `
        SELECT id, tx_id, chat_id, plan, duration_days, amount, status, created_at, updated_at
        FROM transactions WHERE tx_id = $1`
	err := DB.QueryRow(query, txID).Scan(
		&t.ID, &t.TxID, &t.ChatID, &t.Plan, &t.DurationDays, &t.Amount,
		&t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return t, ErrTxUnknown
		}
		log.Printf("GetTransactionByTxID: error fetching %s: %v", txID, err)
		return t, err
	}
	return t, nil
}

// FailTransaction marks a pending transaction as failed, for payments an
// operator rejects during review. It carries the same guard as completion:
// only a pending row can transition, so a verify and a reject racing on the
// same signature resolve to exactly one outcome. Returns the buyer's chat id
// so the caller can break the news.
func FailTransaction(txID string) (int64, error) {
	var chatID int64
	err := DB.QueryRow(`
        UPDATE transactions
        SET status = 'failed', updated_at = NOW()
        WHERE tx_id = $1 AND status = 'pending'
        RETURNING chat_id`,
		txID,
	).Scan(&chatID)
	if err == sql.ErrNoRows {
		var status string
		errStatus := DB.QueryRow(`SELECT status FROM transactions WHERE tx_id = $1`, txID).Scan(&status)
		if errStatus == sql.ErrNoRows {
			return 0, ErrTxUnknown
		}
		if errStatus != nil {
			return 0, errStatus
		}
		if status == models.TxStatusCompleted {
			return 0, ErrTxAlreadyCompleted
		}
		return 0, ErrTxAlreadyFailed
	}
	if err != nil {
		log.Printf("FailTransaction: error rejecting %s: %v", txID, err)
		return 0, err
	}
	log.Printf("FailTransaction: transaction %s rejected.", txID)
	return chatID, nil
}

// GetPendingTransactions lists transactions awaiting operator verification,
// oldest first.
func GetPendingTransactions() ([]models.Transaction, error) {
	rows, err := DB.Query(`
        SELECT id, tx_id, chat_id, plan, duration_days, amount, status, created_at, updated_at
        FROM transactions WHERE status = 'pending' ORDER BY created_at`)
	if err != nil {
		log.Printf("GetPendingTransactions: query error: %v", err)
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(
			&t.ID, &t.TxID, &t.ChatID, &t.Plan, &t.DurationDays, &t.Amount,
			&t.Status, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			log.Printf("GetPendingTransactions: scan error: %v", err)
			continue
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// GetAllTransactions returns every transaction, newest first, for operator
// exports.
func GetAllTransactions() ([]models.Transaction, error) {
	rows, err := DB.Query(`
        SELECT id, tx_id, chat_id, plan, duration_days, amount, status, created_at, updated_at
        FROM transactions ORDER BY created_at DESC`)
	if err != nil {
		log.Printf("GetAllTransactions: query error: %v", err)
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(
			&t.ID, &t.TxID, &t.ChatID, &t.Plan, &t.DurationDays, &t.Amount,
			&t.Status, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			log.Printf("GetAllTransactions: scan error: %v", err)
			continue
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// CompleteTransaction is the operator verification action. In one database
// transaction it:
//
//  1. flips the transaction pending -> completed, guarded by the current
//     status so a duplicate verification affects zero rows and returns
//     ErrTxAlreadyCompleted instead of applying anything twice;
//  2. computes the subscription window from the transaction's plan snapshot
//     and writes it to the user row;
//  3. if the paying user was referred, inserts exactly one referral reward
//     (the tx_id uniqueness makes a second insert impossible) and bumps the
//     referrer's pending earnings and referral counter.
//
// Either all of it lands or none of it does.
//
// Renewal policy: when the user still has an active, unexpired window, the
// new window extends from the current end date; otherwise it starts now.
func CompleteTransaction(txID string) (models.ActivationResult, error) {
	var result models.ActivationResult

	tx, err := DB.Begin()
	if err != nil {
		log.Printf("CompleteTransaction: error starting transaction: %v", err)
		return result, err
	}
	defer tx.Rollback() // no-op after a successful Commit

	// 1. Idempotence guard: only a pending row can complete.
	var durationDays int
	var amount float64
	err = tx.QueryRow(`
        UPDATE transactions
        SET status = 'completed', updated_at = NOW()
        WHERE tx_id = $1 AND status = 'pending'
        RETURNING chat_id, plan, duration_days, amount`,
		txID,
	).Scan(&result.ChatID, &result.Plan, &durationDays, &amount)
	if err == sql.ErrNoRows {
		var status string
		errStatus := tx.QueryRow(`SELECT status FROM transactions WHERE tx_id = $1`, txID).Scan(&status)
		if errStatus == sql.ErrNoRows {
			return result, ErrTxUnknown
		}
		if errStatus != nil {
			return result, errStatus
		}
		if status == models.TxStatusFailed {
			return result, ErrTxAlreadyFailed
		}
		return result, ErrTxAlreadyCompleted
	}
	if err != nil {
		log.Printf("CompleteTransaction: error completing %s: %v", txID, err)
		return result, err
	}

	// 2. Compute and persist the subscription window.
	var subEnd sql.NullTime
	var subStart sql.NullTime
	var subActive bool
	var referredBy sql.NullInt64
	err = tx.QueryRow(`
        SELECT sub_start, sub_end, sub_active, referred_by
        FROM users WHERE chat_id = $1 FOR UPDATE`,
		result.ChatID,
	).Scan(&subStart, &subEnd, &subActive, &referredBy)
	if err != nil {
		log.Printf("CompleteTransaction: error loading user %d: %v", result.ChatID, err)
		return result, err
	}

	now := time.Now()
	base := now
	start := now
	if subActive && subEnd.Valid && subEnd.Time.After(now) {
		base = subEnd.Time
		result.Extended = true
		if subStart.Valid {
			start = subStart.Time
		}
	}
	result.SubStart = start
	result.SubEnd = base.Add(time.Duration(durationDays) * 24 * time.Hour)

	_, err = tx.Exec(`
        UPDATE users
        SET sub_plan = $1, sub_start = $2, sub_end = $3, sub_active = TRUE, updated_at = NOW()
        WHERE chat_id = $4`,
		result.Plan, result.SubStart, result.SubEnd, result.ChatID,
	)
	if err != nil {
		log.Printf("CompleteTransaction: error activating subscription for %d: %v", result.ChatID, err)
		return result, err
	}

	// 3. Credit the referrer, once.
	if referredBy.Valid && referredBy.Int64 != 0 && referredBy.Int64 != result.ChatID {
		reward := amount * models.ReferralRewardRate
		res, err := tx.Exec(`
            INSERT INTO referral_rewards (beneficiary_chat_id, source_chat_id, tx_id, amount, status)
            VALUES ($1, $2, $3, $4, 'pending')
            ON CONFLICT (tx_id) DO NOTHING`,
			referredBy.Int64, result.ChatID, txID, reward,
		)
		if err != nil {
			log.Printf("CompleteTransaction: error crediting referrer %d: %v", referredBy.Int64, err)
			return result, err
		}
		if rows, _ := res.RowsAffected(); rows == 1 {
			_, err = tx.Exec(`
                UPDATE users
                SET pending_earnings = pending_earnings + $1,
                    total_referrals = total_referrals + 1,
                    updated_at = NOW()
                WHERE chat_id = $2`,
				reward, referredBy.Int64,
			)
			if err != nil {
				log.Printf("CompleteTransaction: error updating referrer stats for %d: %v", referredBy.Int64, err)
				return result, err
			}
			result.RewardCredited = true
			result.ReferrerChatID = referredBy.Int64
			result.RewardAmount = reward
		}
	}

	if err = tx.Commit(); err != nil {
		log.Printf("CompleteTransaction: commit error for %s: %v", txID, err)
		return result, err
	}

	log.Printf("Transaction %s verified: chat_id %d active until %s (extended=%v, reward=%v).",
		txID, result.ChatID, result.SubEnd.Format(time.RFC3339), result.Extended, result.RewardCredited)
	return result, nil
}
