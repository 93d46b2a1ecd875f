package db

import (
	"database/sql"
	"fmt"
	"log"

	"surgebot/internal/models"
	"surgebot/internal/utils"
)

const userColumns = `id, chat_id, username, first_name, last_name, tv_username,
       wallet_address, referral_code, referred_by,
       sub_plan, sub_start, sub_end, sub_active,
       total_earnings, pending_earnings, total_referrals, paid_referrals,
       created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.TVUsername,
		&u.WalletAddress, &u.ReferralCode, &u.ReferredBy,
		&u.Subscription.Plan, &u.Subscription.Start, &u.Subscription.End, &u.Subscription.Active,
		&u.Rewards.TotalEarnings, &u.Rewards.PendingEarnings, &u.Rewards.TotalReferrals, &u.Rewards.PaidReferrals,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// UpsertUser creates the user on first contact or refreshes the profile
// fields on subsequent ones. Subscription and referral columns are never
// touched here.
func UpsertUser(chatID int64, username, firstName, lastName string) (models.User, error) {
	query := `
        INSERT INTO users (chat_id, username, first_name, last_name)
        VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
        ON CONFLICT (chat_id) DO UPDATE SET
            username = COALESCE(NULLIF($2, ''), users.username),
            first_name = COALESCE(NULLIF($3, ''), users.first_name),
            last_name = COALESCE(NULLIF($4, ''), users.last_name),
            updated_at = NOW()
        RETURNING ` + userColumns
	user, err := scanUser(DB.QueryRow(query, chatID, username, firstName, lastName))
	if err != nil {
		log.Printf("UpsertUser: error upserting chat_id %d: %v", chatID, err)
		return models.User{}, err
	}
	return user, nil
}

// GetUserByChatID fetches a user by their Telegram chat id.
func GetUserByChatID(chatID int64) (models.User, error) {
	user, err := scanUser(DB.QueryRow(`SELECT `+userColumns+` FROM users WHERE chat_id = $1`, chatID))
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, fmt.Errorf("user with chat_id %d not found: %w", chatID, err)
		}
		log.Printf("GetUserByChatID: error fetching chat_id %d: %v", chatID, err)
		return models.User{}, err
	}
	return user, nil
}

// GetUserByReferralCode resolves a referral code to its owner.
func GetUserByReferralCode(code string) (models.User, error) {
	user, err := scanUser(DB.QueryRow(`SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, fmt.Errorf("no user owns referral code %q: %w", code, err)
		}
		log.Printf("GetUserByReferralCode: error looking up code %q: %v", code, err)
		return models.User{}, err
	}
	return user, nil
}

// EnsureReferralCode returns the user's referral code, generating and
// persisting a new unique one only if none exists yet. Calling this twice
// returns the identical code.
func EnsureReferralCode(chatID int64) (string, error) {
	var existing sql.NullString
	err := DB.QueryRow(`SELECT referral_code FROM users WHERE chat_id = $1`, chatID).Scan(&existing)
	if err != nil {
		log.Printf("EnsureReferralCode: error reading code for chat_id %d: %v", chatID, err)
		return "", err
	}
	if existing.Valid && existing.String != "" {
		return existing.String, nil
	}

	// The unique index on referral_code is the collision arbiter; on the
	// rare conflict we just roll a new code.
	for attempt := 0; attempt < 10; attempt++ {
		code, err := utils.GenerateReferralCode()
		if err != nil {
			return "", err
		}
		res, err := DB.Exec(
			`UPDATE users SET referral_code = $1, updated_at = NOW()
             WHERE chat_id = $2 AND referral_code IS NULL`,
			code, chatID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			log.Printf("EnsureReferralCode: error saving code for chat_id %d: %v", chatID, err)
			return "", err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			// A concurrent call won the race; read what it stored.
			err = DB.QueryRow(`SELECT referral_code FROM users WHERE chat_id = $1`, chatID).Scan(&existing)
			if err != nil {
				return "", err
			}
			return existing.String, nil
		}
		log.Printf("EnsureReferralCode: generated code %s for chat_id %d.", code, chatID)
		return code, nil
	}
	return "", fmt.Errorf("could not generate a unique referral code for chat_id %d", chatID)
}

// SetReferredBy records the attribution once. Self-referrals and overwrites
// are silently ignored: attribution is first-touch and permanent.
func SetReferredBy(chatID, referrerChatID int64) error {
	if chatID == referrerChatID {
		return nil
	}
	res, err := DB.Exec(
		`UPDATE users SET referred_by = $1, updated_at = NOW()
         WHERE chat_id = $2 AND referred_by IS NULL`,
		referrerChatID, chatID,
	)
	if err != nil {
		log.Printf("SetReferredBy: error attributing chat_id %d to %d: %v", chatID, referrerChatID, err)
		return err
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		log.Printf("User %d attributed to referrer %d.", chatID, referrerChatID)
	}
	return nil
}

// SetTradingViewUsername stores the external platform username collected
// during the payment flow.
func SetTradingViewUsername(chatID int64, tvUsername string) error {
	_, err := DB.Exec(
		`UPDATE users SET tv_username = $1, updated_at = NOW() WHERE chat_id = $2`,
		tvUsername, chatID,
	)
	if err != nil {
		log.Printf("SetTradingViewUsername: error for chat_id %d: %v", chatID, err)
	}
	return err
}

// SetWalletAddress stores the payout address for referral rewards.
func SetWalletAddress(chatID int64, wallet string) error {
	_, err := DB.Exec(
		`UPDATE users SET wallet_address = $1, updated_at = NOW() WHERE chat_id = $2`,
		wallet, chatID,
	)
	if err != nil {
		log.Printf("SetWalletAddress: error for chat_id %d: %v", chatID, err)
	}
	return err
}

// AllChatIDs returns every known chat id, for operator broadcasts.
func AllChatIDs() ([]int64, error) {
	rows, err := DB.Query(`SELECT chat_id FROM users ORDER BY id`)
	if err != nil {
		log.Printf("AllChatIDs: query error: %v", err)
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			log.Printf("AllChatIDs: scan error: %v", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
