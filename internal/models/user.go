package models

import (
	"database/sql"
	"time"
)

// User represents a bot user together with their subscription window and
// referral aggregates. ChatID is the Telegram identity and the key used
// everywhere; ID is the surrogate primary key from the database.
type User struct {
	ID         int64
	ChatID     int64
	Username   sql.NullString
	FirstName  sql.NullString
	LastName   sql.NullString
	TVUsername sql.NullString // TradingView username, required before operator verification

	WalletAddress sql.NullString // payout address for referral rewards
	ReferralCode  sql.NullString // unique 6-char code, generated on first need
	ReferredBy    sql.NullInt64  // chat_id of the referrer, attribution only

	Subscription Subscription
	Rewards      RewardStats

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subscription is the user's current entitlement window.
// Active true implies End is in the future at the time of the last sweep;
// the sweeper is responsible for flipping Active to false once it is not.
type Subscription struct {
	Plan   sql.NullString
	Start  sql.NullTime
	End    sql.NullTime
	Active bool
}

// ExpiresWithin reports whether an active subscription ends inside the window.
func (s Subscription) ExpiresWithin(now time.Time, window time.Duration) bool {
	if !s.Active || !s.End.Valid {
		return false
	}
	return s.End.Time.Before(now.Add(window))
}

// RewardStats are aggregate referral counters, maintained transactionally
// alongside the referral_rewards rows they summarize.
type RewardStats struct {
	TotalEarnings   float64 // SOL paid out to this user so far
	PendingEarnings float64 // SOL in pending rewards
	TotalReferrals  int     // completed purchases attributed to this user
	PaidReferrals   int     // rewards already redeemed
}

// DisplayName builds a human-readable name for operator notifications.
func (u User) DisplayName() string {
	if u.Username.Valid && u.Username.String != "" {
		return "@" + u.Username.String
	}
	name := u.FirstName.String
	if u.LastName.Valid && u.LastName.String != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName.String
	}
	if name == "" {
		return "user"
	}
	return name
}
