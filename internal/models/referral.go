package models

import (
	"database/sql"
	"time"
)

// Referral reward statuses. "paid" is terminal and set only by an explicit
// operator redemption, which also records the payout reference.
const (
	RewardStatusPending = "pending"
	RewardStatusPaid    = "paid"
)

// ReferralReward is a single reward earned by a referrer from a referred
// user's completed transaction. TxID is unique: one reward per transaction,
// ever, regardless of how many times an operator re-runs verification.
type ReferralReward struct {
	ID              int64
	BeneficiaryChat int64  // the referrer being credited
	SourceChat      int64  // the referred user whose payment triggered it
	TxID            string // completed transaction that produced the reward
	Amount          float64
	Status          string
	PayoutReference sql.NullString
	CreatedAt       time.Time
	PaidAt          sql.NullTime
}

// PayoutSummary is the outcome of redeeming all pending rewards at once.
type PayoutSummary struct {
	Amount    float64
	Count     int
	Reference string
	Wallet    string
	PaidAt    time.Time
}
