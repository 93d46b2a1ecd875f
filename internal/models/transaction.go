package models

import "time"

// Transaction statuses. A transaction is created as pending when the user
// submits proof of payment and moves to completed only through an explicit
// operator verification. Transitions never go backward.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// Transaction is one submitted proof of payment. TxID is the on-chain
// signature and is globally unique, which is what makes resubmitting the
// same proof a no-op.
type Transaction struct {
	ID     int64
	TxID   string
	ChatID int64

	// Plan snapshot taken at selection time, so a catalog change mid-flow
	// cannot alter what the user is activated with.
	Plan         string
	DurationDays int
	Amount       float64 // expected price in SOL

	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActivationResult describes what CompleteTransaction did, so the caller can
// notify the affected parties.
type ActivationResult struct {
	ChatID   int64
	Plan     string
	SubStart time.Time
	SubEnd   time.Time
	Extended bool // window extended from a still-active subscription

	RewardCredited bool
	ReferrerChatID int64
	RewardAmount   float64
}
