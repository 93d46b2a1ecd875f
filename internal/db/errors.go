package db

import (
	"errors"

	"github.com/lib/pq"
)

// Store-level sentinel errors. Handlers branch on these with errors.Is to
// pick the message shown to the user or operator.
var (
	// ErrTxAlreadyCompleted: the idempotence guard fired. A second
	// verification of the same transaction is a no-op.
	ErrTxAlreadyCompleted = errors.New("transaction already verified")

	// ErrTxAlreadyFailed: the transaction was rejected by an operator and
	// cannot transition again.
	ErrTxAlreadyFailed = errors.New("transaction already rejected")

	// ErrTxUnknown: no transaction row exists for the given signature.
	ErrTxUnknown = errors.New("transaction not found")

	// Redemption failures.
	ErrNoPendingRewards = errors.New("no pending rewards to redeem")
	ErrNoPayoutAddress  = errors.New("no payout wallet address set")
)

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
