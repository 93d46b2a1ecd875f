package constants

import "time"

// Payment flow session states. The flow is linear:
// plan selected -> awaiting payment -> awaiting txid -> awaiting TradingView
// username -> pending admin verification. Cancel is reachable from any state
// before verification.
const (
	STATE_IDLE                 = "idle"
	STATE_PLAN_SELECTED        = "plan_selected"
	STATE_AWAITING_PAYMENT     = "awaiting_payment"
	STATE_AWAITING_TXID        = "awaiting_txid"
	STATE_AWAITING_TV_USERNAME = "awaiting_tv_username"
	STATE_PENDING_VERIFICATION = "pending_verification"

	// Referral program states
	STATE_AWAITING_WALLET = "awaiting_wallet"
)

// Callback data identifiers for inline keyboards.
const (
	CALLBACK_PLAN_PREFIX      = "plan_select_" // + plan key
	CALLBACK_PROCEED_PAYMENT  = "proceed_payment"
	CALLBACK_PAYMENT_CONFIRM  = "payment_confirm"
	CALLBACK_CANCEL_PAYMENT   = "cancel_payment"
	CALLBACK_VIEW_PLANS       = "view_plans"
	CALLBACK_RENEW            = "renew_subscription"
	CALLBACK_SET_WALLET       = "set_wallet"
	CALLBACK_VIEW_REWARDS     = "view_rewards"
	CALLBACK_REFERRAL_PROGRAM = "referral_program"
)

// Transaction id syntax: Solana signatures are base58 and comfortably longer
// than 50 characters; anything shorter or containing punctuation is rejected
// before touching the ledger.
const MIN_TXID_LENGTH = 50

// Minimum length for a TradingView username after stripping a leading @.
const MIN_TV_USERNAME_LENGTH = 3

// Referral code format: 6 characters from A-Z0-9.
const (
	REFERRAL_CODE_LENGTH  = 6
	REFERRAL_CODE_CHARSET = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Sweeper defaults. The user sweep warns about subscriptions ending within
// the lookahead and deactivates those already past; the operator sweep nags
// about expired users whose TradingView access still needs manual removal.
const (
	DEFAULT_SWEEP_INTERVAL       = 60 * time.Minute
	DEFAULT_ADMIN_SWEEP_INTERVAL = 30 * time.Minute
	SWEEP_LOOKAHEAD              = 24 * time.Hour
	ADMIN_NOTICE_RETENTION       = 7 * 24 * time.Hour
)

// Inbound rate limit per user: 20 updates per rolling minute.
const (
	RATE_LIMIT_EVENTS = 20
	RATE_LIMIT_WINDOW = time.Minute
)
