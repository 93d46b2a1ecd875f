package utils

import (
	"regexp"
	"strings"

	"surgebot/internal/constants"
)

var (
	txIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{50,}$`)
	// Base58 alphabet, the usual length band for Solana addresses.
	solanaAddressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
)

// IsValidTxID checks the syntax of a submitted transaction signature before
// any ledger lookup: alphanumeric, at least MIN_TXID_LENGTH characters.
func IsValidTxID(txID string) bool {
	return len(txID) >= constants.MIN_TXID_LENGTH && txIDPattern.MatchString(txID)
}

// IsValidSolanaAddress checks whether the string looks like a base58 Solana
// account address.
func IsValidSolanaAddress(address string) bool {
	return solanaAddressPattern.MatchString(address)
}

// NormalizeTVUsername strips whitespace and an optional leading @ and
// reports whether what remains is long enough to be a TradingView username.
func NormalizeTVUsername(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, "@")
	if len(name) < constants.MIN_TV_USERNAME_LENGTH {
		return "", false
	}
	return name, true
}
