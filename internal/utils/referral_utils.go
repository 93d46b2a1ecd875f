package utils

import (
	"crypto/rand"
	"fmt"
	"log"

	"github.com/skip2/go-qrcode"

	"surgebot/internal/constants"
)

// GenerateReferralCode produces a random 6-character code from A-Z0-9.
// Uniqueness is not guaranteed here; the caller retries against the store's
// unique index on collision.
func GenerateReferralCode() (string, error) {
	buf := make([]byte, constants.REFERRAL_CODE_LENGTH)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes for referral code: %w", err)
	}
	charset := constants.REFERRAL_CODE_CHARSET
	for i, b := range buf {
		buf[i] = charset[int(b)%len(charset)]
	}
	return string(buf), nil
}

// GenerateReferralLink builds the deep link that attributes a new signup to
// the owner of the code.
func GenerateReferralLink(botUsername, code string) (string, error) {
	if botUsername == "" {
		log.Println("GenerateReferralLink: bot username is not configured.")
		return "", fmt.Errorf("bot username is not configured")
	}
	if code == "" {
		return "", fmt.Errorf("empty referral code")
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, code), nil
}

// GenerateReferralQRCode renders the referral link as a PNG QR code.
func GenerateReferralQRCode(botUsername, code string) ([]byte, error) {
	link, err := GenerateReferralLink(botUsername, code)
	if err != nil {
		return nil, err
	}
	qrBytes, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		log.Printf("GenerateReferralQRCode: error encoding QR for %q: %v", link, err)
		return nil, err
	}
	return qrBytes, nil
}
