// internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"surgebot/internal/constants"
)

// Config holds all application configuration parameters.
type Config struct {
	TelegramToken string
	BotUsername   string
	AppEnv        string
	DatabaseURL   string

	// Operator chat ids allowed to verify payments, broadcast and export.
	AdminChatIDs []int64

	// Solana settings: where payments must land and which RPC node to ask.
	SolanaWalletAddress string
	SolanaRPCURL        string

	// Ops HTTP API
	Port   string
	APIKey string

	// Sweeper schedule
	SweepInterval      time.Duration
	AdminSweepInterval time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		TelegramToken:       os.Getenv("TELEGRAM_APITOKEN"),
		BotUsername:         os.Getenv("BOT_USERNAME"),
		AppEnv:              os.Getenv("ENV"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SolanaWalletAddress: os.Getenv("SOLANA_WALLET_ADDRESS"),
		SolanaRPCURL:        os.Getenv("SOLANA_RPC_URL"),
		Port:                os.Getenv("PORT"),
		APIKey:              os.Getenv("OPS_API_KEY"),
	}

	for _, part := range strings.Split(os.Getenv("ADMIN_CHAT_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("Warning: could not parse admin chat id %q: %v. Skipped.", part, err)
			continue
		}
		cfg.AdminChatIDs = append(cfg.AdminChatIDs, id)
	}

	cfg.SweepInterval = durationFromEnv("SWEEP_INTERVAL_MINUTES", constants.DEFAULT_SWEEP_INTERVAL)
	cfg.AdminSweepInterval = durationFromEnv("ADMIN_SWEEP_INTERVAL_MINUTES", constants.DEFAULT_ADMIN_SWEEP_INTERVAL)

	if cfg.TelegramToken == "" {
		log.Println("Critical: TELEGRAM_APITOKEN is not set.")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Critical: DATABASE_URL is not set.")
	}
	if cfg.SolanaWalletAddress == "" {
		log.Println("Critical: SOLANA_WALLET_ADDRESS is not set. Payments cannot be verified.")
	} else if len(cfg.SolanaWalletAddress) < 32 {
		log.Printf("Warning: SOLANA_WALLET_ADDRESS looks too short (%d chars). Verify it is a valid address.", len(cfg.SolanaWalletAddress))
	}
	if cfg.SolanaRPCURL == "" {
		log.Println("Critical: SOLANA_RPC_URL is not set. Payments cannot be verified.")
	}
	if len(cfg.AdminChatIDs) == 0 {
		log.Println("Warning: ADMIN_CHAT_IDS is not set. Nobody can verify payments.")
	}
	if cfg.BotUsername == "" {
		log.Println("Warning: BOT_USERNAME is not set. Referral links will not work.")
	}
	if cfg.APIKey == "" {
		log.Println("Warning: OPS_API_KEY is not set. The ops API will reject all requests.")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	log.Println("Configuration loaded.")
	return cfg, nil
}

// IsAdmin reports whether the chat id belongs to an allow-listed operator.
func (c *Config) IsAdmin(chatID int64) bool {
	for _, id := range c.AdminChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		log.Printf("Warning: invalid value for %s (%q), using default %s.", key, raw, fallback)
		return fallback
	}
	return time.Duration(minutes) * time.Minute
}
