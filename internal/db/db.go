// internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var DB *sql.DB // package-wide database handle

// InitDB opens the database connection and bootstraps the schema.
func InitDB() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("opening database connection: %w", err)
	}

	DB.SetMaxOpenConns(50)
	DB.SetMaxIdleConns(20)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	log.Println("Connected to the database.")

	return createSchema(DB)
}

// createSchema creates the tables and indexes if they do not exist.
// Uniqueness on users.chat_id, users.referral_code, transactions.tx_id and
// referral_rewards.tx_id is enforced here, in the store, not in application
// code.
func createSchema(database *sql.DB) error {
	schema := `
        CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            chat_id BIGINT UNIQUE NOT NULL,
            username TEXT,
            first_name TEXT,
            last_name TEXT,
            tv_username TEXT,
            wallet_address TEXT,
            referral_code VARCHAR(12) UNIQUE,
            referred_by BIGINT,
            sub_plan TEXT,
            sub_start TIMESTAMPTZ,
            sub_end TIMESTAMPTZ,
            sub_active BOOLEAN NOT NULL DEFAULT FALSE,
            total_earnings DOUBLE PRECISION NOT NULL DEFAULT 0,
            pending_earnings DOUBLE PRECISION NOT NULL DEFAULT 0,
            total_referrals INTEGER NOT NULL DEFAULT 0,
            paid_referrals INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS transactions (
            id SERIAL PRIMARY KEY,
            tx_id TEXT UNIQUE NOT NULL,
            chat_id BIGINT NOT NULL,
            plan TEXT NOT NULL,
            duration_days INTEGER NOT NULL,
            amount DOUBLE PRECISION NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS referral_rewards (
            id SERIAL PRIMARY KEY,
            beneficiary_chat_id BIGINT NOT NULL,
            source_chat_id BIGINT NOT NULL,
            tx_id TEXT UNIQUE NOT NULL,
            amount DOUBLE PRECISION NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            payout_reference TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            paid_at TIMESTAMPTZ
        );
        CREATE TABLE IF NOT EXISTS admin_notices (
            chat_id BIGINT NOT NULL,
            sub_end TIMESTAMPTZ NOT NULL,
            notified_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (chat_id, sub_end)
        );
        CREATE INDEX IF NOT EXISTS idx_users_sub_active_end ON users (sub_active, sub_end);
        CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions (status);
        CREATE INDEX IF NOT EXISTS idx_transactions_chat ON transactions (chat_id);
        CREATE INDEX IF NOT EXISTS idx_rewards_beneficiary_status ON referral_rewards (beneficiary_chat_id, status);
    `
	if _, err := database.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	log.Println("Database schema is up to date.")
	return nil
}

// CloseDB closes the database connection.
func CloseDB() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		} else {
			log.Println("Database connection closed.")
		}
	}
}
