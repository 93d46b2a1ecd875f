package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"surgebot/internal/db"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: encoding response: %v", err)
	}
}

// HealthHandler is the liveness probe. It also pings the store so a dead
// database shows up as unhealthy instead of a silent bot.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := db.DB.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pendingTransaction struct {
	TxID         string    `json:"txId"`
	ChatID       int64     `json:"chatId"`
	Plan         string    `json:"plan"`
	DurationDays int       `json:"durationDays"`
	AmountSOL    float64   `json:"amountSol"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PendingTransactionsHandler lists transactions awaiting operator
// verification.
func PendingTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	pending, err := db.GetPendingTransactions()
	if err != nil {
		log.Printf("PendingTransactionsHandler: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	out := make([]pendingTransaction, 0, len(pending))
	for _, tx := range pending {
		out = append(out, pendingTransaction{
			TxID:         tx.TxID,
			ChatID:       tx.ChatID,
			Plan:         tx.Plan,
			DurationDays: tx.DurationDays,
			AmountSOL:    tx.Amount,
			CreatedAt:    tx.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// StatsHandler reports store counters for dashboards.
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := db.GetStats()
	if err != nil {
		log.Printf("StatsHandler: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

