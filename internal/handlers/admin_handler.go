package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"surgebot/internal/db"
	"surgebot/internal/models"
	"surgebot/internal/reports"
	"surgebot/internal/telegram_api"
)

// requireAdmin gates operator commands. Non-operators get a flat denial.
func (bh *BotHandler) requireAdmin(chatID int64) bool {
	if bh.Deps.Config.IsAdmin(chatID) {
		return true
	}
	bh.sendMessage(chatID, "Access denied.")
	return false
}

// handleAdminVerify completes a pending transaction: activates the buyer's
// subscription and credits the referrer. Safe to repeat; a second /verify of
// the same txid reports it as already verified without double-granting.
func (bh *BotHandler) handleAdminVerify(chatID int64, txID string) {
	if !bh.requireAdmin(chatID) {
		return
	}
	if txID == "" {
		bh.sendMessage(chatID, "Usage: /verify <txid>")
		return
	}

	result, err := db.CompleteTransaction(txID)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrTxAlreadyCompleted):
			bh.sendMessage(chatID, "This transaction is already verified.")
		case errors.Is(err, db.ErrTxAlreadyFailed):
			bh.sendMessage(chatID, "This transaction was rejected and cannot be verified.")
		case errors.Is(err, db.ErrTxUnknown):
			bh.sendMessage(chatID, "Unknown transaction id. Use /pending to list open ones.")
		default:
			log.Printf("handleAdminVerify: CompleteTransaction(%s) failed: %v", txID, err)
			bh.sendMessage(chatID, "Verification failed: "+err.Error())
		}
		return
	}

	plan, planErr := models.GetPlan(result.Plan)
	planName := result.Plan
	if planErr == nil {
		planName = plan.Name
	}

	summary := fmt.Sprintf("✅ Verified.\nUser: %d\nPlan: %s\nActive until: %s",
		result.ChatID, planName, result.SubEnd.Format("2006-01-02 15:04 MST"))
	if result.RewardCredited {
		summary += fmt.Sprintf("\nReferral reward: %.4f SOL credited to %d", result.RewardAmount, result.ReferrerChatID)
	}
	bh.sendMessage(chatID, summary)

	bh.Deps.SessionManager.Reset(result.ChatID)
	userMsg := fmt.Sprintf("🎉 Your %s subscription is active until %s.\n\nYour TradingView access will be granted shortly.",
		planName, result.SubEnd.Format("2006-01-02"))
	if result.Extended {
		userMsg = fmt.Sprintf("🎉 Your %s subscription was extended until %s.", planName, result.SubEnd.Format("2006-01-02"))
	}
	if err := bh.Deps.BotClient.Notify(result.ChatID, userMsg); err != nil {
		log.Printf("handleAdminVerify: notifying user %d failed: %v", result.ChatID, err)
	}

	if result.RewardCredited {
		refMsg := fmt.Sprintf("💰 You earned %.4f SOL: someone you referred just bought a subscription. See /referral.", result.RewardAmount)
		if err := bh.Deps.BotClient.Notify(result.ReferrerChatID, refMsg); err != nil {
			log.Printf("handleAdminVerify: notifying referrer %d failed: %v", result.ReferrerChatID, err)
		}
	}
}

// handleAdminReject marks a pending transaction as failed and tells the
// buyer. The mirror of /verify: the same pending-only guard means whichever
// of the two lands first wins and the other reports the prior outcome.
func (bh *BotHandler) handleAdminReject(chatID int64, txID string) {
	if !bh.requireAdmin(chatID) {
		return
	}
	if txID == "" {
		bh.sendMessage(chatID, "Usage: /reject <txid>")
		return
	}

	buyerChatID, err := db.FailTransaction(txID)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrTxAlreadyCompleted):
			bh.sendMessage(chatID, "This transaction is already verified and can no longer be rejected.")
		case errors.Is(err, db.ErrTxAlreadyFailed):
			bh.sendMessage(chatID, "This transaction is already rejected.")
		case errors.Is(err, db.ErrTxUnknown):
			bh.sendMessage(chatID, "Unknown transaction id. Use /pending to list open ones.")
		default:
			log.Printf("handleAdminReject: FailTransaction(%s) failed: %v", txID, err)
			bh.sendMessage(chatID, "Rejection failed: "+err.Error())
		}
		return
	}

	bh.sendMessage(chatID, fmt.Sprintf("❌ Rejected transaction %s (user %d).", txID, buyerChatID))

	bh.Deps.SessionManager.Reset(buyerChatID)
	if err := bh.Deps.BotClient.Notify(buyerChatID, "Your payment could not be verified and was rejected. If you believe this is a mistake, contact support."); err != nil {
		log.Printf("handleAdminReject: notifying user %d failed: %v", buyerChatID, err)
	}
}

// handleAdminPending lists transactions awaiting /verify.
func (bh *BotHandler) handleAdminPending(chatID int64) {
	if !bh.requireAdmin(chatID) {
		return
	}

	pending, err := db.GetPendingTransactions()
	if err != nil {
		log.Printf("handleAdminPending: GetPendingTransactions failed: %v", err)
		bh.sendMessage(chatID, "Could not load pending transactions.")
		return
	}
	if len(pending) == 0 {
		bh.sendMessage(chatID, "No pending transactions.")
		return
	}

	text := fmt.Sprintf("Pending transactions (%d):\n", len(pending))
	for _, tx := range pending {
		text += fmt.Sprintf("\n• %s\n  user %d, plan %s, %.4f SOL, %s\n",
			tx.TxID, tx.ChatID, tx.Plan, tx.Amount, tx.CreatedAt.Format("2006-01-02 15:04"))
	}
	text += "\nVerify with /verify <txid>"
	bh.sendMessage(chatID, text)
}

// handleAdminPayout marks all of a user's pending referral rewards as paid
// and tells the operator where to send the SOL.
func (bh *BotHandler) handleAdminPayout(chatID int64, arg string) {
	if !bh.requireAdmin(chatID) {
		return
	}
	if arg == "" {
		bh.sendMessage(chatID, "Usage: /payout <chat_id>")
		return
	}

	target, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		bh.sendMessage(chatID, "Invalid chat id: "+arg)
		return
	}

	summary, err := db.RedeemRewards(target)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNoPendingRewards):
			bh.sendMessage(chatID, "This user has no pending rewards.")
		case errors.Is(err, db.ErrNoPayoutAddress):
			bh.sendMessage(chatID, "This user has not set a payout wallet yet.")
		default:
			log.Printf("handleAdminPayout: RedeemRewards(%d) failed: %v", target, err)
			bh.sendMessage(chatID, "Payout failed: "+err.Error())
		}
		return
	}

	bh.sendMessage(chatID, fmt.Sprintf("Paid out %d reward(s), %.4f SOL total.\nSend to wallet: %s\nPayout reference: %s",
		summary.Count, summary.Amount, summary.Wallet, summary.Reference))

	if err := bh.Deps.BotClient.Notify(target, fmt.Sprintf("💸 %.4f SOL in referral rewards is on its way to your wallet %s.", summary.Amount, summary.Wallet)); err != nil {
		log.Printf("handleAdminPayout: notifying user %d failed: %v", target, err)
	}
}

// handleAdminBroadcast sends a message to every known user. Failures are
// counted, not fatal; blocked bots are routine.
func (bh *BotHandler) handleAdminBroadcast(chatID int64, text string) {
	if !bh.requireAdmin(chatID) {
		return
	}
	if text == "" {
		bh.sendMessage(chatID, "Usage: /broadcast <message>")
		return
	}

	chatIDs, err := db.AllChatIDs()
	if err != nil {
		log.Printf("handleAdminBroadcast: AllChatIDs failed: %v", err)
		bh.sendMessage(chatID, "Could not load the recipient list.")
		return
	}

	failures := 0
	for _, id := range chatIDs {
		if err := bh.Deps.BotClient.Notify(id, text); err != nil {
			failures++
			log.Printf("handleAdminBroadcast: delivery to %d failed: %v", id, err)
		}
	}
	bh.sendMessage(chatID, fmt.Sprintf("Broadcast sent to %d users, %d failures.", len(chatIDs)-failures, failures))
}

// handleAdminExport ships the full transaction and rewards history as a
// spreadsheet.
func (bh *BotHandler) handleAdminExport(chatID int64) {
	if !bh.requireAdmin(chatID) {
		return
	}

	transactions, err := db.GetAllTransactions()
	if err != nil {
		log.Printf("handleAdminExport: GetAllTransactions failed: %v", err)
		bh.sendMessage(chatID, "Could not load transactions for export.")
		return
	}
	rewards, err := db.GetAllRewards()
	if err != nil {
		log.Printf("handleAdminExport: GetAllRewards failed: %v", err)
		bh.sendMessage(chatID, "Could not load rewards for export.")
		return
	}

	data, err := reports.BuildExport(transactions, rewards)
	if err != nil {
		log.Printf("handleAdminExport: BuildExport failed: %v", err)
		bh.sendMessage(chatID, "Could not build the export file.")
		return
	}

	caption := fmt.Sprintf("%d transactions, %d rewards", len(transactions), len(rewards))
	if err := telegram_api.SendDocument(bh.Deps.BotClient, chatID, "surge_export.xlsx", data, caption); err != nil {
		bh.sendMessage(chatID, "Could not deliver the export file.")
	}
}

