package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	qrcode "github.com/skip2/go-qrcode"

	"surgebot/internal/constants"
	"surgebot/internal/db"
	"surgebot/internal/models"
	"surgebot/internal/session"
	"surgebot/internal/solana"
	"surgebot/internal/telegram_api"
	"surgebot/internal/utils"
)

const verifyTimeout = 30 * time.Second

// sendPlanMenu shows the plan catalog as one inline button per plan.
func (bh *BotHandler) sendPlanMenu(chatID int64) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, plan := range models.AllPlans() {
		label := fmt.Sprintf("%s %s - %.2f SOL", plan.Badge, plan.Name, plan.PriceSOL)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, constants.CALLBACK_PLAN_PREFIX+plan.Key),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	bh.sendMessageWithKeyboard(chatID, "Choose a subscription plan:", keyboard)
}

// handlePlanSelected snapshots the chosen plan into the session so a catalog
// change cannot reprice an in-flight purchase.
func (bh *BotHandler) handlePlanSelected(chatID int64, planKey string) {
	plan, err := models.GetPlan(planKey)
	if err != nil {
		log.Printf("handlePlanSelected: chatID %d selected unknown plan %q", chatID, planKey)
		bh.sendMessage(chatID, "That plan is no longer available. Use /plans to see current options.")
		return
	}

	bh.Deps.SessionManager.SetDraft(chatID, session.PaymentDraft{
		Plan: session.PlanSnapshot{
			Key:          plan.Key,
			Name:         plan.Name,
			PriceSOL:     plan.PriceSOL,
			DurationDays: plan.DurationDays,
		},
		Started: time.Now(),
	})
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_PLAN_SELECTED)

	text := fmt.Sprintf("You selected %s:\n• Price: %.2f SOL\n• Duration: %d days\n\nProceed to payment?",
		plan.Name, plan.PriceSOL, plan.DurationDays)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Proceed to payment", constants.CALLBACK_PROCEED_PAYMENT),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", constants.CALLBACK_CANCEL_PAYMENT),
		),
	)
	bh.sendMessageWithKeyboard(chatID, text, keyboard)
}

// sendPaymentInstructions shows the receiving wallet, the exact amount due
// and a QR code of the address, then waits for the user to confirm they paid.
func (bh *BotHandler) sendPaymentInstructions(chatID int64) {
	draft, ok := bh.Deps.SessionManager.GetDraft(chatID)
	if !ok {
		bh.sendMessage(chatID, "No plan selected. Use /plans to pick one first.")
		return
	}

	bh.Deps.SessionManager.SetState(chatID, constants.STATE_AWAITING_PAYMENT)

	wallet := bh.Deps.Config.SolanaWalletAddress
	text := fmt.Sprintf("Send exactly %.2f SOL to:\n\n%s\n\nWhen the transfer is done, press the button below.",
		draft.Plan.PriceSOL, wallet)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ I have paid", constants.CALLBACK_PAYMENT_CONFIRM),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", constants.CALLBACK_CANCEL_PAYMENT),
		),
	)

	if png, err := qrcode.Encode(wallet, qrcode.Medium, 256); err != nil {
		log.Printf("sendPaymentInstructions: QR generation failed for chatID %d: %v", chatID, err)
	} else if err := telegram_api.SendPhoto(bh.Deps.BotClient, chatID, "payment_address.png", png, "Scan to pay"); err != nil {
		log.Printf("sendPaymentInstructions: QR delivery to chatID %d failed: %v", chatID, err)
	}
	bh.sendMessageWithKeyboard(chatID, text, keyboard)
}

func (bh *BotHandler) handlePaymentConfirm(chatID int64) {
	if _, ok := bh.Deps.SessionManager.GetDraft(chatID); !ok {
		bh.sendMessage(chatID, "No payment in progress. Use /plans to pick a plan first.")
		return
	}
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_AWAITING_TXID)
	bh.sendMessage(chatID, "Paste the transaction signature (txid) of your transfer.")
}

// handleTxIDInput validates the signature syntactically, rejects reuse, then
// verifies the transfer on chain against the snapshot price. Transient ledger
// errors keep the state so the user can simply resend the signature.
func (bh *BotHandler) handleTxIDInput(user models.User, txID string) {
	chatID := user.ChatID

	if !utils.IsValidTxID(txID) {
		bh.sendMessage(chatID, "That does not look like a Solana transaction signature. Please check and resend it.")
		return
	}

	exists, err := db.TxIDExists(txID)
	if err != nil {
		log.Printf("handleTxIDInput: TxIDExists failed for chatID %d: %v", chatID, err)
		bh.sendMessage(chatID, "Something went wrong on our side. Please resend the signature.")
		return
	}
	if exists {
		bh.sendMessage(chatID, "This transaction was already submitted. Each payment can only be used once.")
		return
	}

	draft, ok := bh.Deps.SessionManager.GetDraft(chatID)
	if !ok {
		bh.Deps.SessionManager.Reset(chatID)
		bh.sendMessage(chatID, "Your payment session expired. Use /plans to start over.")
		return
	}

	expected := models.SOLToLamports(draft.Plan.PriceSOL)
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	result, err := bh.Deps.Solana.VerifyTransaction(ctx, txID, expected, bh.Deps.Config.SolanaWalletAddress)
	if err != nil {
		switch {
		case solana.IsTransient(err):
			log.Printf("handleTxIDInput: transient ledger error for chatID %d txid %s: %v", chatID, txID, err)
			bh.sendMessage(chatID, "Could not reach the Solana network right now. Please resend the signature in a minute.")
		case errors.Is(err, solana.ErrTxNotFound):
			bh.sendMessage(chatID, "Transaction not found yet. Wait for it to finalize (about a minute) and resend the signature.")
		case errors.Is(err, solana.ErrTxFailed):
			bh.sendMessage(chatID, "That transaction failed on chain. Please send a new payment and submit its signature.")
		case errors.Is(err, solana.ErrReceiverMismatch):
			bh.sendMessage(chatID, "That transaction did not transfer SOL to our payment wallet. Please double-check the signature.")
		case errors.Is(err, solana.ErrAmountMismatch):
			bh.sendMessage(chatID, fmt.Sprintf("The transferred amount is less than the %.2f SOL due. Send the difference in a new transaction and submit that signature.", draft.Plan.PriceSOL))
		default:
			log.Printf("handleTxIDInput: verification failed for chatID %d txid %s: %v", chatID, txID, err)
			bh.sendMessage(chatID, "Could not verify the transaction. Please resend the signature.")
		}
		return
	}

	paidSOL := models.LamportsToSOL(result.Lamports)
	if _, err := db.CreateTransaction(chatID, txID, draft.Plan.Key, draft.Plan.DurationDays, paidSOL); err != nil {
		log.Printf("handleTxIDInput: CreateTransaction failed for chatID %d txid %s: %v", chatID, txID, err)
		bh.sendMessage(chatID, "This transaction was already submitted or could not be recorded. Contact support if you believe this is an error.")
		return
	}

	log.Printf("handleTxIDInput: chatID %d paid %.4f SOL for plan %s (txid %s, sender %s)",
		chatID, paidSOL, draft.Plan.Key, txID, result.Sender)

	draft.TxID = txID
	bh.Deps.SessionManager.SetDraft(chatID, draft)
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_AWAITING_TV_USERNAME)
	bh.sendMessage(chatID, fmt.Sprintf("Payment of %.4f SOL confirmed on chain! ✅\n\nNow send your TradingView username so we can grant you access.", paidSOL))
}

// handleTVUsernameInput stores the TradingView handle and parks the purchase
// for operator verification.
func (bh *BotHandler) handleTVUsernameInput(user models.User, raw string) {
	chatID := user.ChatID

	name, ok := utils.NormalizeTVUsername(raw)
	if !ok {
		bh.sendMessage(chatID, fmt.Sprintf("TradingView usernames are at least %d characters, letters, digits, underscores or hyphens. Please resend it.", constants.MIN_TV_USERNAME_LENGTH))
		return
	}

	if err := db.SetTradingViewUsername(chatID, name); err != nil {
		log.Printf("handleTVUsernameInput: SetTradingViewUsername failed for chatID %d: %v", chatID, err)
		bh.sendMessage(chatID, "Could not save your username. Please resend it.")
		return
	}

	draft, _ := bh.Deps.SessionManager.GetDraft(chatID)
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_PENDING_VERIFICATION)
	bh.sendMessage(chatID, "Thanks! An operator will verify your payment shortly and you will be notified when your access is live.")

	bh.notifyOperators(pendingVerificationNotice(user.DisplayName(), chatID, name, draft))
}

// handleWalletInput stores the payout address for referral rewards.
func (bh *BotHandler) handleWalletInput(user models.User, address string) {
	chatID := user.ChatID

	if !utils.IsValidSolanaAddress(address) {
		bh.sendMessage(chatID, "That does not look like a Solana address. Please resend it.")
		return
	}

	if err := db.SetWalletAddress(chatID, address); err != nil {
		log.Printf("handleWalletInput: SetWalletAddress failed for chatID %d: %v", chatID, err)
		bh.sendMessage(chatID, "Could not save your wallet address. Please resend it.")
		return
	}

	bh.Deps.SessionManager.SetState(chatID, constants.STATE_IDLE)
	bh.sendMessage(chatID, "Payout wallet saved. ✅ Your referral rewards will be sent there.")
}

// pendingVerificationNotice assembles the operator alert with everything
// /verify needs, most importantly the transaction id itself.
func pendingVerificationNotice(displayName string, chatID int64, tvUsername string, draft session.PaymentDraft) string {
	planName := draft.Plan.Name
	if planName == "" {
		planName = "unknown"
	}
	text := fmt.Sprintf("🆕 Pending verification\nUser: %s (chat %d)\nTradingView: %s\nPlan: %s (%.2f SOL)",
		displayName, chatID, tvUsername, planName, draft.Plan.PriceSOL)
	if draft.TxID != "" {
		text += fmt.Sprintf("\nTx: %s\n\nActivate with /verify %s", draft.TxID, draft.TxID)
	} else {
		text += "\n\nUse /pending to find the transaction."
	}
	return text
}

// notifyOperators fans a message out to every configured operator chat.
func (bh *BotHandler) notifyOperators(text string) {
	for _, adminID := range bh.Deps.Config.AdminChatIDs {
		if err := bh.Deps.BotClient.Notify(adminID, text); err != nil {
			log.Printf("notifyOperators: delivery to operator %d failed: %v", adminID, err)
		}
	}
}
