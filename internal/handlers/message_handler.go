package handlers

import (
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"surgebot/internal/constants"
	"surgebot/internal/db"
	"surgebot/internal/models"
	"surgebot/internal/telegram_api"
)

// HandleMessage processes incoming Telegram messages: commands first, then
// free text routed by the user's current session state.
func (bh *BotHandler) HandleMessage(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	message := update.Message
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	if !bh.limiter.Allow(chatID) {
		log.Printf("HandleMessage: chatID %d exceeded rate limit, update dropped", chatID)
		return
	}

	var username, firstName, lastName string
	if message.From != nil {
		username = message.From.UserName
		firstName = message.From.FirstName
		lastName = message.From.LastName
	}

	user, err := db.UpsertUser(chatID, username, firstName, lastName)
	if err != nil {
		log.Printf("HandleMessage: UpsertUser failed for chatID %d: %v", chatID, err)
		bh.sendMessage(chatID, "Something went wrong on our side. Please try again.")
		return
	}

	if message.IsCommand() {
		log.Printf("HandleMessage: chatID %d command /%s", chatID, message.Command())
		switch message.Command() {
		case "start":
			bh.handleStart(user, strings.TrimSpace(message.CommandArguments()))
		case "plans":
			bh.sendPlanMenu(chatID)
		case "subscription", "status":
			bh.handleSubscriptionStatus(user)
		case "renew":
			bh.handleRenew(user)
		case "referral":
			bh.handleReferral(user)
		case "cancel":
			bh.Deps.SessionManager.Cancel(chatID)
			bh.sendMessage(chatID, "Payment flow cancelled. Use /plans to start over.")
		case "help":
			bh.sendHelp(chatID)
		case "verify":
			bh.handleAdminVerify(chatID, strings.TrimSpace(message.CommandArguments()))
		case "reject":
			bh.handleAdminReject(chatID, strings.TrimSpace(message.CommandArguments()))
		case "pending":
			bh.handleAdminPending(chatID)
		case "broadcast":
			bh.handleAdminBroadcast(chatID, strings.TrimSpace(message.CommandArguments()))
		case "export":
			bh.handleAdminExport(chatID)
		case "payout":
			bh.handleAdminPayout(chatID, strings.TrimSpace(message.CommandArguments()))
		default:
			bh.sendMessage(chatID, "Unknown command. Use /help to see what I can do.")
		}
		return
	}

	if text == "" {
		return
	}

	switch bh.Deps.SessionManager.GetState(chatID) {
	case constants.STATE_AWAITING_TXID:
		bh.handleTxIDInput(user, text)
	case constants.STATE_AWAITING_TV_USERNAME:
		bh.handleTVUsernameInput(user, text)
	case constants.STATE_AWAITING_WALLET:
		bh.handleWalletInput(user, text)
	case constants.STATE_PENDING_VERIFICATION:
		bh.sendMessage(chatID, "Your payment is being verified. You will be notified as soon as it is confirmed.")
	default:
		bh.sendMessage(chatID, "Use /plans to see subscription plans or /help for the full command list.")
	}
}

// handleStart greets the user and records a referral attribution when the
// /start payload carries a referral code. Self-referrals and repeat
// attributions are silently ignored by the store.
func (bh *BotHandler) handleStart(user models.User, payload string) {
	chatID := user.ChatID

	if payload != "" {
		code := strings.ToUpper(payload)
		referrer, err := db.GetUserByReferralCode(code)
		if err == nil && referrer.ChatID != chatID {
			if err := db.SetReferredBy(chatID, referrer.ChatID); err != nil {
				log.Printf("handleStart: SetReferredBy(%d -> %d) failed: %v", chatID, referrer.ChatID, err)
			}
		} else if err != nil {
			log.Printf("handleStart: unknown referral code %q from chatID %d", code, chatID)
		}
	}

	bh.Deps.SessionManager.Reset(chatID)

	greeting := "Welcome to SURGE! 📈\n\n" +
		"Get access to premium trading signals on TradingView, paid in SOL.\n\n" +
		"Pick a plan below to get started, or use /help for all commands."
	bh.sendMessage(chatID, greeting)
	bh.sendPlanMenu(chatID)
}

func (bh *BotHandler) sendHelp(chatID int64) {
	help := "Available commands:\n\n" +
		"/plans - view subscription plans\n" +
		"/subscription - your current subscription status\n" +
		"/renew - renew your subscription at a discount\n" +
		"/referral - your referral link and rewards\n" +
		"/cancel - abort the current payment flow\n" +
		"/help - this message"
	if bh.Deps.Config.IsAdmin(chatID) {
		help += "\n\nOperator commands:\n" +
			"/verify <txid> - verify a payment and activate the subscription\n" +
			"/reject <txid> - reject a pending payment\n" +
			"/pending - list transactions awaiting verification\n" +
			"/payout <chat_id> - pay out a user's pending referral rewards\n" +
			"/broadcast <text> - message all users\n" +
			"/export - export transactions and rewards as a spreadsheet"
	}
	bh.sendMessage(chatID, help)
}

// sendMessage is a thin wrapper used by every handler for plain replies.
func (bh *BotHandler) sendMessage(chatID int64, text string) {
	if _, err := telegram_api.SendMessage(bh.Deps.BotClient, chatID, text, nil, ""); err != nil {
		log.Printf("sendMessage: delivery to chatID %d failed: %v", chatID, err)
	}
}

func (bh *BotHandler) sendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if _, err := telegram_api.SendMessage(bh.Deps.BotClient, chatID, text, &keyboard, ""); err != nil {
		log.Printf("sendMessageWithKeyboard: delivery to chatID %d failed: %v", chatID, err)
	}
}
