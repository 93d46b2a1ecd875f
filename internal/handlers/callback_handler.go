package handlers

import (
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"surgebot/internal/constants"
	"surgebot/internal/db"
	"surgebot/internal/telegram_api"
)

// HandleCallback processes inline keyboard presses. Every query is answered
// first so the client stops its spinner even when handling fails.
func (bh *BotHandler) HandleCallback(update tgbotapi.Update) {
	if update.CallbackQuery == nil {
		return
	}

	query := update.CallbackQuery
	telegram_api.AnswerCallback(bh.Deps.BotClient, query.ID)

	if query.Message == nil {
		log.Printf("HandleCallback: query %s has no originating message", query.ID)
		return
	}
	chatID := query.Message.Chat.ID
	data := query.Data

	if !bh.limiter.Allow(chatID) {
		log.Printf("HandleCallback: chatID %d exceeded rate limit, callback dropped", chatID)
		return
	}

	log.Printf("HandleCallback: chatID %d data %q", chatID, data)

	user, err := db.GetUserByChatID(chatID)
	if err != nil {
		log.Printf("HandleCallback: GetUserByChatID(%d) failed: %v", chatID, err)
		bh.sendMessage(chatID, "Please send /start first.")
		return
	}

	switch {
	case strings.HasPrefix(data, constants.CALLBACK_PLAN_PREFIX):
		planKey := strings.TrimPrefix(data, constants.CALLBACK_PLAN_PREFIX)
		bh.handlePlanSelected(chatID, planKey)
	case data == constants.CALLBACK_PROCEED_PAYMENT:
		bh.sendPaymentInstructions(chatID)
	case data == constants.CALLBACK_PAYMENT_CONFIRM:
		bh.handlePaymentConfirm(chatID)
	case data == constants.CALLBACK_CANCEL_PAYMENT:
		bh.Deps.SessionManager.Cancel(chatID)
		bh.sendMessage(chatID, "Payment cancelled. Use /plans whenever you are ready.")
	case data == constants.CALLBACK_VIEW_PLANS:
		bh.sendPlanMenu(chatID)
	case data == constants.CALLBACK_RENEW:
		bh.handleRenew(user)
	case data == constants.CALLBACK_SET_WALLET:
		bh.Deps.SessionManager.SetState(chatID, constants.STATE_AWAITING_WALLET)
		bh.sendMessage(chatID, "Send the Solana wallet address your referral rewards should be paid to.")
	case data == constants.CALLBACK_VIEW_REWARDS:
		bh.handleViewRewards(user)
	case data == constants.CALLBACK_REFERRAL_PROGRAM:
		bh.handleReferral(user)
	default:
		log.Printf("HandleCallback: unknown callback data %q from chatID %d", data, chatID)
	}
}
