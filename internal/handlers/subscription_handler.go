package handlers

import (
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"surgebot/internal/constants"
	"surgebot/internal/models"
	"surgebot/internal/session"
)

// subscriptionKeyboard offers the next sensible action for the subscription
// state plus the referral program entry point.
func subscriptionKeyboard(active bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if active {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Renew at a discount", constants.CALLBACK_RENEW),
		))
	} else {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 View plans", constants.CALLBACK_VIEW_PLANS),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("👥 Referral program", constants.CALLBACK_REFERRAL_PROGRAM),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// handleSubscriptionStatus reports the user's current subscription.
func (bh *BotHandler) handleSubscriptionStatus(user models.User) {
	chatID := user.ChatID
	sub := user.Subscription

	if !sub.Active {
		bh.sendMessageWithKeyboard(chatID, "You have no active subscription.", subscriptionKeyboard(false))
		return
	}

	plan, err := models.GetPlan(sub.Plan.String)
	planName := sub.Plan.String
	if err == nil {
		planName = plan.Name
	}

	remaining := time.Until(sub.End.Time)
	text := fmt.Sprintf("Your subscription:\n• Plan: %s\n• Active until: %s\n• Days left: %d",
		planName, sub.End.Time.Format("2006-01-02 15:04 MST"), int(remaining.Hours()/24))

	bh.sendMessageWithKeyboard(chatID, text, subscriptionKeyboard(true))
}

// handleRenew starts a payment flow for the user's current plan at the
// renewal price. Users without a subscription history get the plan menu.
func (bh *BotHandler) handleRenew(user models.User) {
	chatID := user.ChatID

	if user.Subscription.Plan.String == "" {
		bh.sendMessage(chatID, "Nothing to renew yet. Pick a plan first:")
		bh.sendPlanMenu(chatID)
		return
	}

	plan, err := models.GetPlan(user.Subscription.Plan.String)
	if err != nil {
		log.Printf("handleRenew: chatID %d has retired plan %q", chatID, user.Subscription.Plan.String)
		bh.sendMessage(chatID, "Your previous plan is no longer offered. Pick a new one:")
		bh.sendPlanMenu(chatID)
		return
	}

	price := plan.RenewalPriceSOL()
	bh.Deps.SessionManager.SetDraft(chatID, session.PaymentDraft{
		Plan: session.PlanSnapshot{
			Key:          plan.Key,
			Name:         plan.Name,
			PriceSOL:     price,
			DurationDays: plan.DurationDays,
		},
		Renewal: true,
		Started: time.Now(),
	})
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_PLAN_SELECTED)

	note := ""
	if price < plan.PriceSOL {
		note = fmt.Sprintf(" (renewal discount applied, regular price %.2f SOL)", plan.PriceSOL)
	}
	text := fmt.Sprintf("Renewing %s:\n• Price: %.2f SOL%s\n• Duration: %d days\n\nIf your subscription is still active, the new period is added on top of it.",
		plan.Name, price, note, plan.DurationDays)

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
