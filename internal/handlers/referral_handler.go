package handlers

import (
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"surgebot/internal/constants"
	"surgebot/internal/db"
	"surgebot/internal/models"
	"surgebot/internal/telegram_api"
	"surgebot/internal/utils"
)

// handleReferral shows the user's referral link, a QR code for it and their
// reward statistics. The referral code is created lazily on first use.
func (bh *BotHandler) handleReferral(user models.User) {
	chatID := user.ChatID

	code, err := db.EnsureReferralCode(chatID)
	if err != nil {
		log.Printf("handleReferral: EnsureReferralCode failed for chatID %d: %v", chatID, err)
		bh.sendMessage(chatID, "Could not prepare your referral link. Please try again.")
		return
	}

	link, err := utils.GenerateReferralLink(bh.Deps.Config.BotUsername, code)
	if err != nil {
		log.Printf("handleReferral: GenerateReferralLink failed for chatID %d: %v", chatID, err)
		bh.sendMessage(chatID, "Could not prepare your referral link. Please try again.")
		return
	}

	text := fmt.Sprintf("Your referral link:\n%s\n\n"+
		"Share it and earn %.0f%% of every subscription your referrals buy, paid in SOL.\n\n"+
		"📊 Your stats:\n• Referrals: %d\n• Paid out referrals: %d\n• Pending rewards: %.4f SOL\n• Total earned: %.4f SOL",
		link, models.ReferralRewardRate*100,
		user.Rewards.TotalReferrals, user.Rewards.PaidReferrals,
		user.Rewards.PendingEarnings, user.Rewards.TotalEarnings)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Pending rewards", constants.CALLBACK_VIEW_REWARDS),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👛 Set payout wallet", constants.CALLBACK_SET_WALLET),
		),
	)
	bh.sendMessageWithKeyboard(chatID, text, keyboard)

	if png, err := utils.GenerateReferralQRCode(bh.Deps.Config.BotUsername, code); err != nil {
		log.Printf("handleReferral: QR generation failed for chatID %d: %v", chatID, err)
	} else if err := telegram_api.SendPhoto(bh.Deps.BotClient, chatID, "referral_qr.png", png, "Scan to join via your link"); err != nil {
		log.Printf("handleReferral: QR delivery to chatID %d failed: %v", chatID, err)
	}
}

// handleViewRewards lists the user's unredeemed referral rewards.
func (bh *BotHandler) handleViewRewards(user models.User) {
	chatID := user.ChatID

	rewards, err := db.GetPendingRewards(chatID)
	if err != nil {
		log.Printf("handleViewRewards: GetPendingRewards failed for chatID %d: %v", chatID, err)
		bh.sendMessage(chatID, "Could not load your rewards. Please try again.")
		return
	}

	if len(rewards) == 0 {
		bh.sendMessage(chatID, "No pending rewards. Share your referral link to start earning!")
		return
	}

	var total float64
	text := "Pending referral rewards:\n"
	for _, r := range rewards {
		total += r.Amount
		text += fmt.Sprintf("• %.4f SOL (%s)\n", r.Amount, r.CreatedAt.Format("2006-01-02"))
	}
	text += fmt.Sprintf("\nTotal pending: %.4f SOL\n", total)

	if !user.WalletAddress.Valid || user.WalletAddress.String == "" {
		text += "\n⚠️ Set a payout wallet so an operator can pay you out."
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("👛 Set payout wallet", constants.CALLBACK_SET_WALLET),
			),
		)
		bh.sendMessageWithKeyboard(chatID, text, keyboard)
		return
	}

	text += fmt.Sprintf("\nPayout wallet: %s", user.WalletAddress.String)
	bh.sendMessage(chatID, text)
}
