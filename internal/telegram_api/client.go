package telegram_api

import (
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// BotClient wraps the Telegram Bot API instance.
type BotClient struct {
	api   *tgbotapi.BotAPI
	Debug bool
}

// Client is the package-wide bot instance, set by InitBot.
var Client *BotClient

// InitBot initializes the Telegram bot.
func InitBot(token string, debug bool) error {
	if token == "" {
		return fmt.Errorf("telegram API token is not provided")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("initializing Telegram Bot API: %w", err)
	}
	api.Debug = debug
	log.Printf("Authorized as %s", api.Self.UserName)

	// Long polling needs any lingering webhook gone.
	_, err = api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true})
	if err != nil {
		log.Printf("Warning while removing webhook: %v. Fine if no webhook was set.", err)
	}

	Client = &BotClient{api: api, Debug: debug}
	return nil
}

// GetAPI returns the underlying *tgbotapi.BotAPI instance.
func (bc *BotClient) GetAPI() *tgbotapi.BotAPI {
	if bc == nil || bc.api == nil {
		log.Fatal("BotClient is not initialized.")
	}
	return bc.api
}

// GetUpdatesChan returns the update channel from Telegram.
func (bc *BotClient) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return bc.GetAPI().GetUpdatesChan(config)
}

// Send sends any chattable through the bot.
func (bc *BotClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if bc == nil || bc.api == nil {
		return tgbotapi.Message{}, fmt.Errorf("BotClient is not initialized")
	}
	return bc.api.Send(c)
}

// Request performs a raw API request (callbacks answers, webhook removal).
func (bc *BotClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if bc == nil || bc.api == nil {
		return nil, fmt.Errorf("BotClient is not initialized")
	}
	return bc.api.Request(c)
}
