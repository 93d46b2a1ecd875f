package telegram_api

import (
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// Notify sends a plain text message to a chat. It satisfies the sweeper's
// notifier interface; delivery failures (user blocked the bot, chat gone)
// come back as errors for the caller to count, never to panic over.
func (bc *BotClient) Notify(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := bc.Send(msg)
	return err
}

// SendMessage sends text with an optional inline keyboard and optional parse
// mode. Errors are logged and returned.
func SendMessage(bc *BotClient, chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup, parseMode string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if parseMode != "" {
		msg.ParseMode = parseMode
	}
	sent, err := bc.Send(msg)
	if err != nil {
		log.Printf("SendMessage: error sending to chat %d: %v", chatID, err)
	}
	return sent, err
}

// SendPhoto sends raw image bytes (the referral QR code) with a caption.
func SendPhoto(bc *BotClient, chatID int64, name string, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = caption
	_, err := bc.Send(photo)
	if err != nil {
		log.Printf("SendPhoto: error sending to chat %d: %v", chatID, err)
	}
	return err
}

// SendDocument sends a generated file (operator exports) to a chat.
func SendDocument(bc *BotClient, chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	_, err := bc.Send(doc)
	if err != nil {
		log.Printf("SendDocument: error sending to chat %d: %v", chatID, err)
	}
	return err
}

// AnswerCallback acknowledges a callback query so the client stops showing a
// spinner.
func AnswerCallback(bc *BotClient, callbackID string) {
	if _, err := bc.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		log.Printf("AnswerCallback: error answering %s: %v", callbackID, err)
	}
}
