package handlers

import (
	"surgebot/internal/config"
	"surgebot/internal/session"
	"surgebot/internal/solana"
	"surgebot/internal/telegram_api"
)

// HandlerDependencies contains all dependencies required by the handlers.
type HandlerDependencies struct {
	Config         *config.Config
	BotClient      *telegram_api.BotClient
	SessionManager *session.Manager
	Solana         *solana.Client
}

// BotHandler encapsulates message and callback processing.
type BotHandler struct {
	Deps    HandlerDependencies
	limiter *userLimiter
}

// NewBotHandler creates a new BotHandler. All dependencies are mandatory.
func NewBotHandler(deps HandlerDependencies) *BotHandler {
	if deps.Config == nil || deps.BotClient == nil || deps.SessionManager == nil || deps.Solana == nil {
		panic("handlers: missing BotHandler dependencies")
	}
	return &BotHandler{
		Deps:    deps,
		limiter: newUserLimiter(),
	}
}
