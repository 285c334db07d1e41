package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Customer commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/menu", bot.MatchTypePrefix, h.handleMenuCommand)

	// Staff commands (approval group chat)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/register", bot.MatchTypePrefix, h.handleRegisterVenue)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/balance", bot.MatchTypePrefix, h.handleBalance)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/credits", bot.MatchTypePrefix, h.handleCredits)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stop86", bot.MatchTypePrefix, h.handleStop86)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/resume86", bot.MatchTypePrefix, h.handleResume86)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/hours", bot.MatchTypePrefix, h.handleHours)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pause", bot.MatchTypePrefix, h.handlePause)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/resume", bot.MatchTypePrefix, h.handleResume)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/hide", bot.MatchTypePrefix, h.handleHide)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/importmenu", bot.MatchTypePrefix, h.handleImportMenu)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/tablelink", bot.MatchTypePrefix, h.handleTableLink)

	// Approval callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "approve_", bot.MatchTypePrefix, h.handleDecisionCallback)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "reject_", bot.MatchTypePrefix, h.handleDecisionCallback)

	// Conversation affordance callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "act_", bot.MatchTypePrefix, h.handleActionCallback)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "opt_", bot.MatchTypePrefix, h.handleOptionCallback)

	// Credit purchase callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "buy_", bot.MatchTypePrefix, h.handleBuyPackage)

	// Note: PreCheckoutQuery is handled via default handler in main.go
}

// HandleDefault routes updates without a matching registered handler:
// pre-checkout queries, successful payments, and plain conversation text.
func (h *Handler) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.PreCheckoutQuery != nil {
		h.HandlePreCheckout(ctx, b, update)
		return
	}
	if update.Message != nil && update.Message.SuccessfulPayment != nil {
		h.HandleSuccessfulPayment(ctx, b, update)
		return
	}
}
