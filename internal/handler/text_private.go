package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
	tg "github.com/martijnmoret-ds/OrderOctopus/internal/telegram"
)

// HandleTextPrivate feeds a private text message into the conversation.
func (h *Handler) HandleTextPrivate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	msg := update.Message

	if strings.HasPrefix(msg.Text, "/") {
		return
	}
	if msg.SuccessfulPayment != nil {
		h.HandleSuccessfulPayment(ctx, b, update)
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	stopTyping := tg.StartTyping(ctx, b, msg.Chat.ID)
	defer stopTyping()

	h.dispatchEvent(ctx, b, msg.Chat.ID, messageKey(msg), msg.Text, nil)
}

func (h *Handler) sendResponse(ctx context.Context, b *bot.Bot, chatID int64, resp domain.Response) {
	if err := tg.SendResponse(ctx, b, chatID, resp); err != nil {
		slog.Error("send response", "error", err, "chat_id", chatID)
	}
}
