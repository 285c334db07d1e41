package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
	"github.com/martijnmoret-ds/OrderOctopus/internal/service"
)

type ctxKey string

const VenueKey ctxKey = "venue"

// GetVenue extracts the staff-chat venue from context. Nil in private chats
// and in group chats no venue is registered for.
func GetVenue(ctx context.Context) *domain.Venue {
	v, ok := ctx.Value(VenueKey).(*domain.Venue)
	if !ok {
		return nil
	}
	return v
}

// VenueLoader returns middleware that resolves group chats to their venue by
// approval chat ID. Staff command handlers read the result from context.
func VenueLoader(venues *service.VenueService) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			var chatType string
			var chatID int64

			if update.Message != nil {
				chatType = string(update.Message.Chat.Type)
				chatID = update.Message.Chat.ID
			} else if update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil {
				msg := update.CallbackQuery.Message.Message
				chatType = string(msg.Chat.Type)
				chatID = msg.Chat.ID
			}

			if chatType == "group" || chatType == "supergroup" {
				venue, err := venues.GetByApprovalChat(ctx, chatID)
				switch {
				case err == nil:
					ctx = context.WithValue(ctx, VenueKey, venue)
				case !errors.Is(err, domain.ErrVenueNotFound):
					slog.Error("load venue for chat", "error", err, "chat_id", chatID)
				}
			}

			next(ctx, b, update)
		}
	}
}
