package handler

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

var actionKinds = map[string]domain.ActionKind{
	"act_menu":    domain.ActionShowMenu,
	"act_add":     domain.ActionAddMore,
	"act_remove":  domain.ActionRemove,
	"act_done":    domain.ActionDone,
	"act_confirm": domain.ActionConfirm,
	"act_modify":  domain.ActionModify,
	"act_cancel":  domain.ActionCancel,
}

// handleActionCallback turns an affordance button press into a structured
// action event. The callback query ID doubles as the idempotency key, so a
// redelivered press replays the original response.
func (h *Handler) handleActionCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})

	kind, ok := actionKinds[cb.Data]
	if !ok {
		return
	}

	h.dispatchEvent(ctx, b, cb.From.ID, "cb:"+cb.ID, "",
		&domain.StructuredAction{Kind: kind})
}

// handleOptionCallback answers an open option prompt, e.g. opt_Chicken. The
// choice travels as text so it takes the same path as a typed reply.
func (h *Handler) handleOptionCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})

	choice := strings.TrimPrefix(cb.Data, "opt_")
	if choice == "" {
		return
	}

	h.dispatchEvent(ctx, b, cb.From.ID, "cb:"+cb.ID, choice, nil)
}
