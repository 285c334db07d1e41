package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
	"github.com/martijnmoret-ds/OrderOctopus/internal/middleware"
	"github.com/martijnmoret-ds/OrderOctopus/internal/service"
)

// handleDecisionCallback applies an approve/reject button press from the
// staff chat. Pressing a button on an already-decided order answers with the
// standing decision and changes nothing.
func (h *Handler) handleDecisionCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	decision := service.DecisionApprove
	rawID := strings.TrimPrefix(cb.Data, "approve_")
	if strings.HasPrefix(cb.Data, "reject_") {
		decision = service.DecisionReject
		rawID = strings.TrimPrefix(cb.Data, "reject_")
	}

	orderID, err := uuid.Parse(rawID)
	if err != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})
		return
	}

	venue := middleware.GetVenue(ctx)
	if venue == nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cb.ID,
			Text:            "This chat is not registered as a staff chat.",
		})
		return
	}

	// The button only counts inside the order's own approval chat.
	order, err := h.orderService.Get(ctx, orderID)
	if err != nil || order.VenueID != venue.ID {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cb.ID,
			Text:            "Order not found.",
		})
		return
	}

	actor := strconv.FormatInt(cb.From.ID, 10)
	if cb.From.Username != "" {
		actor = "@" + cb.From.Username
	}

	outcome, err := h.approvalService.ApplyDecision(ctx, orderID, decision, actor, "")
	if err != nil {
		slog.Error("apply decision", "error", err, "order_id", orderID)
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cb.ID,
			Text:            "Something went wrong, try again.",
		})
		return
	}

	if outcome.AlreadyDecided {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cb.ID,
			Text:            fmt.Sprintf("Already %s by %s.", outcome.Order.Status, outcome.Order.DecidedBy),
			ShowAlert:       true,
		})
		return
	}

	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})
	h.markDecided(ctx, b, cb, outcome.Order)
}

// markDecided rewrites the approval ticket in place so the buttons disappear
// and the decision stays visible in the chat history.
func (h *Handler) markDecided(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery, order *domain.Order) {
	msg := cb.Message.Message
	if msg == nil {
		return
	}

	verdict := "approved"
	if order.Status == domain.OrderRejected {
		verdict = "rejected"
	}
	text := fmt.Sprintf("%s\n\n%s by %s", msg.Text, strings.ToUpper(verdict), order.DecidedBy)

	if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
	}); err != nil {
		slog.Warn("edit approval ticket", "error", err, "order_id", order.ID)
	}
}
