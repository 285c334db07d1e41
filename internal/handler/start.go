package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	if update.Message.Chat.Type != "private" {
		h.handleStartGroup(ctx, b, update.Message.Chat.ID)
		return
	}

	chatID := update.Message.Chat.ID

	// Deep link payload: "v<venueID>" or "v<venueID>_t<table>", baked into
	// the QR code on each table.
	parts := strings.SplitN(update.Message.Text, " ", 2)
	if len(parts) > 1 {
		if venueID, tableRef, ok := parseTableLink(parts[1]); ok {
			h.bindings.set(chatID, venueID, tableRef)
		}
	}

	h.dispatchEvent(ctx, b, chatID, messageKey(update.Message), "", nil)
}

func (h *Handler) handleStartGroup(ctx context.Context, b *bot.Bot, chatID int64) {
	text := "This is the staff side of the ordering bot.\n\n" +
		"/register <name> links this chat to a new restaurant\n" +
		"/balance shows credits and recent charges\n" +
		"/credits buys more credits\n" +
		"/stop86 and /resume86 toggle menu items\n" +
		"/hours, /pause and /resume control order intake\n" +
		"/importmenu <url> imports a menu page\n" +
		"/tablelink [table] prints a customer link"
	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
}

// handleMenuCommand lets a bound customer pull the menu without typing.
func (h *Handler) handleMenuCommand(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	h.dispatchEvent(ctx, b, update.Message.Chat.ID, messageKey(update.Message), "",
		&domain.StructuredAction{Kind: domain.ActionShowMenu})
}

// dispatchEvent builds the normalized event for a customer chat, runs the
// orchestrator and sends the response back.
func (h *Handler) dispatchEvent(ctx context.Context, b *bot.Bot, chatID int64, idempotencyKey, text string, action *domain.StructuredAction) {
	ev := domain.InboundEvent{
		CustomerID:     strconv.FormatInt(chatID, 10),
		IdempotencyKey: idempotencyKey,
		Text:           text,
		Action:         action,
		Timestamp:      time.Now(),
	}
	if bind, ok := h.bindings.get(chatID); ok {
		ev.VenueID = bind.venueID
		ev.TableRef = bind.tableRef
	}

	resp := h.orchestrator.HandleEvent(ctx, ev)
	h.sendResponse(ctx, b, chatID, resp)
}

func parseTableLink(payload string) (venueID int64, tableRef string, ok bool) {
	raw, found := strings.CutPrefix(payload, "v")
	if !found {
		return 0, "", false
	}
	if idx := strings.Index(raw, "_t"); idx >= 0 {
		tableRef = raw[idx+2:]
		raw = raw[:idx]
	}
	venueID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || venueID <= 0 {
		return 0, "", false
	}
	return venueID, tableRef, true
}

func messageKey(msg *models.Message) string {
	return fmt.Sprintf("msg:%d:%d", msg.Chat.ID, msg.ID)
}
