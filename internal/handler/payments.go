package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"github.com/martijnmoret-ds/OrderOctopus/internal/config"
	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
	"github.com/martijnmoret-ds/OrderOctopus/internal/middleware"
	tg "github.com/martijnmoret-ds/OrderOctopus/internal/telegram"
)

// handleCredits offers the credit packages as a Telegram Stars purchase.
func (h *Handler) handleCredits(ctx context.Context, b *bot.Bot, update *models.Update) {
	venue := h.staffVenue(ctx, b, update)
	if venue == nil {
		return
	}
	chatID := update.Message.Chat.ID

	var rows [][]models.InlineKeyboardButton
	for _, pkg := range config.CreditPackages {
		stars := pkg * config.XTRPerCredit
		rows = append(rows, tg.ButtonRow(tg.InlineButton(
			fmt.Sprintf("%d credits (%d Stars)", pkg, stars),
			fmt.Sprintf("buy_%d", pkg),
		)))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("Balance: %s credits.\nEach approved order costs %.1f, a rejection %.1f.\nPick a package:",
			venue.Balance.StringFixed(1), config.OrderCharge, config.RejectionCharge),
		ReplyMarkup: tg.InlineKeyboard(rows...),
	})
}

// handleBuyPackage sends the Stars invoice for the chosen package. The
// payload carries the venue so the payment confirmation can be credited
// without relying on chat context.
func (h *Handler) handleBuyPackage(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})

	venue := middleware.GetVenue(ctx)
	if venue == nil {
		return
	}

	pkg, err := strconv.Atoi(strings.TrimPrefix(cb.Data, "buy_"))
	if err != nil || pkg <= 0 {
		return
	}

	var chatID int64
	if msg := cb.Message.Message; msg != nil {
		chatID = msg.Chat.ID
	}

	_, err = b.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:      chatID,
		Title:       "Credit top-up",
		Description: fmt.Sprintf("%d ordering credits for %s", pkg, venue.Name),
		Payload:     fmt.Sprintf("credits_%d_%d", venue.ID, pkg),
		Currency:    "XTR",
		Prices: []models.LabeledPrice{
			{Label: fmt.Sprintf("%d credits", pkg), Amount: pkg * config.XTRPerCredit},
		},
	})
	if err != nil {
		slog.Error("send invoice", "error", err, "venue_id", venue.ID)
	}
}

// HandlePreCheckout approves the pre-checkout query; the real idempotency
// guard runs at confirmation time against the charge ID.
func (h *Handler) HandlePreCheckout(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.PreCheckoutQuery == nil {
		return
	}
	b.AnswerPreCheckoutQuery(ctx, &bot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: update.PreCheckoutQuery.ID,
		OK:                 true,
	})
}

// HandleSuccessfulPayment credits the purchased package. The Telegram charge
// ID is the external reference: a redelivered confirmation credits nothing.
func (h *Handler) HandleSuccessfulPayment(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.SuccessfulPayment == nil {
		return
	}
	payment := update.Message.SuccessfulPayment
	chatID := update.Message.Chat.ID

	venueID, pkg, err := parseCreditPayload(payment.InvoicePayload)
	if err != nil {
		slog.Error("parse payment payload", "error", err, "payload", payment.InvoicePayload)
		return
	}

	balance, err := h.billingService.CreditPurchase(ctx, venueID,
		decimal.NewFromInt(int64(pkg)), payment.TelegramPaymentChargeID)
	if errors.Is(err, domain.ErrDuplicatePayment) {
		slog.Info("duplicate payment confirmation ignored",
			"venue_id", venueID, "charge_id", payment.TelegramPaymentChargeID)
		return
	}
	if err != nil {
		slog.Error("credit purchase", "error", err,
			"venue_id", venueID, "charge_id", payment.TelegramPaymentChargeID)
		return
	}

	// A top-up lifts the standing shortfall pause, if any.
	venue, err := h.venueService.Get(ctx, venueID)
	if err == nil && venue.LowBalanceAlert {
		if err := h.venueService.ClearLowBalance(ctx, venueID); err != nil {
			slog.Error("clear low balance", "error", err, "venue_id", venueID)
		}
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("Payment received: %d credits added. Balance: %s.", pkg, balance.StringFixed(1)),
	})
}

func parseCreditPayload(payload string) (venueID int64, pkg int, err error) {
	rest, ok := strings.CutPrefix(payload, "credits_")
	if !ok {
		return 0, 0, fmt.Errorf("unexpected payload %q", payload)
	}
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected payload %q", payload)
	}
	venueID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse venue id: %w", err)
	}
	pkg, err = strconv.Atoi(parts[1])
	if err != nil || pkg <= 0 {
		return 0, 0, fmt.Errorf("parse package size: %v", err)
	}
	return venueID, pkg, nil
}
