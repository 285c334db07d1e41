package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
	"github.com/martijnmoret-ds/OrderOctopus/internal/middleware"
)

// staffVenue resolves the venue for a staff command, replying with guidance
// when the chat is not registered.
func (h *Handler) staffVenue(ctx context.Context, b *bot.Bot, update *models.Update) *domain.Venue {
	if update.Message == nil || update.Message.Chat.Type == "private" {
		return nil
	}
	venue := middleware.GetVenue(ctx)
	if venue == nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "This chat is not registered. Use /register <restaurant name> first.",
		})
		return nil
	}
	return venue
}

func commandArgs(text string) string {
	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (h *Handler) handleRegisterVenue(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type == "private" {
		return
	}
	chatID := update.Message.Chat.ID

	if existing := middleware.GetVenue(ctx); existing != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("This chat already manages %s.", existing.Name),
		})
		return
	}

	name := commandArgs(update.Message.Text)
	if name == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Usage: /register <restaurant name>",
		})
		return
	}

	venue, err := h.venueService.Register(ctx, name, chatID, nil, "")
	if err != nil {
		slog.Error("register venue", "error", err, "chat_id", chatID)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Registration failed, please try again.",
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("%s is registered with %s starter credits.\n"+
			"Customers order through https://t.me/%s?start=v%d\n"+
			"Use /tablelink <table> for per-table links and /importmenu <url> to load the menu.",
			venue.Name, venue.Balance.StringFixed(1), h.botUsername, venue.ID),
	})
}

func (h *Handler) handleBalance(ctx context.Context, b *bot.Bot, update *models.Update) {
	venue := h.staffVenue(ctx, b, update)
	if venue == nil {
		return
	}
	chatID := update.Message.Chat.ID

	var sb strings.Builder
	fmt.Fprintf(&sb, "Balance: %s credits\n", venue.Balance.StringFixed(1))
	fmt.Fprintf(&sb, "Free menu imports left: %d\n", venue.FreeParsesLeft)

	history, err := h.billingService.History(ctx, venue.ID, 5)
	if err != nil {
		slog.Error("load transaction history", "error", err, "venue_id", venue.ID)
	} else if len(history) > 0 {
		sb.WriteString("\nRecent activity:\n")
		for _, tx := range history {
			fmt.Fprintf(&sb, "%s  %s  %s\n",
				tx.CreatedAt.Format("Jan 2 15:04"), tx.Amount.StringFixed(1), tx.Kind)
		}
	}

	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: sb.String()})
}

func (h *Handler) handleStop86(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.toggleAvailability(ctx, b, update, false)
}

func (h *Handler) handleResume86(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.toggleAvailability(ctx, b, update, true)
}

func (h *Handler) toggleAvailability(ctx context.Context, b *bot.Bot, update *models.Update, available bool) {
	venue := h.staffVenue(ctx, b, update)
	if venue == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if args == "" {
		usage := "Usage: /stop86 <item>, <item>, ..."
		if available {
			usage = "Usage: /resume86 <item>, <item>, ..."
		}
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: usage})
		return
	}

	var names []string
	for _, name := range strings.Split(args, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	affected, err := h.menuService.SetAvailability(ctx, venue.ID, names, available)
	if err != nil {
		slog.Error("set availability", "error", err, "venue_id", venue.ID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "Update failed, please try again."})
		return
	}

	verb := "86'd"
	if available {
		verb = "back on"
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("%d item(s) %s.", affected, verb),
	})
}

func (h *Handler) handleHours(ctx context.Context, b *bot.Bot, update *models.Update) {
	venue := h.staffVenue(ctx, b, update)
	if venue == nil {
		return
	}
	chatID := update.Message.Chat.ID

	fields := strings.Fields(commandArgs(update.Message.Text))
	if len(fields) < 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Usage: /hours <open> <close> [timezone], e.g. /hours 11:00 23:00 Europe/Amsterdam",
		})
		return
	}

	hours := domain.BusinessHours{Open: fields[0], Close: fields[1], Timezone: venue.Hours.Timezone}
	if len(fields) > 2 {
		hours.Timezone = fields[2]
	}

	if err := h.venueService.SetHours(ctx, venue.ID, hours); err != nil {
		slog.Error("set hours", "error", err, "venue_id", venue.ID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "Update failed, please try again."})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("Hours set: %s to %s (%s).", hours.Open, hours.Close, hours.Location()),
	})
}

func (h *Handler) handlePause(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.setStatus(ctx, b, update, domain.VenuePaused, "Order intake paused.")
}

func (h *Handler) handleResume(ctx context.Context, b *bot.Bot, update *models.Update) {
	// "/resume86 ..." also matches this prefix; hand it over.
	if update.Message != nil && strings.HasPrefix(update.Message.Text, "/resume86") {
		h.handleResume86(ctx, b, update)
		return
	}
	h.setStatus(ctx, b, update, domain.VenueActive, "Order intake resumed.")
}

func (h *Handler) handleHide(ctx context.Context, b *bot.Bot, update *models.Update) {
	venue := h.staffVenue(ctx, b, update)
	if venue == nil {
		return
	}
	chatID := update.Message.Chat.ID

	name := commandArgs(update.Message.Text)
	if name == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "Usage: /hide <item>"})
		return
	}

	hidden, err := h.menuService.Hide(ctx, venue.ID, name)
	if err != nil {
		slog.Error("hide menu item", "error", err, "venue_id", venue.ID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "Update failed, please try again."})
		return
	}
	if !hidden {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "No menu item by that name."})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("%q removed from the menu. Past orders keep it.", name),
	})
}

func (h *Handler) setStatus(ctx context.Context, b *bot.Bot, update *models.Update, status domain.VenueStatus, confirmation string) {
	venue := h.staffVenue(ctx, b, update)
	if venue == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if err := h.venueService.SetStatus(ctx, venue.ID, status); err != nil {
		slog.Error("set venue status", "error", err, "venue_id", venue.ID, "status", status)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "Update failed, please try again."})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: confirmation})
}

func (h *Handler) handleImportMenu(ctx context.Context, b *bot.Bot, update *models.Update) {
	venue := h.staffVenue(ctx, b, update)
	if venue == nil {
		return
	}
	chatID := update.Message.Chat.ID

	pageURL := commandArgs(update.Message.Text)
	if pageURL == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "Usage: /importmenu <url>"})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "Importing, one moment..."})

	count, err := h.importService.ImportFromURL(ctx, venue, pageURL)
	if err != nil {
		slog.Error("import menu", "error", err, "venue_id", venue.ID, "url", pageURL)
		text := "Import failed: " + err.Error()
		if venue.FreeParsesLeft == 0 {
			text += "\nNote: imports cost credits once the free quota is used."
		}
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("Imported %d menu item(s). Review with /stop86 anything you don't serve.", count),
	})
}

func (h *Handler) handleTableLink(ctx context.Context, b *bot.Bot, update *models.Update) {
	venue := h.staffVenue(ctx, b, update)
	if venue == nil {
		return
	}
	chatID := update.Message.Chat.ID

	payload := fmt.Sprintf("v%d", venue.ID)
	if table := commandArgs(update.Message.Text); table != "" {
		payload += "_t" + strings.ReplaceAll(table, " ", "-")
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("https://t.me/%s?start=%s", h.botUsername, payload),
	})
}
