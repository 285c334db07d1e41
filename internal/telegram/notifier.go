package telegram

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

// Notifier pushes approval requests, kitchen tickets, customer updates and
// owner alerts out through the bot. It implements service.Notifier.
type Notifier struct {
	bot *bot.Bot
}

func NewNotifier(b *bot.Bot) *Notifier {
	return &Notifier{bot: b}
}

// NotifyApproval posts the order ticket to the venue's approval chat with
// approve/reject buttons carrying the order ID.
func (n *Notifier) NotifyApproval(ctx context.Context, venue *domain.Venue, order *domain.Order) error {
	text := fmt.Sprintf("New order #%d\n\n%s", order.SeqNo, RenderOrderTicket(order))
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: venue.ApprovalChatID,
		Text:   text,
		ReplyMarkup: InlineKeyboard(ButtonRow(
			InlineButton("Approve", "approve_"+order.ID.String()),
			InlineButton("Reject", "reject_"+order.ID.String()),
		)),
	})
	if err != nil {
		return fmt.Errorf("send approval request: %w", err)
	}
	return nil
}

// NotifyKitchen forwards an approved order to the kitchen chat, if one is
// configured.
func (n *Notifier) NotifyKitchen(ctx context.Context, venue *domain.Venue, order *domain.Order) error {
	if venue.KitchenChatID == nil {
		return nil
	}
	text := fmt.Sprintf("Order #%d approved\n\n%s", order.SeqNo, RenderOrderTicket(order))
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *venue.KitchenChatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send kitchen ticket: %w", err)
	}
	return nil
}

// NotifyCustomer delivers a decision update to the customer's private chat.
// Customer IDs are chat IDs rendered as strings by the inbound adapter.
func (n *Notifier) NotifyCustomer(ctx context.Context, customerID string, resp domain.Response) error {
	chatID, err := strconv.ParseInt(customerID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse customer id %q: %w", customerID, err)
	}
	return SendResponse(ctx, n.bot, chatID, resp)
}

// NotifyOwner sends an operational alert to the venue's approval chat.
func (n *Notifier) NotifyOwner(ctx context.Context, venue *domain.Venue, text string) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: venue.ApprovalChatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send owner alert: %w", err)
	}
	return nil
}

// RenderOrderTicket formats an order for staff-facing chats.
func RenderOrderTicket(order *domain.Order) string {
	var b strings.Builder
	if order.TableRef != "" {
		fmt.Fprintf(&b, "Table: %s\n", order.TableRef)
	}
	for _, it := range order.Items {
		fmt.Fprintf(&b, "%dx %s", it.Quantity, it.Name)
		if len(it.Selections) > 0 {
			groups := make([]string, 0, len(it.Selections))
			for g := range it.Selections {
				groups = append(groups, g)
			}
			sort.Strings(groups)
			parts := make([]string, len(groups))
			for i, g := range groups {
				parts[i] = it.Selections[g]
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
		}
		for _, m := range it.Modifications {
			fmt.Fprintf(&b, ", %s", m)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nTotal: %s", order.Total.StringFixed(2))
	return b.String()
}
