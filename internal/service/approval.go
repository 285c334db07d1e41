package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/martijnmoret-ds/OrderOctopus/internal/config"
	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// OrderTransitioner is the compare-and-swap boundary of the order ledger.
type OrderTransitioner interface {
	Transition(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus, actor, reason string) (*domain.Order, error)
}

// CreditDebiter is the debit side of the credit ledger.
type CreditDebiter interface {
	Debit(ctx context.Context, venueID int64, amount decimal.Decimal, kind domain.TxKind, orderID *uuid.UUID) (domain.DebitResult, error)
}

// VenueAlerter raises the standing shortfall alert.
type VenueAlerter interface {
	Get(ctx context.Context, id int64) (*domain.Venue, error)
	FlagLowBalance(ctx context.Context, id int64) error
}

// Notifier is the outbound side of the approval protocol: the staff chat,
// the optional kitchen chat, the customer, and the owner alert channel.
type Notifier interface {
	NotifyApproval(ctx context.Context, venue *domain.Venue, order *domain.Order) error
	NotifyKitchen(ctx context.Context, venue *domain.Venue, order *domain.Order) error
	NotifyCustomer(ctx context.Context, customerID string, resp domain.Response) error
	NotifyOwner(ctx context.Context, venue *domain.Venue, text string) error
}

// ApprovalOutcome reports a decision attempt. AlreadyDecided means a
// concurrent actor (or a redelivered event) won the race and nothing was
// debited by this call.
type ApprovalOutcome struct {
	Order          *domain.Order
	AlreadyDecided bool
	Debited        decimal.Decimal
	Balance        decimal.Decimal
}

// ApprovalService manages the pending -> approved/rejected protocol. The
// ledger's compare-and-swap is the only serialization point; whoever loses
// the race gets an "already decided" outcome and causes no side effects, so
// each order is debited at most once.
type ApprovalService struct {
	orders   OrderTransitioner
	billing  CreditDebiter
	venues   VenueAlerter
	notifier Notifier
}

func NewApprovalService(orders OrderTransitioner, billing CreditDebiter, venues VenueAlerter, notifier Notifier) *ApprovalService {
	return &ApprovalService{orders: orders, billing: billing, venues: venues, notifier: notifier}
}

// SubmitForApproval sends the freshly created order to the venue's approval
// destination with approve/reject affordances.
func (s *ApprovalService) SubmitForApproval(ctx context.Context, venue *domain.Venue, order *domain.Order) error {
	return s.notifier.NotifyApproval(ctx, venue, order)
}

// ApplyDecision applies a staff decision. Losing the transition race is a
// normal branch, not an anomaly.
func (s *ApprovalService) ApplyDecision(ctx context.Context, orderID uuid.UUID, decision Decision, actor, reason string) (*ApprovalOutcome, error) {
	target := domain.OrderApproved
	charge := decimal.NewFromFloat(config.OrderCharge)
	kind := domain.TxOrderCharge
	if decision == DecisionReject {
		target = domain.OrderRejected
		charge = decimal.NewFromFloat(config.RejectionCharge)
		kind = domain.TxOrderChargePartial
	}

	order, err := s.orders.Transition(ctx, orderID, target, actor, reason)
	if err != nil {
		var invalid *domain.InvalidTransitionError
		if errors.As(err, &invalid) {
			return &ApprovalOutcome{Order: order, AlreadyDecided: true}, nil
		}
		return nil, fmt.Errorf("transition order: %w", err)
	}

	outcome := &ApprovalOutcome{Order: order}

	// The decision stands whatever happens to the debit: orders, once
	// decided, are never rolled back.
	result, err := s.billing.Debit(ctx, order.VenueID, charge, kind, &order.ID)
	switch {
	case err != nil:
		// Decided without its paired debit: surfaced for operator
		// reconciliation, the process keeps running.
		slog.Error("order decided but debit failed",
			"error", err, "order_id", order.ID, "venue_id", order.VenueID, "charge", charge)
	case !result.OK:
		outcome.Balance = result.Balance
		if err := s.venues.FlagLowBalance(ctx, order.VenueID); err != nil {
			slog.Error("flag low balance", "error", err, "venue_id", order.VenueID)
		}
		s.alertShortfall(ctx, order, result.Balance)
	default:
		outcome.Debited = charge
		outcome.Balance = result.Balance
	}

	s.fanOut(ctx, order)
	return outcome, nil
}

func (s *ApprovalService) alertShortfall(ctx context.Context, order *domain.Order, balance decimal.Decimal) {
	venue, err := s.venues.Get(ctx, order.VenueID)
	if err != nil {
		slog.Error("load venue for shortfall alert", "error", err, "venue_id", order.VenueID)
		return
	}
	text := fmt.Sprintf("Credits exhausted: order #%d was processed but could not be charged (balance %s). New orders are paused until you top up.",
		order.SeqNo, balance.StringFixed(1))
	if err := s.notifier.NotifyOwner(ctx, venue, text); err != nil {
		slog.Error("notify owner", "error", err, "venue_id", venue.ID)
	}
}

// fanOut pushes the decision downstream: always the customer, plus the
// kitchen on approval. Failures are logged, never retried against the
// already-committed decision.
func (s *ApprovalService) fanOut(ctx context.Context, order *domain.Order) {
	venue, err := s.venues.Get(ctx, order.VenueID)
	if err != nil {
		slog.Error("load venue for fan-out", "error", err, "venue_id", order.VenueID)
		return
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.notifier.NotifyCustomer(gctx, order.CustomerID, customerDecisionResponse(order))
	})
	if order.Status == domain.OrderApproved && venue.KitchenChatID != nil {
		g.Go(func() error {
			return s.notifier.NotifyKitchen(gctx, venue, order)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Warn("decision fan-out incomplete", "error", err, "order_id", order.ID)
	}
}

func customerDecisionResponse(order *domain.Order) domain.Response {
	if order.Status == domain.OrderApproved {
		return domain.Response{Text: fmt.Sprintf("Order #%d was approved and is being prepared. Enjoy!", order.SeqNo)}
	}
	text := fmt.Sprintf("Order #%d was declined.", order.SeqNo)
	if order.RejectReason != "" {
		text += " Reason: " + order.RejectReason
	}
	return domain.Response{Text: text}
}
