package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

type approvalFixture struct {
	svc      *ApprovalService
	orders   *memOrders
	billing  *memBilling
	venues   *memVenues
	notifier *recordingNotifier
}

func newApprovalFixture(balance string) *approvalFixture {
	f := &approvalFixture{
		orders:   newMemOrders(),
		billing:  &memBilling{balance: decimal.RequireFromString(balance)},
		venues:   newMemVenues(testVenue()),
		notifier: &recordingNotifier{},
	}
	f.svc = NewApprovalService(f.orders, f.billing, f.venues, f.notifier)
	return f
}

func (f *approvalFixture) pendingOrder(t *testing.T) *domain.Order {
	t.Helper()
	line := domain.OrderLineItem{
		Name:      "Fries",
		Quantity:  1,
		UnitPrice: decimal.RequireFromString("3.00"),
		LineTotal: decimal.RequireFromString("3.00"),
	}
	order, err := f.orders.Create(context.Background(), testVenue(), "cust-1", "t4", []domain.OrderLineItem{line})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestApplyDecisionApprove(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture("25")
	order := f.pendingOrder(t)

	outcome, err := f.svc.ApplyDecision(context.Background(), order.ID, DecisionApprove, "staff-9", "")
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if outcome.AlreadyDecided {
		t.Fatal("fresh decision reported as already decided")
	}
	if outcome.Order.Status != domain.OrderApproved {
		t.Errorf("status = %s", outcome.Order.Status)
	}
	if !outcome.Debited.Equal(decimal.NewFromInt(1)) {
		t.Errorf("debited = %s, want 1", outcome.Debited)
	}
	if !outcome.Balance.Equal(decimal.NewFromInt(24)) {
		t.Errorf("balance = %s, want 24", outcome.Balance)
	}
	if len(f.notifier.customer) != 1 {
		t.Errorf("customer notifications = %d", len(f.notifier.customer))
	}
}

func TestApplyDecisionRejectChargesHalf(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture("25")
	order := f.pendingOrder(t)

	outcome, err := f.svc.ApplyDecision(context.Background(), order.ID, DecisionReject, "staff-9", "out of fries")
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if outcome.Order.Status != domain.OrderRejected {
		t.Errorf("status = %s", outcome.Order.Status)
	}
	if outcome.Order.RejectReason != "out of fries" {
		t.Errorf("reason = %q", outcome.Order.RejectReason)
	}
	if !outcome.Debited.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("debited = %s, want 0.5", outcome.Debited)
	}
	if len(f.notifier.customer) != 1 || !strings.Contains(f.notifier.customer[0].Text, "out of fries") {
		t.Errorf("customer notification = %+v", f.notifier.customer)
	}
}

func TestApplyDecisionSecondCallIsNoOp(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture("25")
	order := f.pendingOrder(t)
	ctx := context.Background()

	if _, err := f.svc.ApplyDecision(ctx, order.ID, DecisionApprove, "staff-1", ""); err != nil {
		t.Fatalf("first decision: %v", err)
	}
	outcome, err := f.svc.ApplyDecision(ctx, order.ID, DecisionReject, "staff-2", "changed my mind")
	if err != nil {
		t.Fatalf("second decision: %v", err)
	}
	if !outcome.AlreadyDecided {
		t.Fatal("second decision not reported as already decided")
	}
	if outcome.Order.Status != domain.OrderApproved {
		t.Errorf("second decision flipped the order to %s", outcome.Order.Status)
	}
	if len(f.billing.debits) != 1 {
		t.Errorf("debits = %d, want exactly 1", len(f.billing.debits))
	}
	if len(f.notifier.customer) != 1 {
		t.Errorf("customer notified %d times", len(f.notifier.customer))
	}
}

func TestConcurrentDecisionsDebitOnce(t *testing.T) {
	t.Parallel()

	for i := 0; i < 20; i++ {
		f := newApprovalFixture("25")
		order := f.pendingOrder(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		outcomes := make([]*ApprovalOutcome, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			outcomes[0], _ = f.svc.ApplyDecision(ctx, order.ID, DecisionApprove, "staff-a", "")
		}()
		go func() {
			defer wg.Done()
			outcomes[1], _ = f.svc.ApplyDecision(ctx, order.ID, DecisionReject, "staff-b", "busy")
		}()
		wg.Wait()

		winners := 0
		for _, o := range outcomes {
			if o != nil && !o.AlreadyDecided {
				winners++
			}
		}
		if winners != 1 {
			t.Fatalf("round %d: winners = %d, want exactly 1", i, winners)
		}
		if len(f.billing.debits) != 1 {
			t.Fatalf("round %d: debits = %d, want exactly 1", i, len(f.billing.debits))
		}
		total := f.billing.debitTotal()
		if !total.Equal(decimal.NewFromInt(1)) && !total.Equal(decimal.RequireFromString("0.5")) {
			t.Fatalf("round %d: debit total = %s", i, total)
		}
	}
}

func TestShortfallKeepsDecisionAndAlertsOwner(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture("0.3")
	order := f.pendingOrder(t)

	outcome, err := f.svc.ApplyDecision(context.Background(), order.ID, DecisionApprove, "staff-1", "")
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if outcome.Order.Status != domain.OrderApproved {
		t.Errorf("shortfall rolled back the decision: %s", outcome.Order.Status)
	}
	if !outcome.Debited.IsZero() {
		t.Errorf("debited = %s, want 0", outcome.Debited)
	}
	if len(f.billing.debits) != 0 {
		t.Errorf("debits recorded despite shortfall")
	}
	if !f.venues.flagged(testVenueID) {
		t.Error("venue not flagged for low balance")
	}
	if len(f.notifier.owner) != 1 || !strings.Contains(f.notifier.owner[0], "Credits exhausted") {
		t.Errorf("owner alerts = %v", f.notifier.owner)
	}
	if len(f.notifier.customer) != 1 {
		t.Errorf("customer still gets the decision, notifications = %d", len(f.notifier.customer))
	}
}

func TestApprovedOrderReachesKitchen(t *testing.T) {
	t.Parallel()

	kitchenChat := int64(-100200300)
	venue := testVenue()
	venue.KitchenChatID = &kitchenChat

	f := newApprovalFixture("25")
	f.venues = newMemVenues(venue)
	f.svc = NewApprovalService(f.orders, f.billing, f.venues, f.notifier)
	order := f.pendingOrder(t)
	ctx := context.Background()

	if _, err := f.svc.ApplyDecision(ctx, order.ID, DecisionApprove, "staff-1", ""); err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if f.notifier.kitchen != 1 {
		t.Errorf("kitchen notifications = %d, want 1", f.notifier.kitchen)
	}

	// Rejections never reach the kitchen.
	second := f.pendingOrder(t)
	if _, err := f.svc.ApplyDecision(ctx, second.ID, DecisionReject, "staff-1", ""); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if f.notifier.kitchen != 1 {
		t.Errorf("rejected order reached the kitchen")
	}
}

func TestSubmitForApproval(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture("25")
	order := f.pendingOrder(t)

	if err := f.svc.SubmitForApproval(context.Background(), testVenue(), order); err != nil {
		t.Fatalf("SubmitForApproval: %v", err)
	}
	if f.notifier.approvals != 1 {
		t.Errorf("approval notifications = %d", f.notifier.approvals)
	}
}
