package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
	"github.com/martijnmoret-ds/OrderOctopus/internal/repository"
)

// OrderService is the order ledger: creation allocates the per-venue daily
// sequence atomically, and the status state machine only moves through the
// compare-and-swap in Transition.
type OrderService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
	now     func() time.Time
}

func NewOrderService(db *pgxpool.Pool, queries *repository.Queries) *OrderService {
	return &OrderService{db: db, queries: queries, now: time.Now}
}

// Create persists a new pending order. The venue row lock serializes the
// sequence allocation so concurrent creates for one venue never collide;
// the unique index backstops it. Gaps are possible on failed transactions,
// duplicates are not.
func (s *OrderService) Create(ctx context.Context, venue *domain.Venue, customerID, tableRef string, items []domain.OrderLineItem) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
	}

	order := &domain.Order{
		ID:         uuid.New(),
		VenueID:    venue.ID,
		OrderDate:  venue.LocalDate(s.now()),
		TableRef:   tableRef,
		CustomerID: customerID,
		Items:      items,
		Total:      domain.OrderTotal(items),
		Status:     domain.OrderPending,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.queries.WithTx(tx)

	if _, err := qtx.GetVenueForUpdate(ctx, venue.ID); err != nil {
		return nil, fmt.Errorf("lock venue: %w", err)
	}

	seq, err := qtx.NextOrderSeq(ctx, venue.ID, order.OrderDate)
	if err != nil {
		return nil, err
	}
	order.SeqNo = seq

	if err := qtx.InsertOrder(ctx, order); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := qtx.InsertOrderItem(ctx, order.ID, item); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	order.CreatedAt = s.now()
	return order, nil
}

// Transition moves a pending order to approved or rejected. Any other
// request, or a lost race against a concurrent decision, returns the order
// unchanged together with InvalidTransitionError.
func (s *OrderService) Transition(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus, actor, reason string) (*domain.Order, error) {
	if !target.Terminal() {
		order, err := s.queries.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return order, &domain.InvalidTransitionError{From: order.Status, To: target}
	}

	order, err := s.queries.DecideOrder(ctx, orderID, target, actor, reason)
	if err == nil {
		order.Items, err = s.queries.ListOrderItems(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// CAS refused: the order was already decided (or never existed).
	order, err = s.queries.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order, &domain.InvalidTransitionError{From: order.Status, To: target}
}

func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.queries.GetOrder(ctx, orderID)
}
