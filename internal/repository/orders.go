package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

const orderColumns = `id, venue_id, order_date, seq_no, table_ref, customer_id, total,
	status, decided_by, reject_reason, created_at, decided_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.VenueID, &o.OrderDate, &o.SeqNo, &o.TableRef, &o.CustomerID, &o.Total,
		&o.Status, &o.DecidedBy, &o.RejectReason, &o.CreatedAt, &o.DecidedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &o, nil
}

// NextOrderSeq computes the next per-venue sequence number for the given
// local day. Callers must hold the venue row lock; the unique index on
// (venue_id, order_date, seq_no) backstops any violation.
func (q *Queries) NextOrderSeq(ctx context.Context, venueID int64, orderDate time.Time) (int, error) {
	var seq int
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq_no), 0) + 1 FROM orders
		WHERE venue_id = $1 AND order_date = $2`,
		venueID, orderDate).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next order seq: %w", err)
	}
	return seq, nil
}

func (q *Queries) InsertOrder(ctx context.Context, o *domain.Order) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO orders (id, venue_id, order_date, seq_no, table_ref, customer_id, total, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.VenueID, o.OrderDate, o.SeqNo, o.TableRef, o.CustomerID, o.Total, o.Status)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (q *Queries) InsertOrderItem(ctx context.Context, orderID uuid.UUID, item domain.OrderLineItem) error {
	selections, err := json.Marshal(item.Selections)
	if err != nil {
		return fmt.Errorf("encode selections: %w", err)
	}
	mods := item.Modifications
	if mods == nil {
		mods = []string{}
	}
	_, err = q.db.Exec(ctx, `
		INSERT INTO order_items (order_id, menu_item_id, name, quantity, selections,
			modifications, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		orderID, item.MenuItemID, item.Name, item.Quantity, selections,
		mods, item.UnitPrice, item.LineTotal)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLineItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT menu_item_id, name, quantity, selections, modifications, unit_price, line_total
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderLineItem
	for rows.Next() {
		var (
			item          domain.OrderLineItem
			selectionsRaw []byte
		)
		if err := rows.Scan(&item.MenuItemID, &item.Name, &item.Quantity, &selectionsRaw,
			&item.Modifications, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if err := json.Unmarshal(selectionsRaw, &item.Selections); err != nil {
			return nil, fmt.Errorf("decode selections: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	items, err := q.ListOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// DecideOrder is the compare-and-swap on order status: it only fires while
// the order is still pending. pgx.ErrNoRows signals a lost race.
func (q *Queries) DecideOrder(ctx context.Context, id uuid.UUID, status domain.OrderStatus, actor, reason string) (*domain.Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, decided_by = $3, reject_reason = $4, decided_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+orderColumns,
		id, status, actor, reason)

	var o domain.Order
	err := row.Scan(
		&o.ID, &o.VenueID, &o.OrderDate, &o.SeqNo, &o.TableRef, &o.CustomerID, &o.Total,
		&o.Status, &o.DecidedBy, &o.RejectReason, &o.CreatedAt, &o.DecidedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("decide order: %w", err)
	}
	return &o, nil
}
