package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

type InsertTransactionParams struct {
	VenueID     int64
	Amount      decimal.Decimal
	Kind        domain.TxKind
	OrderID     *uuid.UUID
	ExternalRef *string
}

func (q *Queries) InsertCreditTransaction(ctx context.Context, p InsertTransactionParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO credit_transactions (venue_id, amount, kind, order_id, external_ref)
		VALUES ($1, $2, $3, $4, $5)`,
		p.VenueID, p.Amount, p.Kind, p.OrderID, p.ExternalRef)
	if err != nil {
		return fmt.Errorf("insert credit transaction: %w", err)
	}
	return nil
}

// InsertPurchaseTransaction records a payment-confirmation credit, deduped
// by (venue_id, external_ref). Returns false when the reference was already
// applied, in which case the caller must not touch the balance.
func (q *Queries) InsertPurchaseTransaction(ctx context.Context, venueID int64, amount decimal.Decimal, externalRef string) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO credit_transactions (venue_id, amount, kind, external_ref)
		VALUES ($1, $2, 'purchase', $3)
		ON CONFLICT (venue_id, external_ref) WHERE kind = 'purchase' DO NOTHING`,
		venueID, amount, externalRef)
	if err != nil {
		return false, fmt.Errorf("insert purchase transaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) ListCreditTransactions(ctx context.Context, venueID int64, limit int) ([]domain.CreditTransaction, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, venue_id, amount, kind, order_id, external_ref, created_at
		FROM credit_transactions
		WHERE venue_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, venueID, limit)
	if err != nil {
		return nil, fmt.Errorf("query credit transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.CreditTransaction
	for rows.Next() {
		var tx domain.CreditTransaction
		if err := rows.Scan(&tx.ID, &tx.VenueID, &tx.Amount, &tx.Kind, &tx.OrderID,
			&tx.ExternalRef, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credit transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
