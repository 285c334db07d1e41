package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
	"github.com/martijnmoret-ds/OrderOctopus/internal/repository"
)

// BillingService is the credit ledger: every venue balance change happens in
// one transaction together with its immutable transaction row.
type BillingService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
}

func NewBillingService(db *pgxpool.Pool, queries *repository.Queries) *BillingService {
	return &BillingService{db: db, queries: queries}
}

// Debit conditionally charges a venue. A short balance is a first-class
// result, not an error: nothing is written and the unchanged balance is
// reported so the caller can branch.
func (s *BillingService) Debit(ctx context.Context, venueID int64, amount decimal.Decimal, kind domain.TxKind, orderID *uuid.UUID) (domain.DebitResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.DebitResult{}, &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.DebitResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.queries.WithTx(tx)

	venue, err := qtx.GetVenueForUpdate(ctx, venueID)
	if err != nil {
		return domain.DebitResult{}, fmt.Errorf("lock venue: %w", err)
	}

	if venue.Balance.LessThan(amount) {
		return domain.DebitResult{OK: false, Balance: venue.Balance}, nil
	}

	newBalance, err := qtx.UpdateVenueBalance(ctx, venueID, amount.Neg())
	if err != nil {
		return domain.DebitResult{}, fmt.Errorf("update balance: %w", err)
	}

	if err := qtx.InsertCreditTransaction(ctx, repository.InsertTransactionParams{
		VenueID: venueID,
		Amount:  amount.Neg(),
		Kind:    kind,
		OrderID: orderID,
	}); err != nil {
		return domain.DebitResult{}, fmt.Errorf("create transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.DebitResult{}, fmt.Errorf("commit: %w", err)
	}

	return domain.DebitResult{OK: true, Balance: newBalance}, nil
}

// Credit adds funds unconditionally.
func (s *BillingService) Credit(ctx context.Context, venueID int64, amount decimal.Decimal, kind domain.TxKind) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.queries.WithTx(tx)

	newBalance, err := qtx.UpdateVenueBalance(ctx, venueID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}

	if err := qtx.InsertCreditTransaction(ctx, repository.InsertTransactionParams{
		VenueID: venueID,
		Amount:  amount,
		Kind:    kind,
	}); err != nil {
		return decimal.Zero, fmt.Errorf("create transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("commit: %w", err)
	}

	return newBalance, nil
}

// CreditPurchase applies an external payment confirmation, keyed by its
// external reference. A re-delivered confirmation inserts nothing and leaves
// the balance alone; the current balance is returned either way.
func (s *BillingService) CreditPurchase(ctx context.Context, venueID int64, amount decimal.Decimal, externalRef string) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if externalRef == "" {
		return decimal.Zero, &domain.ValidationError{Field: "external_ref", Reason: "required for purchase"}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.queries.WithTx(tx)

	// Lock the venue first so the dedup check and the balance update cannot
	// interleave with a concurrent replay of the same confirmation.
	venue, err := qtx.GetVenueForUpdate(ctx, venueID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lock venue: %w", err)
	}

	inserted, err := qtx.InsertPurchaseTransaction(ctx, venueID, amount, externalRef)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create transaction: %w", err)
	}
	if !inserted {
		return venue.Balance, domain.ErrDuplicatePayment
	}

	newBalance, err := qtx.UpdateVenueBalance(ctx, venueID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("commit: %w", err)
	}

	return newBalance, nil
}

// History returns the most recent ledger rows for a venue.
func (s *BillingService) History(ctx context.Context, venueID int64, limit int) ([]domain.CreditTransaction, error) {
	return s.queries.ListCreditTransactions(ctx, venueID, limit)
}
