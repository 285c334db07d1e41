package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

const venueColumns = `id, name, status, balance, free_parses_left, approval_chat_id,
	kitchen_chat_id, language, open_time, close_time, timezone, low_balance_alert,
	created_at, updated_at`

func scanVenue(row pgx.Row) (*domain.Venue, error) {
	var v domain.Venue
	err := row.Scan(
		&v.ID, &v.Name, &v.Status, &v.Balance, &v.FreeParsesLeft, &v.ApprovalChatID,
		&v.KitchenChatID, &v.Language, &v.Hours.Open, &v.Hours.Close, &v.Hours.Timezone,
		&v.LowBalanceAlert, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVenueNotFound
		}
		return nil, fmt.Errorf("scan venue: %w", err)
	}
	return &v, nil
}

func (q *Queries) GetVenue(ctx context.Context, id int64) (*domain.Venue, error) {
	row := q.db.QueryRow(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = $1`, id)
	return scanVenue(row)
}

// GetVenueForUpdate locks the venue row for the rest of the transaction. It
// is the serialization point for balance changes and sequence allocation.
func (q *Queries) GetVenueForUpdate(ctx context.Context, id int64) (*domain.Venue, error) {
	row := q.db.QueryRow(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = $1 FOR UPDATE`, id)
	return scanVenue(row)
}

func (q *Queries) GetVenueByApprovalChat(ctx context.Context, chatID int64) (*domain.Venue, error) {
	row := q.db.QueryRow(ctx, `SELECT `+venueColumns+` FROM venues WHERE approval_chat_id = $1`, chatID)
	return scanVenue(row)
}

type CreateVenueParams struct {
	Name           string
	ApprovalChatID int64
	KitchenChatID  *int64
	Language       string
	Balance        decimal.Decimal
	FreeParses     int
}

func (q *Queries) CreateVenue(ctx context.Context, p CreateVenueParams) (*domain.Venue, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO venues (name, approval_chat_id, kitchen_chat_id, language, balance, free_parses_left)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+venueColumns,
		p.Name, p.ApprovalChatID, p.KitchenChatID, p.Language, p.Balance, p.FreeParses)
	return scanVenue(row)
}

func (q *Queries) SetVenueStatus(ctx context.Context, id int64, status domain.VenueStatus) error {
	_, err := q.db.Exec(ctx,
		`UPDATE venues SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set venue status: %w", err)
	}
	return nil
}

func (q *Queries) SetVenueLowBalanceAlert(ctx context.Context, id int64, alert bool) error {
	_, err := q.db.Exec(ctx,
		`UPDATE venues SET low_balance_alert = $2, updated_at = now() WHERE id = $1`, id, alert)
	if err != nil {
		return fmt.Errorf("set low balance alert: %w", err)
	}
	return nil
}

func (q *Queries) SetVenueHours(ctx context.Context, id int64, hours domain.BusinessHours) error {
	_, err := q.db.Exec(ctx, `
		UPDATE venues SET open_time = $2, close_time = $3, timezone = $4, updated_at = now()
		WHERE id = $1`,
		id, hours.Open, hours.Close, hours.Timezone)
	if err != nil {
		return fmt.Errorf("set venue hours: %w", err)
	}
	return nil
}

// UpdateVenueBalance applies a signed delta and returns the new balance. The
// caller must hold the venue row lock and pair the change with a credit
// transaction row in the same transaction.
func (q *Queries) UpdateVenueBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.db.QueryRow(ctx, `
		UPDATE venues SET balance = balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING balance`,
		id, delta).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("update venue balance: %w", err)
	}
	return balance, nil
}

// ConsumeFreeParse decrements the free-parse quota, reporting false once the
// quota is exhausted.
func (q *Queries) ConsumeFreeParse(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE venues SET free_parses_left = free_parses_left - 1, updated_at = now()
		WHERE id = $1 AND free_parses_left > 0`, id)
	if err != nil {
		return false, fmt.Errorf("consume free parse: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
