package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TxKind string

const (
	TxPurchase           TxKind = "purchase"
	TxOrderCharge        TxKind = "order_charge"
	TxOrderChargePartial TxKind = "order_charge_partial"
	TxMenuImport         TxKind = "menu_import"
	TxBonus              TxKind = "bonus"
	TxRefund             TxKind = "refund"
)

// CreditTransaction is an immutable ledger row. The venue balance is only
// ever mutated together with one of these, in the same unit of work.
type CreditTransaction struct {
	ID          int64
	VenueID     int64
	Amount      decimal.Decimal
	Kind        TxKind
	OrderID     *uuid.UUID
	ExternalRef *string
	CreatedAt   time.Time
}

// DebitResult reports a conditional debit. OK false means the balance was
// short and nothing changed; it is a business branch, not an error.
type DebitResult struct {
	OK      bool
	Balance decimal.Decimal
}
