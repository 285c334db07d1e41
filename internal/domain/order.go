package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderApproved OrderStatus = "approved"
	OrderRejected OrderStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderApproved || s == OrderRejected
}

// Order is immutable once created; corrections require a new order.
type Order struct {
	ID           uuid.UUID
	VenueID      int64
	OrderDate    time.Time // venue-local calendar day
	SeqNo        int
	TableRef     string
	CustomerID   string
	Items        []OrderLineItem
	Total        decimal.Decimal
	Status       OrderStatus
	DecidedBy    string
	RejectReason string
	CreatedAt    time.Time
	DecidedAt    *time.Time
}

// OrderTotal sums line totals. The order row always stores exactly this.
func OrderTotal(items []OrderLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	return total
}
