package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrVenueNotFound       = errors.New("venue not found")
	ErrVenueUnavailable    = errors.New("venue unavailable")
	ErrOrderNotFound       = errors.New("order not found")
	ErrItemUnavailable     = errors.New("menu item unavailable")
	ErrEmptyOrder          = errors.New("cannot finalize empty order")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNoMatch             = errors.New("no menu match for utterance")
	ErrDuplicatePayment    = errors.New("payment already applied")
)

// ValidationError marks input rejected at the boundary before it can reach
// the ledgers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UnknownItemError reports an item reference that matched nothing in the
// venue's catalog. Recoverable by conversation.
type UnknownItemError struct {
	Ref string
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("unknown menu item %q", e.Ref)
}

// MissingOptionsError reports required option groups still lacking a choice.
// Recoverable by conversation: the session re-prompts for the listed groups.
type MissingOptionsError struct {
	Item   string
	Groups []string
}

func (e *MissingOptionsError) Error() string {
	return fmt.Sprintf("item %q missing options: %s", e.Item, strings.Join(e.Groups, ", "))
}

// InvalidTransitionError reports an order status transition refused by the
// compare-and-swap. Expected under approval races and handled as control flow.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %s -> %s", e.From, e.To)
}
