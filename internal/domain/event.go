package domain

import "time"

type ActionKind string

const (
	ActionShowMenu ActionKind = "menu"
	ActionAddMore  ActionKind = "add"
	ActionRemove   ActionKind = "remove"
	ActionDone     ActionKind = "done"
	ActionConfirm  ActionKind = "confirm"
	ActionModify   ActionKind = "modify"
	ActionCancel   ActionKind = "cancel"
)

// StructuredAction is a catalog-navigation or order-control action chosen
// through an affordance rather than typed as free text.
type StructuredAction struct {
	Kind    ActionKind
	ItemRef string
}

// InboundEvent is the transport-normalized input to the orchestrator. The
// idempotency key is assigned by the transport adapter and is the sole
// deduplication signal: replays of a seen key return the cached response.
type InboundEvent struct {
	VenueID        int64
	CustomerID     string
	TableRef       string
	IdempotencyKey string
	Text           string
	Action         *StructuredAction
	Timestamp      time.Time
}

// Affordance is a platform-agnostic button: label plus the action token the
// transport feeds back as a StructuredAction.
type Affordance struct {
	Label  string
	Action string
}

// Response is the fixed-shape outbound value. Transport adapters render it;
// the orchestrator never shapes per-platform payloads.
type Response struct {
	Text        string
	Affordances []Affordance
}
