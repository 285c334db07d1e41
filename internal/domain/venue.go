package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type VenueStatus string

const (
	VenueActive    VenueStatus = "active"
	VenuePaused    VenueStatus = "paused"
	VenueSuspended VenueStatus = "suspended"
)

type Venue struct {
	ID             int64
	Name           string
	Status         VenueStatus
	Balance        decimal.Decimal
	FreeParsesLeft int
	ApprovalChatID int64
	KitchenChatID  *int64
	Language       string
	Hours          BusinessHours
	LowBalanceAlert bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BusinessHours is a daily open/close window in the venue's local time.
// Zero open and close means always open. A close before open spans midnight.
type BusinessHours struct {
	Open     string // "15:04"
	Close    string // "15:04"
	Timezone string // IANA name, empty means UTC
}

// Location resolves the venue timezone, falling back to UTC on a bad name.
func (h BusinessHours) Location() *time.Location {
	if h.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Contains reports whether t falls inside the business-hours window.
func (h BusinessHours) Contains(t time.Time) bool {
	if h.Open == "" || h.Close == "" {
		return true
	}
	open, err := time.Parse("15:04", h.Open)
	if err != nil {
		return true
	}
	close, err := time.Parse("15:04", h.Close)
	if err != nil {
		return true
	}

	local := t.In(h.Location())
	minute := local.Hour()*60 + local.Minute()
	openMin := open.Hour()*60 + open.Minute()
	closeMin := close.Hour()*60 + close.Minute()

	if openMin <= closeMin {
		return minute >= openMin && minute < closeMin
	}
	// Overnight window, e.g. 18:00-02:00.
	return minute >= openMin || minute < closeMin
}

// AcceptsOrders reports whether the venue may take a new inbound event now.
func (v *Venue) AcceptsOrders(now time.Time) bool {
	return v.Status == VenueActive && v.Hours.Contains(now)
}

// LocalDate returns the venue-local calendar day used for daily order
// sequence numbering.
func (v *Venue) LocalDate(now time.Time) time.Time {
	local := now.In(v.Hours.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
