package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type SessionState string

const (
	StateGreeting   SessionState = "greeting"
	StateBrowsing   SessionState = "browsing"
	StateBuilding   SessionState = "building_order"
	StateConfirming SessionState = "confirming"
	StateFinalized  SessionState = "finalized"
)

// Session is the live conversational state for one customer at one venue.
// It lives only in process memory; a draft lost to expiry or restart is
// discarded, never persisted.
type Session struct {
	VenueID        int64
	CustomerID     string
	TableRef       string
	Language       string
	State          SessionState
	Draft          []OrderLineItem
	Context        map[string]string
	PendingOrderID *uuid.UUID
	LastSeen       time.Time
}

// SetContext stores a scratch value, dropping the write once the bounded
// key budget is exhausted.
func (s *Session) SetContext(key, value string, maxKeys int) {
	if s.Context == nil {
		s.Context = make(map[string]string)
	}
	if _, ok := s.Context[key]; !ok && len(s.Context) >= maxKeys {
		return
	}
	s.Context[key] = value
}

// ClearContext removes scratch keys by name.
func (s *Session) ClearContext(keys ...string) {
	for _, k := range keys {
		delete(s.Context, k)
	}
}

// RemoveDraftItem removes the first draft line matching name (case folded by
// the caller) or, with an empty name, the last line. Reports success.
func (s *Session) RemoveDraftItem(name string) bool {
	if len(s.Draft) == 0 {
		return false
	}
	if name == "" {
		s.Draft = s.Draft[:len(s.Draft)-1]
		return true
	}
	for i, it := range s.Draft {
		if strings.EqualFold(it.Name, name) {
			s.Draft = append(s.Draft[:i], s.Draft[i+1:]...)
			return true
		}
	}
	return false
}
