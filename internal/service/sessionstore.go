package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/martijnmoret-ds/OrderOctopus/internal/config"
	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

// SessionStore holds the live conversation state per customer, entirely in
// process memory. Each entry carries its own lock: events for one customer
// are serialized, while unrelated customers proceed in parallel. Nothing in
// here ever shares a transaction with the durable ledgers.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]*SessionEntry
	ttl     time.Duration
	now     func() time.Time
}

type SessionEntry struct {
	mu          sync.Mutex
	Session     *domain.Session
	replays     map[string]domain.Response
	replayOrder []string
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		entries: make(map[string]*SessionEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Acquire returns the customer's session entry with its lock held. The
// returned release function must be called when event handling finishes.
// A missing or expired entry is (re)initialized at greeting.
func (s *SessionStore) Acquire(customerID string) (*SessionEntry, func()) {
	s.mu.Lock()
	entry, ok := s.entries[customerID]
	if !ok {
		entry = &SessionEntry{
			Session: &domain.Session{
				CustomerID: customerID,
				State:      domain.StateGreeting,
			},
			replays: make(map[string]domain.Response),
		}
		s.entries[customerID] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	if s.ttl > 0 && !entry.Session.LastSeen.IsZero() && s.now().Sub(entry.Session.LastSeen) > s.ttl {
		// Expired while idle: the draft is discarded, never persisted.
		entry.reset(customerID)
	}
	return entry, entry.mu.Unlock
}

// Sweep drops entries idle past the TTL and returns how many were removed.
// Run periodically so abandoned drafts reclaim their memory.
func (s *SessionStore) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if !entry.mu.TryLock() {
			continue // in use right now, next sweep gets it
		}
		idle := !entry.Session.LastSeen.IsZero() && entry.Session.LastSeen.Before(cutoff)
		if idle && len(entry.Session.Draft) > 0 {
			slog.Info("discarding expired draft order",
				"customer_id", key, "items", len(entry.Session.Draft))
		}
		entry.mu.Unlock()
		if idle {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (e *SessionEntry) reset(customerID string) {
	e.Session = &domain.Session{
		CustomerID: customerID,
		State:      domain.StateGreeting,
	}
	e.replays = make(map[string]domain.Response)
	e.replayOrder = nil
}

// Replay returns the cached response for an already-processed idempotency
// key. Must be called with the entry lock held.
func (e *SessionEntry) Replay(key string) (domain.Response, bool) {
	resp, ok := e.replays[key]
	return resp, ok
}

// StoreReplay records the response computed for an idempotency key, evicting
// the oldest entry once the bounded cache is full. Must be called with the
// entry lock held.
func (e *SessionEntry) StoreReplay(key string, resp domain.Response) {
	if _, ok := e.replays[key]; ok {
		e.replays[key] = resp
		return
	}
	if len(e.replayOrder) >= config.ReplayCacheSize {
		oldest := e.replayOrder[0]
		e.replayOrder = e.replayOrder[1:]
		delete(e.replays, oldest)
	}
	e.replays[key] = resp
	e.replayOrder = append(e.replayOrder, key)
}

// Touch marks activity for TTL accounting. Must be called with the entry
// lock held.
func (e *SessionEntry) Touch(now time.Time) {
	e.Session.LastSeen = now
}
