package handler

import "sync"

// binding ties a customer chat to the venue (and optional table) it entered
// through a table link. Bindings live in process memory alongside the
// conversation sessions; a restart just asks the customer to rescan.
type binding struct {
	venueID  int64
	tableRef string
}

type bindings struct {
	mu sync.RWMutex
	m  map[int64]binding
}

func newBindings() *bindings {
	return &bindings{m: make(map[int64]binding)}
}

func (b *bindings) set(chatID, venueID int64, tableRef string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[chatID] = binding{venueID: venueID, tableRef: tableRef}
}

func (b *bindings) get(chatID int64) (binding, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bind, ok := b.m[chatID]
	return bind, ok
}
