package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

// memVenues implements VenueDirectory and VenueAlerter.
type memVenues struct {
	mu     sync.Mutex
	venues map[int64]*domain.Venue
}

func newMemVenues(venues ...*domain.Venue) *memVenues {
	m := &memVenues{venues: make(map[int64]*domain.Venue)}
	for _, v := range venues {
		m.venues[v.ID] = v
	}
	return m
}

func (m *memVenues) Get(_ context.Context, id int64) (*domain.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.venues[id]
	if !ok {
		return nil, domain.ErrVenueNotFound
	}
	copied := *v
	return &copied, nil
}

func (m *memVenues) FlagLowBalance(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.venues[id]; ok {
		v.LowBalanceAlert = true
		v.Status = domain.VenuePaused
	}
	return nil
}

func (m *memVenues) flagged(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.venues[id] != nil && m.venues[id].LowBalanceAlert
}

// memCatalog implements Catalog over a fixed item list, resolving through
// the same pure pricing logic production uses.
type memCatalog struct {
	items []domain.MenuItem
}

func (m *memCatalog) Snapshot(_ context.Context, venueID int64) ([]domain.MenuItem, error) {
	var out []domain.MenuItem
	for _, it := range m.items {
		if it.VenueID == venueID && it.Available && !it.Hidden {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memCatalog) Item(_ context.Context, venueID int64, name string) (domain.MenuItem, error) {
	for _, it := range m.items {
		if it.VenueID == venueID && strings.EqualFold(it.Name, name) && !it.Hidden {
			return it, nil
		}
	}
	return domain.MenuItem{}, &domain.UnknownItemError{Ref: name}
}

func (m *memCatalog) Resolve(ctx context.Context, venueID int64, itemRef string, selections map[string]string, quantity int, mods []string) (domain.OrderLineItem, error) {
	item, err := m.Item(ctx, venueID, itemRef)
	if err != nil {
		return domain.OrderLineItem{}, err
	}
	if !item.Available {
		return domain.OrderLineItem{}, domain.ErrItemUnavailable
	}
	return domain.ResolveLineItem(item, selections, quantity, mods)
}

// memOrders implements OrderLedger and OrderTransitioner with the same
// atomicity contract as the SQL ledger: unique monotonic daily sequence
// numbers and a compare-and-swap status transition.
type memOrders struct {
	mu          sync.Mutex
	orders      map[uuid.UUID]*domain.Order
	seqs        map[string]int
	createCalls int
}

func newMemOrders() *memOrders {
	return &memOrders{
		orders: make(map[uuid.UUID]*domain.Order),
		seqs:   make(map[string]int),
	}
}

func (m *memOrders) Create(_ context.Context, venue *domain.Venue, customerID, tableRef string, items []domain.OrderLineItem) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	date := venue.LocalDate(time.Now())
	key := fmt.Sprintf("%d|%s", venue.ID, date.Format("2006-01-02"))
	m.seqs[key]++

	order := &domain.Order{
		ID:         uuid.New(),
		VenueID:    venue.ID,
		OrderDate:  date,
		SeqNo:      m.seqs[key],
		TableRef:   tableRef,
		CustomerID: customerID,
		Items:      append([]domain.OrderLineItem(nil), items...),
		Total:      domain.OrderTotal(items),
		Status:     domain.OrderPending,
		CreatedAt:  time.Now(),
	}
	m.orders[order.ID] = order
	copied := *order
	return &copied, nil
}

func (m *memOrders) Get(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *memOrders) Transition(_ context.Context, orderID uuid.UUID, target domain.OrderStatus, actor, reason string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if order.Status != domain.OrderPending || !target.Terminal() {
		copied := *order
		return &copied, &domain.InvalidTransitionError{From: order.Status, To: target}
	}
	order.Status = target
	order.DecidedBy = actor
	order.RejectReason = reason
	now := time.Now()
	order.DecidedAt = &now
	copied := *order
	return &copied, nil
}

// memBilling implements CreditDebiter with the conditional-debit contract.
type memBilling struct {
	mu      sync.Mutex
	balance decimal.Decimal
	debits  []decimal.Decimal
}

func (m *memBilling) Debit(_ context.Context, _ int64, amount decimal.Decimal, _ domain.TxKind, _ *uuid.UUID) (domain.DebitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balance.LessThan(amount) {
		return domain.DebitResult{OK: false, Balance: m.balance}, nil
	}
	m.balance = m.balance.Sub(amount)
	m.debits = append(m.debits, amount)
	return domain.DebitResult{OK: true, Balance: m.balance}, nil
}

func (m *memBilling) debitTotal() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, d := range m.debits {
		total = total.Add(d)
	}
	return total
}

// scriptedExtractor returns queued results in order, then repeats the last.
type scriptedExtractor struct {
	mu      sync.Mutex
	results []func() (*Intent, error)
	calls   int
}

func (s *scriptedExtractor) Extract(context.Context, string, []domain.MenuItem, map[string]string) (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) == 0 {
		return nil, domain.ErrNoMatch
	}
	next := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return next()
}

// recordingApprover counts submissions.
type recordingApprover struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingApprover) SubmitForApproval(context.Context, *domain.Venue, *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

// recordingNotifier captures every outbound notification.
type recordingNotifier struct {
	mu        sync.Mutex
	approvals int
	kitchen   int
	customer  []domain.Response
	owner     []string
}

func (r *recordingNotifier) NotifyApproval(context.Context, *domain.Venue, *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approvals++
	return nil
}

func (r *recordingNotifier) NotifyKitchen(context.Context, *domain.Venue, *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kitchen++
	return nil
}

func (r *recordingNotifier) NotifyCustomer(_ context.Context, _ string, resp domain.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customer = append(r.customer, resp)
	return nil
}

func (r *recordingNotifier) NotifyOwner(_ context.Context, _ *domain.Venue, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owner = append(r.owner, text)
	return nil
}
