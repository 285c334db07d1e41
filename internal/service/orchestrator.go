package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/martijnmoret-ds/OrderOctopus/internal/config"
	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

// VenueDirectory resolves venues and flags balance shortfalls.
type VenueDirectory interface {
	Get(ctx context.Context, id int64) (*domain.Venue, error)
	FlagLowBalance(ctx context.Context, id int64) error
}

// Catalog is the menu boundary the orchestrator trusts for pricing and
// availability.
type Catalog interface {
	Snapshot(ctx context.Context, venueID int64) ([]domain.MenuItem, error)
	Resolve(ctx context.Context, venueID int64, itemRef string, selections map[string]string, quantity int, mods []string) (domain.OrderLineItem, error)
	Item(ctx context.Context, venueID int64, name string) (domain.MenuItem, error)
}

// OrderLedger is the durable order boundary.
type OrderLedger interface {
	Create(ctx context.Context, venue *domain.Venue, customerID, tableRef string, items []domain.OrderLineItem) (*domain.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

// Approver hands a freshly created order to the staff approval protocol.
type Approver interface {
	SubmitForApproval(ctx context.Context, venue *domain.Venue, order *domain.Order) error
}

// Orchestrator drives the per-customer conversation state machine. It is
// transport-free: normalized events in, fixed-shape responses out.
type Orchestrator struct {
	venues    VenueDirectory
	catalog   Catalog
	orders    OrderLedger
	extractor IntentExtractor
	approvals Approver
	sessions  *SessionStore
	cfg       *config.Config
	now       func() time.Time
}

func NewOrchestrator(venues VenueDirectory, catalog Catalog, orders OrderLedger, extractor IntentExtractor, approvals Approver, sessions *SessionStore, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		venues:    venues,
		catalog:   catalog,
		orders:    orders,
		extractor: extractor,
		approvals: approvals,
		sessions:  sessions,
		cfg:       cfg,
		now:       time.Now,
	}
}

var (
	respNoVenue = domain.Response{Text: "This chat is not linked to a restaurant. Scan the table code to start an order."}
	respClosed  = domain.Response{Text: "The restaurant is not taking orders right now. Please try again later."}
	respRetry   = domain.Response{Text: "Something went wrong on our side. Please try again shortly."}
)

// HandleEvent processes one normalized inbound event. Events for the same
// customer are serialized by the session entry lock; replays of a seen
// idempotency key return the cached response without re-running side
// effects.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev domain.InboundEvent) domain.Response {
	if ev.VenueID == 0 {
		return respNoVenue
	}
	venue, err := o.venues.Get(ctx, ev.VenueID)
	if err != nil {
		if errors.Is(err, domain.ErrVenueNotFound) {
			return respNoVenue
		}
		slog.Error("load venue", "error", err, "venue_id", ev.VenueID)
		return respRetry
	}

	entry, release := o.sessions.Acquire(ev.CustomerID)
	defer release()

	if resp, ok := entry.Replay(ev.IdempotencyKey); ok {
		return resp
	}

	if !venue.AcceptsOrders(o.now()) {
		// Fixed response, session untouched.
		return respClosed
	}

	sess := entry.Session

	// A new venue or table context overwrites the session, never merges.
	if sess.VenueID != 0 && (sess.VenueID != venue.ID || (ev.TableRef != "" && sess.TableRef != ev.TableRef)) {
		entry.reset(ev.CustomerID)
		sess = entry.Session
	}
	sess.VenueID = venue.ID
	if ev.TableRef != "" {
		sess.TableRef = ev.TableRef
	}

	resp := o.dispatch(ctx, venue, sess, ev)

	entry.StoreReplay(ev.IdempotencyKey, resp)
	entry.Touch(o.now())
	return resp
}

func (o *Orchestrator) dispatch(ctx context.Context, venue *domain.Venue, sess *domain.Session, ev domain.InboundEvent) domain.Response {
	switch sess.State {
	case domain.StateGreeting:
		return o.handleGreeting(venue, sess, ev)
	case domain.StateBrowsing:
		return o.handleBrowsing(ctx, venue, sess, ev)
	case domain.StateBuilding:
		return o.handleBuilding(ctx, venue, sess, ev)
	case domain.StateConfirming:
		return o.handleConfirming(ctx, venue, sess, ev)
	case domain.StateFinalized:
		return o.handleFinalized(ctx, venue, sess, ev)
	default:
		slog.Error("unknown session state", "state", sess.State, "customer_id", sess.CustomerID)
		sess.State = domain.StateGreeting
		return o.handleGreeting(venue, sess, ev)
	}
}

func (o *Orchestrator) handleGreeting(venue *domain.Venue, sess *domain.Session, ev domain.InboundEvent) domain.Response {
	if sess.Language == "" {
		sess.Language = domain.DetectLanguage(ev.Text, venue.Language)
	}
	sess.State = domain.StateBrowsing
	return domain.Response{
		Text: fmt.Sprintf("Welcome to %s! Tell me what you'd like to order, or browse the menu.", venue.Name),
		Affordances: []domain.Affordance{
			{Label: "View menu", Action: "act_menu"},
		},
	}
}

func (o *Orchestrator) handleBrowsing(ctx context.Context, venue *domain.Venue, sess *domain.Session, ev domain.InboundEvent) domain.Response {
	if ev.Action != nil {
		switch ev.Action.Kind {
		case domain.ActionShowMenu:
			return o.menuResponse(ctx, venue)
		default:
			return domain.Response{
				Text:        "Tell me what you'd like to order, or browse the menu.",
				Affordances: []domain.Affordance{{Label: "View menu", Action: "act_menu"}},
			}
		}
	}
	return o.interpretText(ctx, venue, sess, ev.Text)
}

func (o *Orchestrator) handleBuilding(ctx context.Context, venue *domain.Venue, sess *domain.Session, ev domain.InboundEvent) domain.Response {
	if ev.Action == nil {
		return o.interpretText(ctx, venue, sess, ev.Text)
	}

	switch ev.Action.Kind {
	case domain.ActionShowMenu, domain.ActionAddMore:
		return o.menuResponse(ctx, venue)
	case domain.ActionRemove:
		if !sess.RemoveDraftItem(ev.Action.ItemRef) {
			return domain.Response{Text: "Nothing matching that in your order.", Affordances: buildingAffordances()}
		}
		if len(sess.Draft) == 0 {
			sess.State = domain.StateBrowsing
			return domain.Response{
				Text:        "Your order is empty now. What would you like?",
				Affordances: []domain.Affordance{{Label: "View menu", Action: "act_menu"}},
			}
		}
		return domain.Response{Text: "Removed.\n\n" + renderDraft(sess.Draft), Affordances: buildingAffordances()}
	case domain.ActionDone:
		if len(sess.Draft) == 0 {
			sess.State = domain.StateBrowsing
			return domain.Response{
				Text:        "Your order is empty. Add something first.",
				Affordances: []domain.Affordance{{Label: "View menu", Action: "act_menu"}},
			}
		}
		sess.State = domain.StateConfirming
		return confirmResponse(sess.Draft)
	default:
		return domain.Response{Text: renderDraft(sess.Draft), Affordances: buildingAffordances()}
	}
}

func (o *Orchestrator) handleConfirming(ctx context.Context, venue *domain.Venue, sess *domain.Session, ev domain.InboundEvent) domain.Response {
	kind := domain.ActionKind("")
	if ev.Action != nil {
		kind = ev.Action.Kind
	} else {
		switch strings.ToLower(strings.TrimSpace(ev.Text)) {
		case "confirm", "yes":
			kind = domain.ActionConfirm
		case "cancel", "no":
			kind = domain.ActionCancel
		case "modify", "change":
			kind = domain.ActionModify
		}
	}

	switch kind {
	case domain.ActionConfirm:
		return o.finalizeOrder(ctx, venue, sess)
	case domain.ActionModify:
		sess.State = domain.StateBuilding
		return domain.Response{Text: renderDraft(sess.Draft), Affordances: buildingAffordances()}
	case domain.ActionCancel:
		sess.Draft = nil
		sess.State = domain.StateBrowsing
		return domain.Response{
			Text:        "Order cancelled. What would you like instead?",
			Affordances: []domain.Affordance{{Label: "View menu", Action: "act_menu"}},
		}
	default:
		return confirmResponse(sess.Draft)
	}
}

func (o *Orchestrator) handleFinalized(ctx context.Context, venue *domain.Venue, sess *domain.Session, ev domain.InboundEvent) domain.Response {
	if sess.PendingOrderID == nil {
		sess.State = domain.StateGreeting
		return o.handleGreeting(venue, sess, ev)
	}

	order, err := o.orders.Get(ctx, *sess.PendingOrderID)
	if err != nil {
		slog.Error("load pending order", "error", err, "order_id", *sess.PendingOrderID)
		return respRetry
	}

	switch order.Status {
	case domain.OrderPending:
		return domain.Response{Text: fmt.Sprintf("Order #%d is waiting for staff approval.", order.SeqNo)}
	case domain.OrderApproved:
		sess.PendingOrderID = nil
		return domain.Response{Text: fmt.Sprintf("Order #%d was approved and is being prepared. Send a new message to order again.", order.SeqNo)}
	default:
		sess.PendingOrderID = nil
		text := fmt.Sprintf("Order #%d was declined.", order.SeqNo)
		if order.RejectReason != "" {
			text += " Reason: " + order.RejectReason
		}
		return domain.Response{Text: text}
	}
}

// finalizeOrder commits the draft: resolve happened earlier, so the steps
// here are ledger create, then session clear. A crash between them is
// covered by the idempotency replay, never by re-running creation.
func (o *Orchestrator) finalizeOrder(ctx context.Context, venue *domain.Venue, sess *domain.Session) domain.Response {
	if len(sess.Draft) == 0 {
		sess.State = domain.StateBrowsing
		return domain.Response{
			Text:        "Your order is empty. Add something first.",
			Affordances: []domain.Affordance{{Label: "View menu", Action: "act_menu"}},
		}
	}

	if venue.Balance.LessThan(decimal.NewFromFloat(config.OrderCharge)) {
		if err := o.venues.FlagLowBalance(ctx, venue.ID); err != nil {
			slog.Error("flag low balance", "error", err, "venue_id", venue.ID)
		}
		return respClosed
	}

	order, err := o.orders.Create(ctx, venue, sess.CustomerID, sess.TableRef, sess.Draft)
	if err != nil {
		slog.Error("create order", "error", err, "venue_id", venue.ID, "customer_id", sess.CustomerID)
		return respRetry
	}

	sess.Draft = nil
	sess.ClearContext("pending_item", "pending_qty", "pending_mods")
	sess.State = domain.StateFinalized
	sess.PendingOrderID = &order.ID

	if err := o.approvals.SubmitForApproval(ctx, venue, order); err != nil {
		slog.Error("submit for approval", "error", err, "order_id", order.ID)
	}

	return domain.Response{
		Text: fmt.Sprintf("Order #%d placed, total %s. Waiting for staff approval.",
			order.SeqNo, order.Total.StringFixed(2)),
	}
}

// interpretText runs the free-text path: the pending-option fast path first,
// then the extractor against the live snapshot. The extractor is best
// effort; its output is re-resolved against the catalog before anything is
// trusted.
func (o *Orchestrator) interpretText(ctx context.Context, venue *domain.Venue, sess *domain.Session, text string) domain.Response {
	if resp, handled := o.answerPendingOption(ctx, venue, sess, text); handled {
		return resp
	}

	snapshot, err := o.catalog.Snapshot(ctx, venue.ID)
	if err != nil {
		slog.Error("menu snapshot", "error", err, "venue_id", venue.ID)
		return respRetry
	}

	extractCtx, cancel := context.WithTimeout(ctx, o.cfg.ExtractorTimeout)
	defer cancel()

	intent, err := o.extractor.Extract(extractCtx, text, snapshot, sess.Context)
	if err != nil {
		if errors.Is(err, domain.ErrNoMatch) {
			return domain.Response{
				Text:        "I couldn't find that on the menu. Have a look and pick something:",
				Affordances: []domain.Affordance{{Label: "View menu", Action: "act_menu"}},
			}
		}
		slog.Warn("intent extraction failed", "error", err, "venue_id", venue.ID)
		return domain.Response{
			Text:        "I'm having trouble understanding right now. Please pick from the menu:",
			Affordances: []domain.Affordance{{Label: "View menu", Action: "act_menu"}},
		}
	}

	return o.accumulate(ctx, venue, sess, intent)
}

// answerPendingOption resolves a short reply like "chicken" against the
// option group the session is waiting on, skipping the extractor round trip.
func (o *Orchestrator) answerPendingOption(ctx context.Context, venue *domain.Venue, sess *domain.Session, text string) (domain.Response, bool) {
	pending := sess.Context["pending_item"]
	if pending == "" {
		return domain.Response{}, false
	}

	item, err := o.catalog.Item(ctx, venue.ID, pending)
	if err != nil {
		sess.ClearContext("pending_item", "pending_qty", "pending_mods")
		return domain.Response{}, false
	}

	selections := pendingSelections(sess)
	answer := strings.TrimSpace(text)
	matched := false
	for _, group := range item.OptionGroups {
		if _, ok := selections[group.Name]; ok {
			continue
		}
		if choice, ok := group.Choice(answer); ok {
			selections[group.Name] = choice.Name
			sess.SetContext("pending_sel:"+group.Name, choice.Name, config.MaxContextKeys)
			matched = true
			break
		}
	}
	if !matched {
		return domain.Response{}, false
	}

	qty := pendingQuantity(sess)
	mods := pendingMods(sess)
	line, err := o.catalog.Resolve(ctx, venue.ID, pending, selections, qty, mods)
	if err != nil {
		var missing *domain.MissingOptionsError
		if errors.As(err, &missing) {
			return o.promptMissing(ctx, venue, item.Name, missing), true
		}
		sess.ClearContext("pending_item", "pending_qty", "pending_mods")
		return domain.Response{}, false
	}

	o.clearPending(sess)
	sess.Draft = append(sess.Draft, line)
	sess.State = domain.StateBuilding
	return domain.Response{
		Text:        "Added.\n\n" + renderDraft(sess.Draft),
		Affordances: buildingAffordances(),
	}, true
}

// accumulate validates extractor candidates against the catalog and grows
// the draft. Unresolved option groups keep the session in place and
// re-prompt for the first open choice.
func (o *Orchestrator) accumulate(ctx context.Context, venue *domain.Venue, sess *domain.Session, intent *Intent) domain.Response {
	added := 0
	for _, cand := range intent.Candidates {
		if len(sess.Draft) >= config.MaxDraftItems {
			break
		}
		line, err := o.catalog.Resolve(ctx, venue.ID, cand.ItemRef, cand.Selections, cand.Quantity, cand.Modifications)
		if err != nil {
			var missing *domain.MissingOptionsError
			if errors.As(err, &missing) {
				o.rememberPending(sess, cand)
				return o.promptMissing(ctx, venue, cand.ItemRef, missing)
			}
			var unknown *domain.UnknownItemError
			if errors.As(err, &unknown) || errors.Is(err, domain.ErrItemUnavailable) {
				return domain.Response{
					Text:        fmt.Sprintf("%q isn't available right now. Have a look at the menu:", cand.ItemRef),
					Affordances: []domain.Affordance{{Label: "View menu", Action: "act_menu"}},
				}
			}
			slog.Error("resolve candidate", "error", err, "item", cand.ItemRef)
			return respRetry
		}
		sess.Draft = append(sess.Draft, line)
		added++
	}

	if added == 0 {
		return domain.Response{
			Text:        "I couldn't find that on the menu. Have a look and pick something:",
			Affordances: []domain.Affordance{{Label: "View menu", Action: "act_menu"}},
		}
	}

	sess.State = domain.StateBuilding
	return domain.Response{
		Text:        "Added.\n\n" + renderDraft(sess.Draft),
		Affordances: buildingAffordances(),
	}
}

func (o *Orchestrator) promptMissing(ctx context.Context, venue *domain.Venue, itemRef string, missing *domain.MissingOptionsError) domain.Response {
	group := missing.Groups[0]
	item, err := o.catalog.Item(ctx, venue.ID, itemRef)
	if err == nil {
		for _, g := range item.OptionGroups {
			if strings.EqualFold(g.Name, group) && len(g.Choices) > 0 {
				names := make([]string, len(g.Choices))
				affordances := make([]domain.Affordance, len(g.Choices))
				for i, c := range g.Choices {
					names[i] = c.Name
					affordances[i] = domain.Affordance{Label: c.Name, Action: "opt_" + c.Name}
				}
				return domain.Response{
					Text:        fmt.Sprintf("%s: %s?", item.Name, orList(names)),
					Affordances: affordances,
				}
			}
		}
	}
	return domain.Response{Text: fmt.Sprintf("Which %s would you like for the %s?", group, itemRef)}
}

func (o *Orchestrator) rememberPending(sess *domain.Session, cand IntentLine) {
	o.clearPending(sess)
	sess.SetContext("pending_item", cand.ItemRef, config.MaxContextKeys)
	sess.SetContext("pending_qty", fmt.Sprintf("%d", cand.Quantity), config.MaxContextKeys)
	sess.SetContext("pending_mods", strings.Join(cand.Modifications, "\x1f"), config.MaxContextKeys)
	for group, choice := range cand.Selections {
		sess.SetContext("pending_sel:"+group, choice, config.MaxContextKeys)
	}
}

func (o *Orchestrator) clearPending(sess *domain.Session) {
	for key := range sess.Context {
		if key == "pending_item" || key == "pending_qty" || key == "pending_mods" || strings.HasPrefix(key, "pending_sel:") {
			delete(sess.Context, key)
		}
	}
}

func pendingSelections(sess *domain.Session) map[string]string {
	selections := make(map[string]string)
	for key, val := range sess.Context {
		if group, ok := strings.CutPrefix(key, "pending_sel:"); ok {
			selections[group] = val
		}
	}
	return selections
}

func pendingQuantity(sess *domain.Session) int {
	qty := 1
	fmt.Sscanf(sess.Context["pending_qty"], "%d", &qty)
	if qty <= 0 {
		qty = 1
	}
	return qty
}

func pendingMods(sess *domain.Session) []string {
	raw := sess.Context["pending_mods"]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\x1f")
}

func (o *Orchestrator) menuResponse(ctx context.Context, venue *domain.Venue) domain.Response {
	snapshot, err := o.catalog.Snapshot(ctx, venue.ID)
	if err != nil {
		slog.Error("menu snapshot", "error", err, "venue_id", venue.ID)
		return respRetry
	}
	if len(snapshot) == 0 {
		return domain.Response{Text: "The menu is empty right now. Please check back later."}
	}
	return domain.Response{Text: renderMenu(snapshot)}
}

func buildingAffordances() []domain.Affordance {
	return []domain.Affordance{
		{Label: "Add more", Action: "act_add"},
		{Label: "Remove last", Action: "act_remove"},
		{Label: "Done", Action: "act_done"},
	}
}

func confirmResponse(draft []domain.OrderLineItem) domain.Response {
	return domain.Response{
		Text: fmt.Sprintf("Please confirm your order:\n\n%s\nTotal: %s",
			renderDraft(draft), domain.OrderTotal(draft).StringFixed(2)),
		Affordances: []domain.Affordance{
			{Label: "Confirm", Action: "act_confirm"},
			{Label: "Modify", Action: "act_modify"},
			{Label: "Cancel", Action: "act_cancel"},
		},
	}
}

func renderDraft(items []domain.OrderLineItem) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "%dx %s", it.Quantity, it.Name)
		if len(it.Selections) > 0 {
			var parts []string
			for _, g := range sortedKeys(it.Selections) {
				parts = append(parts, it.Selections[g])
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
		}
		for _, m := range it.Modifications {
			fmt.Fprintf(&b, ", %s", m)
		}
		fmt.Fprintf(&b, " · %s\n", it.LineTotal.StringFixed(2))
	}
	return b.String()
}

func renderMenu(items []domain.MenuItem) string {
	var b strings.Builder
	category := ""
	for _, item := range items {
		if item.Category != category {
			category = item.Category
			fmt.Fprintf(&b, "%s\n", strings.ToUpper(category))
		}
		fmt.Fprintf(&b, "%s · %s\n", item.Name, item.BasePrice.StringFixed(2))
	}
	return b.String()
}

func orList(names []string) string {
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
