package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
	"github.com/martijnmoret-ds/OrderOctopus/internal/repository"
)

// MenuService is the catalog. Pricing is authoritative here: resolved line
// items carry the only prices the rest of the system ever uses.
type MenuService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
}

func NewMenuService(db *pgxpool.Pool, queries *repository.Queries) *MenuService {
	return &MenuService{db: db, queries: queries}
}

// Snapshot returns the point-in-time set of orderable items.
func (s *MenuService) Snapshot(ctx context.Context, venueID int64) ([]domain.MenuItem, error) {
	return s.queries.ListAvailableMenuItems(ctx, venueID)
}

// Resolve matches an item reference (case-insensitive, venue-scoped) and
// prices the line. Unknown references and open option groups come back as
// their conversational error types; an 86'd item is ErrItemUnavailable.
func (s *MenuService) Resolve(ctx context.Context, venueID int64, itemRef string, selections map[string]string, quantity int, mods []string) (domain.OrderLineItem, error) {
	item, err := s.queries.GetMenuItemByName(ctx, venueID, itemRef)
	if err != nil {
		return domain.OrderLineItem{}, err
	}
	if !item.Available {
		return domain.OrderLineItem{}, domain.ErrItemUnavailable
	}
	return domain.ResolveLineItem(item, selections, quantity, mods)
}

// SetAvailability toggles items by name and reports how many were affected.
func (s *MenuService) SetAvailability(ctx context.Context, venueID int64, names []string, available bool) (int64, error) {
	return s.queries.SetMenuAvailability(ctx, venueID, names, available)
}

// Item fetches a single catalog item by name, hidden items excluded.
func (s *MenuService) Item(ctx context.Context, venueID int64, name string) (domain.MenuItem, error) {
	return s.queries.GetMenuItemByName(ctx, venueID, name)
}

// Hide soft-removes an item from the catalog. Historical orders keep their
// captured copies; the row itself stays for reference integrity.
func (s *MenuService) Hide(ctx context.Context, venueID int64, name string) (bool, error) {
	return s.queries.HideMenuItem(ctx, venueID, name)
}
