package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

const menuItemColumns = `id, venue_id, category, name, base_price, option_groups,
	allowed_mods, dietary_tags, available, hidden, created_at, updated_at`

func scanMenuItem(row pgx.Row) (domain.MenuItem, error) {
	var (
		item      domain.MenuItem
		groupsRaw []byte
	)
	err := row.Scan(
		&item.ID, &item.VenueID, &item.Category, &item.Name, &item.BasePrice, &groupsRaw,
		&item.AllowedMods, &item.DietaryTags, &item.Available, &item.Hidden,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return domain.MenuItem{}, err
	}
	if err := json.Unmarshal(groupsRaw, &item.OptionGroups); err != nil {
		return domain.MenuItem{}, fmt.Errorf("decode option groups: %w", err)
	}
	return item, nil
}

func (q *Queries) listMenuItems(ctx context.Context, sql string, args ...any) ([]domain.MenuItem, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer rows.Close()

	var items []domain.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListAvailableMenuItems returns the snapshot the conversation works from:
// available, not soft-hidden, in stable category/name order.
func (q *Queries) ListAvailableMenuItems(ctx context.Context, venueID int64) ([]domain.MenuItem, error) {
	return q.listMenuItems(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE venue_id = $1 AND available AND NOT hidden
		ORDER BY category, name`, venueID)
}

func (q *Queries) ListMenuItems(ctx context.Context, venueID int64) ([]domain.MenuItem, error) {
	return q.listMenuItems(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE venue_id = $1 AND NOT hidden
		ORDER BY category, name`, venueID)
}

func (q *Queries) GetMenuItemByName(ctx context.Context, venueID int64, name string) (domain.MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE venue_id = $1 AND lower(name) = lower($2) AND NOT hidden`,
		venueID, name)
	item, err := scanMenuItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MenuItem{}, &domain.UnknownItemError{Ref: name}
		}
		return domain.MenuItem{}, fmt.Errorf("get menu item: %w", err)
	}
	return item, nil
}

// SetMenuAvailability toggles items by name, returning how many matched.
func (q *Queries) SetMenuAvailability(ctx context.Context, venueID int64, names []string, available bool) (int64, error) {
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(strings.TrimSpace(n))
	}
	tag, err := q.db.Exec(ctx, `
		UPDATE menu_items SET available = $3, updated_at = now()
		WHERE venue_id = $1 AND lower(name) = ANY($2) AND NOT hidden`,
		venueID, lowered, available)
	if err != nil {
		return 0, fmt.Errorf("set menu availability: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpsertMenuItem inserts or refreshes an imported item. Hidden items stay
// hidden; historical orders never lose their referenced rows.
func (q *Queries) UpsertMenuItem(ctx context.Context, item domain.MenuItem) error {
	groups, err := json.Marshal(item.OptionGroups)
	if err != nil {
		return fmt.Errorf("encode option groups: %w", err)
	}
	if item.AllowedMods == nil {
		item.AllowedMods = []string{}
	}
	if item.DietaryTags == nil {
		item.DietaryTags = []string{}
	}
	_, err = q.db.Exec(ctx, `
		INSERT INTO menu_items (id, venue_id, category, name, base_price, option_groups,
			allowed_mods, dietary_tags, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		ON CONFLICT (venue_id, lower(name)) DO UPDATE SET
			category = EXCLUDED.category,
			base_price = EXCLUDED.base_price,
			option_groups = EXCLUDED.option_groups,
			allowed_mods = EXCLUDED.allowed_mods,
			dietary_tags = EXCLUDED.dietary_tags,
			updated_at = now()`,
		item.ID, item.VenueID, item.Category, item.Name, item.BasePrice, groups,
		item.AllowedMods, item.DietaryTags)
	if err != nil {
		return fmt.Errorf("upsert menu item: %w", err)
	}
	return nil
}

// HideMenuItem soft-hides an item so historical orders keep their reference.
func (q *Queries) HideMenuItem(ctx context.Context, venueID int64, name string) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE menu_items SET hidden = TRUE, available = FALSE, updated_at = now()
		WHERE venue_id = $1 AND lower(name) = lower($2)`,
		venueID, name)
	if err != nil {
		return false, fmt.Errorf("hide menu item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
