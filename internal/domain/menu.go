package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OptionChoice struct {
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

type OptionGroup struct {
	Name     string         `json:"name"`
	Required bool           `json:"required"`
	Choices  []OptionChoice `json:"choices"`
}

// Choice finds a choice by name, case-insensitive.
func (g OptionGroup) Choice(name string) (OptionChoice, bool) {
	for _, c := range g.Choices {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return OptionChoice{}, false
}

type MenuItem struct {
	ID           uuid.UUID
	VenueID      int64
	Category     string
	Name         string
	BasePrice    decimal.Decimal
	OptionGroups []OptionGroup
	AllowedMods  []string
	DietaryTags  []string
	Available    bool
	Hidden       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderLineItem is a priced, option-resolved entry. Prices are captured at
// resolution time so later menu edits never change historical orders.
type OrderLineItem struct {
	MenuItemID    uuid.UUID
	Name          string
	Quantity      int
	Selections    map[string]string
	Modifications []string
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
}

// ResolveLineItem turns a catalog item plus customer choices into a line
// item. Pricing here is authoritative: base price plus the delta of each
// chosen option, replicated across quantity. Required groups without a valid
// choice produce a MissingOptionsError listing every group still open.
func ResolveLineItem(item MenuItem, selections map[string]string, quantity int, mods []string) (OrderLineItem, error) {
	if quantity <= 0 {
		return OrderLineItem{}, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	unit := item.BasePrice
	resolved := make(map[string]string, len(item.OptionGroups))
	var missing []string

	for _, group := range item.OptionGroups {
		want, ok := pickSelection(selections, group.Name)
		if !ok {
			if group.Required {
				missing = append(missing, group.Name)
			}
			continue
		}
		choice, ok := group.Choice(want)
		if !ok {
			// An unrecognized choice is re-prompted, not rejected.
			missing = append(missing, group.Name)
			continue
		}
		resolved[group.Name] = choice.Name
		unit = unit.Add(choice.PriceDelta)
	}

	if len(missing) > 0 {
		return OrderLineItem{}, &MissingOptionsError{Item: item.Name, Groups: missing}
	}

	return OrderLineItem{
		MenuItemID:    item.ID,
		Name:          item.Name,
		Quantity:      quantity,
		Selections:    resolved,
		Modifications: append([]string(nil), mods...),
		UnitPrice:     unit,
		LineTotal:     unit.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

func pickSelection(selections map[string]string, group string) (string, bool) {
	if v, ok := selections[group]; ok {
		return v, true
	}
	for k, v := range selections {
		if strings.EqualFold(k, group) {
			return v, true
		}
	}
	return "", false
}
