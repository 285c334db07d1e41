package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func burgerItem() MenuItem {
	return MenuItem{
		ID:        uuid.New(),
		VenueID:   1,
		Category:  "mains",
		Name:      "Burger",
		BasePrice: decimal.RequireFromString("9.50"),
		OptionGroups: []OptionGroup{
			{
				Name:     "Patty",
				Required: true,
				Choices: []OptionChoice{
					{Name: "Beef", PriceDelta: decimal.Zero},
					{Name: "Chicken", PriceDelta: decimal.RequireFromString("1.25")},
				},
			},
			{
				Name:     "Extras",
				Required: false,
				Choices: []OptionChoice{
					{Name: "Bacon", PriceDelta: decimal.RequireFromString("2.00")},
				},
			},
		},
		AllowedMods: []string{"no onions"},
		Available:   true,
	}
}

func TestResolveLineItem(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		selections map[string]string
		quantity   int
		mods       []string
		wantUnit   string
		wantTotal  string
		wantErr    string // "", "missing", "validation"
		wantGroups []string
	}{
		{
			name:       "required group resolved at delta price",
			selections: map[string]string{"Patty": "Chicken"},
			quantity:   1,
			wantUnit:   "10.75",
			wantTotal:  "10.75",
		},
		{
			name:       "quantity replicates line total",
			selections: map[string]string{"Patty": "Beef"},
			quantity:   3,
			wantUnit:   "9.50",
			wantTotal:  "28.50",
		},
		{
			name:       "optional group adds delta",
			selections: map[string]string{"Patty": "Beef", "Extras": "Bacon"},
			quantity:   1,
			wantUnit:   "11.50",
			wantTotal:  "11.50",
		},
		{
			name:       "missing required group",
			selections: nil,
			quantity:   1,
			mods:       []string{"no onions"},
			wantErr:    "missing",
			wantGroups: []string{"Patty"},
		},
		{
			name:       "unrecognized choice re-prompts",
			selections: map[string]string{"Patty": "Tofu"},
			quantity:   1,
			wantErr:    "missing",
			wantGroups: []string{"Patty"},
		},
		{
			name:       "case-insensitive group and choice",
			selections: map[string]string{"patty": "chicken"},
			quantity:   1,
			wantUnit:   "10.75",
			wantTotal:  "10.75",
		},
		{
			name:       "zero quantity rejected at boundary",
			selections: map[string]string{"Patty": "Beef"},
			quantity:   0,
			wantErr:    "validation",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			line, err := ResolveLineItem(burgerItem(), test.selections, test.quantity, test.mods)

			switch test.wantErr {
			case "missing":
				var missing *MissingOptionsError
				if !errors.As(err, &missing) {
					t.Fatalf("want MissingOptionsError, got %v", err)
				}
				if len(missing.Groups) != len(test.wantGroups) {
					t.Fatalf("missing groups: got %v, want %v", missing.Groups, test.wantGroups)
				}
				for i, g := range test.wantGroups {
					if missing.Groups[i] != g {
						t.Errorf("missing group %d: got %q, want %q", i, missing.Groups[i], g)
					}
				}
				return
			case "validation":
				var invalid *ValidationError
				if !errors.As(err, &invalid) {
					t.Fatalf("want ValidationError, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ResolveLineItem: %v", err)
			}
			if !line.UnitPrice.Equal(decimal.RequireFromString(test.wantUnit)) {
				t.Errorf("unit price: got %s, want %s", line.UnitPrice, test.wantUnit)
			}
			if !line.LineTotal.Equal(decimal.RequireFromString(test.wantTotal)) {
				t.Errorf("line total: got %s, want %s", line.LineTotal, test.wantTotal)
			}
			if line.Quantity != test.quantity {
				t.Errorf("quantity: got %d, want %d", line.Quantity, test.quantity)
			}
		})
	}
}

func TestResolveLineItemCanonicalizesSelections(t *testing.T) {
	t.Parallel()
	line, err := ResolveLineItem(burgerItem(), map[string]string{"patty": "CHICKEN"}, 1, nil)
	if err != nil {
		t.Fatalf("ResolveLineItem: %v", err)
	}
	if got := line.Selections["Patty"]; got != "Chicken" {
		t.Errorf("selection: got %q, want canonical %q", got, "Chicken")
	}
}

func TestOrderTotal(t *testing.T) {
	t.Parallel()
	items := []OrderLineItem{
		{LineTotal: decimal.RequireFromString("10.75")},
		{LineTotal: decimal.RequireFromString("4.25")},
	}
	if got := OrderTotal(items); !got.Equal(decimal.RequireFromString("15")) {
		t.Errorf("total: got %s, want 15", got)
	}
	if got := OrderTotal(nil); !got.IsZero() {
		t.Errorf("empty total: got %s, want 0", got)
	}
}
