package service

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const sampleMenuPage = `<!DOCTYPE html>
<html><body>
<h1>Tony's Grill</h1>
<h2>Starters</h2>
<ul>
  <li>Garlic Bread - $4.50</li>
  <li>Soup of the Day · 5,00 €</li>
</ul>
<h2>Mains</h2>
<table>
  <tr><td>Classic Burger 9.50</td></tr>
  <tr><td>Classic Burger 9.50</td></tr>
  <tr><td>Grilled Salmon — $18.00</td></tr>
</table>
<p>Follow us on social media!</p>
<div>Opening hours: daily from 11:00</div>
</body></html>`

func TestParseMenuHTML(t *testing.T) {
	t.Parallel()

	items, err := ParseMenuHTML(strings.NewReader(sampleMenuPage))
	if err != nil {
		t.Fatalf("ParseMenuHTML: %v", err)
	}

	want := map[string]struct {
		category string
		price    string
	}{
		"Garlic Bread":    {"starters", "4.50"},
		"Soup of the Day": {"starters", "5.00"},
		"Classic Burger":  {"mains", "9.50"},
		"Grilled Salmon":  {"mains", "18.00"},
	}

	if len(items) != len(want) {
		t.Fatalf("parsed %d items, want %d: %+v", len(items), len(want), items)
	}
	for _, it := range items {
		expect, ok := want[it.Name]
		if !ok {
			t.Errorf("unexpected item %q", it.Name)
			continue
		}
		if it.Category != expect.category {
			t.Errorf("%s: category = %q, want %q", it.Name, it.Category, expect.category)
		}
		if !it.Price.Equal(decimal.RequireFromString(expect.price)) {
			t.Errorf("%s: price = %s, want %s", it.Name, it.Price, expect.price)
		}
	}
}

func TestParseMenuHTMLNoItems(t *testing.T) {
	t.Parallel()

	items, err := ParseMenuHTML(strings.NewReader("<html><body><p>Coming soon</p></body></html>"))
	if err != nil {
		t.Fatalf("ParseMenuHTML: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %+v, want none", items)
	}
}

func TestParseMenuHTMLIgnoresLongBlocks(t *testing.T) {
	t.Parallel()

	long := "<html><body><p>" + strings.Repeat("Our story began in 1987 with a dream. ", 10) + "10.00</p></body></html>"
	items, err := ParseMenuHTML(strings.NewReader(long))
	if err != nil {
		t.Fatalf("ParseMenuHTML: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("long prose parsed as menu item: %+v", items)
	}
}
