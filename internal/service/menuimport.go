package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/martijnmoret-ds/OrderOctopus/internal/config"
	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
	"github.com/martijnmoret-ds/OrderOctopus/internal/repository"
)

// MenuImportService scrapes an HTML menu page into catalog items. Imports
// consume the venue's free-parse quota first, then charge credits.
type MenuImportService struct {
	db         *pgxpool.Pool
	queries    *repository.Queries
	billing    *BillingService
	httpClient *http.Client
}

func NewMenuImportService(db *pgxpool.Pool, queries *repository.Queries, billing *BillingService) *MenuImportService {
	return &MenuImportService{
		db:         db,
		queries:    queries,
		billing:    billing,
		httpClient: &http.Client{Timeout: config.MenuImportTimeout},
	}
}

// ImportedItem is one row scraped from a menu page.
type ImportedItem struct {
	Category string
	Name     string
	Price    decimal.Decimal
}

// ImportFromURL fetches the page, parses it, charges the venue and upserts
// the items. The charge and the upserts succeed or fail together with the
// parse: nothing is billed for an unparseable page.
func (s *MenuImportService) ImportFromURL(ctx context.Context, venue *domain.Venue, pageURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch menu page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("menu page status %d", resp.StatusCode)
	}

	items, err := ParseMenuHTML(resp.Body)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, errors.New("no menu items found on page")
	}

	if err := s.chargeImport(ctx, venue); err != nil {
		return 0, err
	}

	for _, it := range items {
		err := s.queries.UpsertMenuItem(ctx, domain.MenuItem{
			ID:        uuid.New(),
			VenueID:   venue.ID,
			Category:  it.Category,
			Name:      it.Name,
			BasePrice: it.Price,
			Available: true,
		})
		if err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

func (s *MenuImportService) chargeImport(ctx context.Context, venue *domain.Venue) error {
	free, err := s.queries.ConsumeFreeParse(ctx, venue.ID)
	if err != nil {
		return err
	}
	if free {
		return nil
	}
	result, err := s.billing.Debit(ctx, venue.ID, decimal.NewFromFloat(config.MenuImportCharge), domain.TxMenuImport, nil)
	if err != nil {
		return err
	}
	if !result.OK {
		return domain.ErrInsufficientCredits
	}
	return nil
}

var priceRe = regexp.MustCompile(`(?:[$€£]\s*)?(\d{1,4}(?:[.,]\d{2}))(?:\s*[$€£])?`)

// ParseMenuHTML extracts (name, price) pairs from a menu page. It looks for
// small leaf-ish elements whose text ends in a price, taking the nearest
// preceding heading as the category.
func ParseMenuHTML(r io.Reader) ([]ImportedItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var items []ImportedItem
	seen := make(map[string]bool)
	category := ""

	doc.Find("h1, h2, h3, h4, li, tr, p, div").Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" || len(text) > 200 {
			return
		}

		if goquery.NodeName(sel) == "h1" || goquery.NodeName(sel) == "h2" ||
			goquery.NodeName(sel) == "h3" || goquery.NodeName(sel) == "h4" {
			if !priceRe.MatchString(text) {
				category = strings.ToLower(text)
			}
			return
		}
		if sel.Children().Filter("li, tr, p, div").Length() > 0 {
			return // container, its leaves will be visited
		}

		match := priceRe.FindStringSubmatchIndex(text)
		if match == nil {
			return
		}
		name := strings.Trim(strings.TrimSpace(text[:match[0]]), "-–—·. ")
		if name == "" || seen[strings.ToLower(name)] {
			return
		}
		raw := strings.ReplaceAll(text[match[2]:match[3]], ",", ".")
		price, err := decimal.NewFromString(raw)
		if err != nil || price.LessThanOrEqual(decimal.Zero) {
			return
		}

		seen[strings.ToLower(name)] = true
		items = append(items, ImportedItem{Category: category, Name: name, Price: price})
	})

	return items, nil
}
