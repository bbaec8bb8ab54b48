package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-masala/internal/pricing"
)

// Storefront selects which price column applies to a request.
type Storefront string

const (
	// StorefrontRetail serves household buyers at retail prices.
	StorefrontRetail Storefront = "retail"
	// StorefrontCaterer serves bulk buyers at caterer prices.
	StorefrontCaterer Storefront = "caterer"
)

// ParseStorefront validates a storefront string, defaulting to retail when empty.
func ParseStorefront(s string) (Storefront, error) {
	switch Storefront(strings.ToLower(strings.TrimSpace(s))) {
	case "", StorefrontRetail:
		return StorefrontRetail, nil
	case StorefrontCaterer:
		return StorefrontCaterer, nil
	default:
		return "", fmt.Errorf("unknown storefront: %q", s)
	}
}

// Item is a normalised catalog entry. Prices are minor units, stock is
// thousandths of the sale unit.
type Item struct {
	ID           string           `json:"id"`
	Slug         string           `json:"slug"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	Unit         string           `json:"unit"`
	RetailPrice  pricing.Money    `json:"retailPrice"`
	CatererPrice pricing.Money    `json:"catererPrice"`
	Stock        pricing.Quantity `json:"stock"`
	Active       bool             `json:"active"`
	Tags         []string         `json:"tags,omitempty"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// PriceFor returns the unit price of the item on this storefront. A caterer
// storefront falls back to the retail price when no caterer price is set.
func (s Storefront) PriceFor(it Item) pricing.Money {
	if s == StorefrontCaterer && it.CatererPrice > 0 {
		return it.CatererPrice
	}
	return it.RetailPrice
}

// Eligible reports whether the item can be sold on the storefront: active,
// positively priced, and in stock.
func (s Storefront) Eligible(it Item) bool {
	return it.Active && s.PriceFor(it) > 0 && it.Stock > 0
}
