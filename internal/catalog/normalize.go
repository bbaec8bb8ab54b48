package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/backend-masala/internal/pricing"
)

// ErrBadRecord is returned when a raw record cannot be normalised into an Item.
var ErrBadRecord = errors.New("bad catalog record")

// Field fallback chains for legacy feeds. Older exports used "price" for the
// retail price and "quantity" for stock; normalisation happens once at ingest
// so the rest of the system only ever sees Item.
var (
	retailPriceKeys  = []string{"retail_price", "retailPrice", "price"}
	catererPriceKeys = []string{"caterer_price", "catererPrice", "wholesale_price"}
	stockKeys        = []string{"available_quantity", "availableQuantity", "stock", "quantity"}
	activeKeys       = []string{"is_active", "isActive", "active"}
	nameKeys         = []string{"name", "title"}
	idKeys           = []string{"id", "sku"}
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeItem converts a heterogeneous raw record into an Item. Monetary
// fields are accepted in major units (rupees) and stored in minor units;
// stock is accepted in sale units and stored in thousandths.
func NormalizeItem(raw map[string]any) (Item, error) {
	name := firstString(raw, nameKeys)
	if name == "" {
		return Item{}, fmt.Errorf("record has no name: %w", ErrBadRecord)
	}

	retail, ok := firstNumber(raw, retailPriceKeys)
	if !ok || retail < 0 {
		return Item{}, fmt.Errorf("record %q has no usable retail price: %w", name, ErrBadRecord)
	}
	caterer, ok := firstNumber(raw, catererPriceKeys)
	if !ok {
		caterer = retail
	}
	stock, ok := firstNumber(raw, stockKeys)
	if !ok || stock < 0 {
		stock = 0
	}

	item := Item{
		ID:           firstString(raw, idKeys),
		Slug:         firstString(raw, []string{"slug"}),
		Name:         name,
		Description:  firstString(raw, []string{"description"}),
		Unit:         firstString(raw, []string{"unit"}),
		RetailPrice:  moneyFromMajor(retail),
		CatererPrice: moneyFromMajor(caterer),
		Stock:        quantityFromUnits(stock),
		Active:       firstBool(raw, activeKeys, true),
		UpdatedAt:    time.Now().UTC(),
	}
	if item.Unit == "" {
		item.Unit = "kg"
	}
	if item.Slug == "" {
		item.Slug = Slugify(name)
	}
	if tags, ok := raw["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok && strings.TrimSpace(s) != "" {
				item.Tags = append(item.Tags, strings.TrimSpace(s))
			}
		}
	}
	return item, nil
}

// Slugify lowercases a name and collapses non-alphanumeric runs into hyphens.
func Slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(s, "-")
}

func moneyFromMajor(v float64) pricing.Money {
	return pricing.Money(math.Round(v * 100))
}

func quantityFromUnits(v float64) pricing.Quantity {
	return pricing.Quantity(math.Round(v * float64(pricing.QuantityScale)))
}

func firstNumber(raw map[string]any, keys []string) (float64, bool) {
	for _, key := range keys {
		v, present := raw[key]
		if !present || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func firstString(raw map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := raw[key].(string); ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func firstBool(raw map[string]any, keys []string, fallback bool) bool {
	for _, key := range keys {
		v, present := raw[key]
		if !present || v == nil {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b
		case string:
			if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
				return parsed
			}
		case float64:
			return b != 0
		}
	}
	return fallback
}
