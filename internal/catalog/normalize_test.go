package catalog

import (
	"errors"
	"testing"
)

func TestNormalizeItemFallbackChains(t *testing.T) {
	raw := map[string]any{
		"name":     "Turmeric Powder",
		"price":    420.50,
		"quantity": 12.5,
	}
	item, err := NormalizeItem(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if item.RetailPrice != 42050 {
		t.Fatalf("retail price = %d, want 42050", item.RetailPrice)
	}
	if item.CatererPrice != 42050 {
		t.Fatalf("caterer price should fall back to retail, got %d", item.CatererPrice)
	}
	if item.Stock != 12500 {
		t.Fatalf("stock = %d, want 12500", item.Stock)
	}
	if !item.Active {
		t.Fatal("active should default to true")
	}
	if item.Unit != "kg" {
		t.Fatalf("unit = %q, want kg", item.Unit)
	}
	if item.Slug != "turmeric-powder" {
		t.Fatalf("slug = %q", item.Slug)
	}
}

func TestNormalizeItemPrefersExplicitFields(t *testing.T) {
	raw := map[string]any{
		"name":               "Kashmiri Chilli",
		"retail_price":       "380",
		"caterer_price":      340.0,
		"price":              999.0,
		"available_quantity": "5",
		"stock":              100.0,
		"is_active":          false,
		"unit":               "kg",
		"tags":               []any{"chilli", " whole "},
	}
	item, err := NormalizeItem(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if item.RetailPrice != 38000 {
		t.Fatalf("retail price = %d, want 38000", item.RetailPrice)
	}
	if item.CatererPrice != 34000 {
		t.Fatalf("caterer price = %d, want 34000", item.CatererPrice)
	}
	if item.Stock != 5000 {
		t.Fatalf("stock should come from available_quantity, got %d", item.Stock)
	}
	if item.Active {
		t.Fatal("is_active=false must win over the default")
	}
	if len(item.Tags) != 2 || item.Tags[1] != "whole" {
		t.Fatalf("tags = %v", item.Tags)
	}
}

func TestNormalizeItemRejectsUnusableRecords(t *testing.T) {
	cases := []map[string]any{
		{},
		{"name": "No Price"},
		{"name": "Negative", "price": -1.0},
	}
	for _, raw := range cases {
		if _, err := NormalizeItem(raw); !errors.Is(err, ErrBadRecord) {
			t.Fatalf("record %v: err = %v, want ErrBadRecord", raw, err)
		}
	}
}

func TestSlugify(t *testing.T) {
	if got := Slugify("  Garam Masala (Premium)! "); got != "garam-masala-premium" {
		t.Fatalf("slug = %q", got)
	}
}
