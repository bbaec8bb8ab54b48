package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-masala/internal/pricing"
)

// ErrNotFound is returned when a catalog item does not exist.
var ErrNotFound = errors.New("catalog item not found")

// Store persists catalog items in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// ListFilter narrows catalog listings.
type ListFilter struct {
	Query      string
	Storefront Storefront
	InStock    *bool
	Limit      int
	Offset     int
}

const itemColumns = `id, slug, name, description, unit, retail_price, caterer_price, stock_qty, active, tags, updated_at`

// List returns a page of items plus the total count for the filter.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Item, int64, error) {
	where, args := buildItemFilter(f)

	var total int64
	countSQL := "SELECT count(*) FROM products" + where
	if err := s.Pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	listSQL := fmt.Sprintf(
		"SELECT %s FROM products%s ORDER BY name ASC LIMIT $%d OFFSET $%d",
		itemColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, f.Limit, f.Offset)
	rows, err := s.Pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0, f.Limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return items, total, nil
}

// Get fetches one item by id or slug.
func (s *Store) Get(ctx context.Context, idOrSlug string) (Item, error) {
	row := s.Pool.QueryRow(ctx,
		"SELECT "+itemColumns+" FROM products WHERE id::text = $1 OR slug = $1",
		strings.TrimSpace(idOrSlug),
	)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, fmt.Errorf("%q: %w", idOrSlug, ErrNotFound)
		}
		return Item{}, err
	}
	return item, nil
}

// GetMany fetches items by id, preserving input order. Missing ids are
// silently absent from the result.
func (s *Store) GetMany(ctx context.Context, ids []string) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx,
		"SELECT "+itemColumns+" FROM products WHERE id::text = ANY($1)",
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]Item, len(ids))
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		byID[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	items := make([]Item, 0, len(byID))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// Upsert inserts or updates an item keyed by slug.
func (s *Store) Upsert(ctx context.Context, item Item) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO products (slug, name, description, unit, retail_price, caterer_price, stock_qty, active, tags, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			unit = EXCLUDED.unit,
			retail_price = EXCLUDED.retail_price,
			caterer_price = EXCLUDED.caterer_price,
			stock_qty = EXCLUDED.stock_qty,
			active = EXCLUDED.active,
			tags = EXCLUDED.tags,
			updated_at = now()
		RETURNING id::text`,
		item.Slug, item.Name, item.Description, item.Unit,
		item.RetailPrice, item.CatererPrice, item.Stock, item.Active, item.Tags,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert product %q: %w", item.Slug, err)
	}
	return id, nil
}

func buildItemFilter(f ListFilter) (string, []any) {
	clauses := []string{"active = true"}
	args := []any{}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		clauses = append(clauses, fmt.Sprintf("lower(name) LIKE $%d", len(args)))
	}
	if f.InStock != nil && *f.InStock {
		clauses = append(clauses, "stock_qty > 0")
	}
	if f.Storefront == StorefrontCaterer {
		clauses = append(clauses, "(caterer_price > 0 OR retail_price > 0)")
	} else {
		clauses = append(clauses, "retail_price > 0")
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item  Item
		desc  *string
		tags  []string
		stock pricing.Quantity
	)
	err := row.Scan(&item.ID, &item.Slug, &item.Name, &desc, &item.Unit,
		&item.RetailPrice, &item.CatererPrice, &stock, &item.Active, &tags, &item.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	if desc != nil {
		item.Description = *desc
	}
	item.Tags = tags
	item.Stock = stock
	return item, nil
}
