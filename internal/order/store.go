package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-masala/internal/catalog"
	"github.com/noah-isme/backend-masala/internal/pricing"
)

// ErrNotFound is returned when an order does not exist.
var ErrNotFound = errors.New("order not found")

// Customer captures delivery details collected at checkout.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Order is a confirmed purchase frozen from a cart.
type Order struct {
	ID          string             `json:"id"`
	CartID      string             `json:"cartId"`
	Storefront  catalog.Storefront `json:"storefront"`
	Customer    Customer           `json:"customer"`
	Lines       []pricing.Line     `json:"lines"`
	Subtotal    pricing.Money      `json:"subtotal"`
	DeliveryFee pricing.Money      `json:"deliveryFee"`
	GrandTotal  pricing.Money      `json:"grandTotal"`
	Currency    string             `json:"currency"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// Store persists orders in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// Create writes the order header and its lines in one transaction.
func (s *Store) Create(ctx context.Context, o Order) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, cart_id, storefront, customer_name, customer_phone, customer_address,
			subtotal, delivery_fee, grand_total, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.CartID, string(o.Storefront), o.Customer.Name, o.Customer.Phone, o.Customer.Address,
		o.Subtotal, o.DeliveryFee, o.GrandTotal, o.Currency, o.Status, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for pos, line := range o.Lines {
		var mixJSON []byte
		if line.Mix != nil {
			mixJSON, err = json.Marshal(line.Mix)
			if err != nil {
				return fmt.Errorf("encode mix for line %s: %w", line.ID, err)
			}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, position, line_id, kind, item_id, label, unit,
				unit_price, qty, entered_amount, line_total, mix)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			o.ID, pos, line.ID, string(line.Kind), nullable(line.ItemID), line.Label, line.Unit,
			line.UnitPrice, line.Qty, line.EnteredAmount, line.Value(), mixJSON,
		)
		if err != nil {
			return fmt.Errorf("insert order line %s: %w", line.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkout tx: %w", err)
	}
	return nil
}

// Get loads an order with its lines in stored position order.
func (s *Store) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	var storefront string
	err := s.Pool.QueryRow(ctx, `
		SELECT id, cart_id, storefront, customer_name, customer_phone, customer_address,
			subtotal, delivery_fee, grand_total, currency, status, created_at
		FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.CartID, &storefront, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Address,
		&o.Subtotal, &o.DeliveryFee, &o.GrandTotal, &o.Currency, &o.Status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	o.Storefront = catalog.Storefront(storefront)

	rows, err := s.Pool.Query(ctx, `
		SELECT line_id, kind, item_id, label, unit, unit_price, qty, entered_amount, mix
		FROM order_items WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return Order{}, fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line    pricing.Line
			kind    string
			itemID  *string
			mixJSON []byte
		)
		if err := rows.Scan(&line.ID, &kind, &itemID, &line.Label, &line.Unit,
			&line.UnitPrice, &line.Qty, &line.EnteredAmount, &mixJSON); err != nil {
			return Order{}, fmt.Errorf("scan order line: %w", err)
		}
		line.Kind = pricing.LineKind(kind)
		if itemID != nil {
			line.ItemID = *itemID
		}
		if len(mixJSON) > 0 {
			var alloc pricing.Allocation
			if err := json.Unmarshal(mixJSON, &alloc); err != nil {
				return Order{}, fmt.Errorf("decode mix for line %s: %w", line.ID, err)
			}
			line.Mix = &alloc
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("get order lines: %w", err)
	}
	return o, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
