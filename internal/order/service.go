package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-masala/internal/cart"
	"github.com/noah-isme/backend-masala/internal/events"
	"github.com/noah-isme/backend-masala/internal/obs"
	"github.com/noah-isme/backend-masala/internal/pricing"
)

// ErrEmptyCart is returned when checking out a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// StatusConfirmed is the initial status of a checked-out order.
const StatusConfirmed = "confirmed"

type cartProvider interface {
	Consume(ctx context.Context, cartID string, fn func(cart.Cart, pricing.Totals) error) error
}

type orderStore interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
}

// Service turns cart sessions into persisted orders.
type Service struct {
	Store    orderStore
	Carts    cartProvider
	Bus      *events.Bus
	Log      zerolog.Logger
	Currency string
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Checkout freezes the cart into an order. The read, the persist, and the
// cart deletion all happen while holding the cart's write lock, so a
// concurrent mutation cannot slip between them and a second checkout of
// the same cart finds nothing to consume. Totals are recomputed from the
// stored lines at this moment.
func (s *Service) Checkout(ctx context.Context, cartID string, customer Customer) (Order, error) {
	var o Order
	persisted := false
	err := s.Carts.Consume(ctx, cartID, func(snapshot cart.Cart, totals pricing.Totals) error {
		if len(snapshot.Lines) == 0 {
			return fmt.Errorf("%s: %w", cartID, ErrEmptyCart)
		}
		o = Order{
			ID:          uuid.NewString(),
			CartID:      snapshot.ID,
			Storefront:  snapshot.Storefront,
			Customer:    customer,
			Lines:       snapshot.Lines,
			Subtotal:    totals.Subtotal,
			DeliveryFee: totals.DeliveryFee,
			GrandTotal:  totals.GrandTotal,
			Currency:    s.Currency,
			Status:      StatusConfirmed,
			CreatedAt:   s.now(),
		}
		if err := s.Store.Create(ctx, o); err != nil {
			return err
		}
		persisted = true
		return nil
	})
	switch {
	case err == nil:
	case persisted:
		// The order exists; the cart could not be deleted and lingers
		// until its TTL.
		s.Log.Warn().Err(err).Str("cart_id", cartID).Msg("delete cart after checkout")
	case errors.Is(err, ErrEmptyCart):
		s.countCheckout("empty")
		return Order{}, err
	case errors.Is(err, cart.ErrCartNotFound):
		s.countCheckout("cart_error")
		return Order{}, err
	default:
		s.countCheckout("store_error")
		return Order{}, err
	}

	if s.Bus != nil {
		_, emitErr := s.Bus.Emit(ctx, events.TopicOrderCreated, o.ID, map[string]any{
			"orderId":    o.ID,
			"storefront": o.Storefront,
			"grandTotal": o.GrandTotal,
			"lineCount":  len(o.Lines),
		})
		if emitErr != nil {
			s.Log.Error().Err(emitErr).Str("order_id", o.ID).Msg("emit order.created")
		}
	}
	s.countCheckout("ok")
	return o, nil
}

// Get returns a stored order by id.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) countCheckout(result string) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
}
