package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-masala/internal/catalog"
	"github.com/noah-isme/backend-masala/internal/lock"
	"github.com/noah-isme/backend-masala/internal/obs"
	"github.com/noah-isme/backend-masala/internal/pricing"
)

// ErrCartNotFound is returned when the referenced cart does not exist or expired.
var ErrCartNotFound = errors.New("cart not found")

// ErrItemUnavailable is returned when an item cannot be added to the cart on
// the current storefront.
var ErrItemUnavailable = errors.New("item unavailable")

// errUnchanged signals that a mutate callback left the cart as it was, so
// the document and its session TTL must not be rewritten.
var errUnchanged = errors.New("cart unchanged")

type catalogProvider interface {
	Get(ctx context.Context, idOrSlug string) (catalog.Item, error)
	Candidates(ctx context.Context, storefront catalog.Storefront, ids []string) ([]pricing.Candidate, []string, error)
}

// Service implements cart session operations. All writes run under a
// per-cart Redis lock so a cart has a single writer at a time.
type Service struct {
	Store   *Store
	Catalog catalogProvider
	Locker  lock.Locker
	Rules   pricing.Rules
	Now     func() time.Time
}

// View is the read model returned to handlers: the cart plus computed totals.
type View struct {
	ID         string             `json:"id"`
	Storefront catalog.Storefront `json:"storefront"`
	Lines      []pricing.Line     `json:"lines"`
	Totals     pricing.Totals     `json:"totals"`
	Notices    []Notice           `json:"notices,omitempty"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) view(c Cart) View {
	return View{
		ID:         c.ID,
		Storefront: c.Storefront,
		Lines:      c.Lines,
		Totals:     s.Rules.Totals(c.Lines),
		Notices:    c.Notices,
		UpdatedAt:  c.UpdatedAt,
	}
}

// Create starts a new cart session on the given storefront.
func (s *Service) Create(ctx context.Context, storefront catalog.Storefront) (View, error) {
	now := s.now()
	c := Cart{
		ID:         uuid.NewString(),
		Storefront: storefront,
		Lines:      []pricing.Line{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.Save(ctx, c); err != nil {
		return View{}, err
	}
	return s.view(c), nil
}

// Get returns the cart with computed totals. Queued notices are delivered
// once: they are cleared from the document after this read.
func (s *Service) Get(ctx context.Context, cartID string) (View, error) {
	var v View
	err := s.Locker.Do(ctx, LockKey(cartID), func(ctx context.Context) error {
		c, ok, err := s.Store.Get(ctx, cartID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", cartID, ErrCartNotFound)
		}
		v = s.view(c)
		if len(c.Notices) > 0 {
			c.Notices = nil
			if err := s.Store.Save(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	return v, err
}

// mutate loads the cart under lock, applies fn, and persists the result.
// A callback returning errUnchanged skips the save, so a pure read never
// extends the session lifetime.
func (s *Service) mutate(ctx context.Context, cartID string, fn func(*Cart) error) (View, error) {
	var v View
	err := s.Locker.Do(ctx, LockKey(cartID), func(ctx context.Context) error {
		c, ok, err := s.Store.Get(ctx, cartID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", cartID, ErrCartNotFound)
		}
		if err := fn(&c); err != nil {
			if errors.Is(err, errUnchanged) {
				v = s.view(c)
				return nil
			}
			return err
		}
		c.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, c); err != nil {
			return err
		}
		v = s.view(c)
		return nil
	})
	return v, err
}

// AddItem adds a standard line. Repeated adds of the same item merge into
// one line by summing quantities.
func (s *Service) AddItem(ctx context.Context, cartID, itemID string, qty pricing.Quantity) (View, error) {
	if qty <= 0 {
		qty = pricing.QuantityScale
	}
	if qty < pricing.MinQty {
		qty = pricing.MinQty
	}
	return s.mutate(ctx, cartID, func(c *Cart) error {
		item, price, err := s.sellableItem(ctx, c.Storefront, itemID)
		if err != nil {
			return err
		}
		for i, l := range c.Lines {
			if l.Kind == pricing.LineStandard && l.ItemID == itemID {
				c.Lines[i].Qty += qty
				return nil
			}
		}
		c.Lines = append(c.Lines, pricing.Line{
			ID:        uuid.NewString(),
			Kind:      pricing.LineStandard,
			ItemID:    item.ID,
			Label:     item.Name,
			Unit:      item.Unit,
			UnitPrice: price,
			Qty:       qty,
		})
		return nil
	})
}

// AddCustomQuantity adds a line at a user-chosen fractional quantity. Each
// call creates its own line.
func (s *Service) AddCustomQuantity(ctx context.Context, cartID, itemID string, qty pricing.Quantity) (View, error) {
	if qty < pricing.MinQty {
		qty = pricing.MinQty
	}
	return s.mutate(ctx, cartID, func(c *Cart) error {
		item, price, err := s.sellableItem(ctx, c.Storefront, itemID)
		if err != nil {
			return err
		}
		c.Lines = append(c.Lines, pricing.Line{
			ID:        uuid.NewString(),
			Kind:      pricing.LineCustomQty,
			ItemID:    item.ID,
			Label:     item.Name,
			Unit:      item.Unit,
			UnitPrice: price,
			Qty:       qty,
		})
		return nil
	})
}

// AddCustomBudget adds a line billed at the exact entered amount. The
// quantity is derived for fulfilment only and never drives billing.
func (s *Service) AddCustomBudget(ctx context.Context, cartID, itemID string, amount pricing.Money) (View, error) {
	if amount <= 0 {
		return View{}, fmt.Errorf("amount must be positive: %w", pricing.ErrInvalidMix)
	}
	return s.mutate(ctx, cartID, func(c *Cart) error {
		item, price, err := s.sellableItem(ctx, c.Storefront, itemID)
		if err != nil {
			return err
		}
		c.Lines = append(c.Lines, pricing.Line{
			ID:            uuid.NewString(),
			Kind:          pricing.LineCustomBudget,
			ItemID:        item.ID,
			Label:         item.Name,
			Unit:          item.Unit,
			UnitPrice:     price,
			Qty:           pricing.DivQuantity(amount, price),
			EnteredAmount: amount,
		})
		return nil
	})
}

// AddMix allocates a budget across the selected items and freezes the result
// as one cart line. Candidates that are no longer sellable are dropped and
// reported as notices; the allocation runs over the survivors.
func (s *Service) AddMix(ctx context.Context, cartID string, budget pricing.Money, itemIDs []string) (View, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		candidates, dropped, err := s.Catalog.Candidates(ctx, c.Storefront, itemIDs)
		if err != nil {
			return err
		}
		for _, id := range dropped {
			c.Notices = append(c.Notices, Notice{
				Code:    NoticeStaleSelection,
				Message: "item is no longer available and was left out of the mix",
				ItemID:  id,
			})
		}
		if len(dropped) > 0 && obs.StaleSelectionDropsTotal != nil {
			obs.StaleSelectionDropsTotal.Add(float64(len(dropped)))
		}
		alloc, err := pricing.Allocate(budget, candidates)
		if obs.MixAllocationsTotal != nil {
			result := "ok"
			if err != nil {
				result = "invalid"
			}
			obs.MixAllocationsTotal.WithLabelValues(string(c.Storefront), result).Inc()
		}
		if err != nil {
			return err
		}
		c.MixCounter++
		c.Lines = append(c.Lines, pricing.Line{
			ID:        uuid.NewString(),
			Kind:      pricing.LineMix,
			Label:     fmt.Sprintf("Mix %d", c.MixCounter),
			Unit:      "mix",
			UnitPrice: alloc.Total,
			Qty:       pricing.QuantityScale,
			Mix:       &alloc,
		})
		return nil
	})
}

// SetQuantity updates a line's quantity. Zero or negative removes the line;
// mix lines reject positive updates.
func (s *Service) SetQuantity(ctx context.Context, cartID, lineID string, qty pricing.Quantity) (View, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		lines, err := pricing.SetQuantity(c.Lines, lineID, qty)
		if err != nil {
			return err
		}
		c.Lines = lines
		return nil
	})
}

// RemoveLine removes a line of any kind.
func (s *Service) RemoveLine(ctx context.Context, cartID, lineID string) (View, error) {
	return s.SetQuantity(ctx, cartID, lineID, 0)
}

// Revalidate drops lines whose items went inactive, unpriced, or out of
// stock, queueing a notice per dropped line. Mix lines are dropped when any
// member item became unavailable, since the frozen split no longer holds.
// It returns the number of removed lines.
func (s *Service) Revalidate(ctx context.Context, cartID string) (int, error) {
	removed := 0
	_, err := s.mutate(ctx, cartID, func(c *Cart) error {
		kept := c.Lines[:0]
		for _, l := range c.Lines {
			stale, staleItem, err := s.lineStale(ctx, c.Storefront, l)
			if err != nil {
				return err
			}
			if !stale {
				kept = append(kept, l)
				continue
			}
			removed++
			c.Notices = append(c.Notices, Notice{
				Code:    NoticeLineRemoved,
				Message: fmt.Sprintf("%s was removed from your cart because it is no longer available", l.Label),
				ItemID:  staleItem,
			})
		}
		c.Lines = kept
		if removed == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Service) lineStale(ctx context.Context, storefront catalog.Storefront, l pricing.Line) (bool, string, error) {
	ids := []string{l.ItemID}
	if l.Kind == pricing.LineMix && l.Mix != nil {
		ids = ids[:0]
		for _, al := range l.Mix.Lines {
			ids = append(ids, al.ItemID)
		}
	}
	_, dropped, err := s.Catalog.Candidates(ctx, storefront, ids)
	if err != nil {
		return false, "", err
	}
	if len(dropped) == 0 {
		return false, "", nil
	}
	return true, dropped[0], nil
}

// Consume hands the cart and its totals to fn while holding the write
// lock, then deletes the cart once fn succeeds. No other writer can touch
// the cart between the read and the delete, and a second consumer finds
// no cart. Checkout uses this to freeze the cart into an order exactly
// once.
func (s *Service) Consume(ctx context.Context, cartID string, fn func(Cart, pricing.Totals) error) error {
	return s.Locker.Do(ctx, LockKey(cartID), func(ctx context.Context) error {
		c, ok, err := s.Store.Get(ctx, cartID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", cartID, ErrCartNotFound)
		}
		if err := fn(c, s.Rules.Totals(c.Lines)); err != nil {
			return err
		}
		return s.Store.Delete(ctx, cartID)
	})
}

func (s *Service) sellableItem(ctx context.Context, storefront catalog.Storefront, itemID string) (catalog.Item, pricing.Money, error) {
	item, err := s.Catalog.Get(ctx, itemID)
	if err != nil {
		return catalog.Item{}, 0, err
	}
	if !storefront.Eligible(item) {
		return catalog.Item{}, 0, fmt.Errorf("%s: %w", itemID, ErrItemUnavailable)
	}
	return item, storefront.PriceFor(item), nil
}
