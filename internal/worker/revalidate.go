package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-masala/internal/cart"
	"github.com/noah-isme/backend-masala/internal/obs"
)

// TypeCatalogRevalidate is the asynq task walking active carts and dropping
// lines whose items went unavailable.
const TypeCatalogRevalidate = "catalog:revalidate"

// NewCatalogRevalidateTask builds the periodic revalidation task.
func NewCatalogRevalidateTask() *asynq.Task {
	return asynq.NewTask(TypeCatalogRevalidate, nil)
}

// Revalidator processes catalog revalidation tasks.
type Revalidator struct {
	Carts *cart.Service
	Store *cart.Store
	Log   zerolog.Logger
}

// Handle walks every indexed cart and revalidates its lines against the live
// catalog. Expired carts are pruned from the index as a side effect.
func (r *Revalidator) Handle(ctx context.Context, _ *asynq.Task) error {
	ids, err := r.Store.IDs(ctx)
	if err != nil {
		r.countRun("error")
		return err
	}
	var walked, removed, pruned int
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := r.Carts.Revalidate(ctx, id)
		if err != nil {
			if errors.Is(err, cart.ErrCartNotFound) {
				if delErr := r.Store.Delete(ctx, id); delErr == nil {
					pruned++
				}
				continue
			}
			r.Log.Error().Err(err).Str("cart_id", id).Msg("revalidate cart")
			continue
		}
		walked++
		removed += n
	}
	r.Log.Info().
		Int("carts", walked).
		Int("lines_removed", removed).
		Int("index_pruned", pruned).
		Msg("catalog revalidation complete")
	r.countRun("ok")
	return nil
}

func (r *Revalidator) countRun(result string) {
	if obs.CatalogRevalidationsTotal != nil {
		obs.CatalogRevalidationsTotal.WithLabelValues(result).Inc()
	}
}
