package worker_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-masala/internal/cart"
	"github.com/noah-isme/backend-masala/internal/catalog"
	"github.com/noah-isme/backend-masala/internal/lock"
	"github.com/noah-isme/backend-masala/internal/pricing"
	"github.com/noah-isme/backend-masala/internal/worker"
)

type stubCatalog struct {
	items map[string]catalog.Item
}

func (s *stubCatalog) Get(_ context.Context, id string) (catalog.Item, error) {
	if it, ok := s.items[id]; ok {
		return it, nil
	}
	return catalog.Item{}, fmt.Errorf("%q: %w", id, catalog.ErrNotFound)
}

func (s *stubCatalog) Candidates(_ context.Context, storefront catalog.Storefront, ids []string) ([]pricing.Candidate, []string, error) {
	var candidates []pricing.Candidate
	var dropped []string
	for _, id := range ids {
		it, ok := s.items[id]
		if !ok || !storefront.Eligible(it) {
			dropped = append(dropped, id)
			continue
		}
		candidates = append(candidates, pricing.Candidate{ID: id, UnitPrice: storefront.PriceFor(it)})
	}
	return candidates, dropped, nil
}

func TestRevalidatorWalksCartsAndPrunesIndex(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cat := &stubCatalog{items: map[string]catalog.Item{
		"turmeric": {ID: "turmeric", Name: "Turmeric", Unit: "kg", RetailPrice: 42000, Stock: 10000, Active: true},
		"cumin":    {ID: "cumin", Name: "Cumin", Unit: "kg", RetailPrice: 52000, Stock: 8000, Active: true},
	}}
	store := &cart.Store{Client: client, TTL: time.Hour}
	carts := &cart.Service{
		Store:   store,
		Catalog: cat,
		Locker:  lock.Locker{Client: client, TTL: time.Second, RetryBackoff: 5 * time.Millisecond},
		Rules:   pricing.Rules{FreeDeliveryThreshold: 50000, DeliveryFee: 5000},
	}

	ctx := context.Background()
	view, err := carts.Create(ctx, catalog.StorefrontRetail)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, view.ID, "turmeric", 1000)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, view.ID, "cumin", 1000)
	require.NoError(t, err)

	// Simulate an expired cart whose id lingers in the index.
	require.NoError(t, client.SAdd(ctx, "cart:index", "expired-cart").Err())

	// Cumin goes out of stock after it was added.
	cumin := cat.items["cumin"]
	cumin.Stock = 0
	cat.items["cumin"] = cumin

	rv := &worker.Revalidator{Carts: carts, Store: store, Log: zerolog.Nop()}
	require.NoError(t, rv.Handle(ctx, worker.NewCatalogRevalidateTask()))

	got, err := carts.Get(ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	require.Equal(t, "turmeric", got.Lines[0].ItemID)
	require.Len(t, got.Notices, 1)
	require.Equal(t, cart.NoticeLineRemoved, got.Notices[0].Code)

	ids, err := store.IDs(ctx)
	require.NoError(t, err)
	require.NotContains(t, ids, "expired-cart")
}
