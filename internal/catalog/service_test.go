package catalog

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	items []Item
}

func (f *fakeStore) List(_ context.Context, filter ListFilter) ([]Item, int64, error) {
	out := make([]Item, 0, len(f.items))
	for _, it := range f.items {
		if it.Active {
			out = append(out, it)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) Get(_ context.Context, idOrSlug string) (Item, error) {
	for _, it := range f.items {
		if it.ID == idOrSlug || it.Slug == idOrSlug {
			return it, nil
		}
	}
	return Item{}, fmt.Errorf("%q: %w", idOrSlug, ErrNotFound)
}

func (f *fakeStore) GetMany(_ context.Context, ids []string) ([]Item, error) {
	var out []Item
	for _, id := range ids {
		for _, it := range f.items {
			if it.ID == id {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

func testItems() []Item {
	return []Item{
		{ID: "a", Slug: "turmeric", Name: "Turmeric", Unit: "kg", RetailPrice: 42000, CatererPrice: 38000, Stock: 10000, Active: true},
		{ID: "b", Slug: "cumin", Name: "Cumin", Unit: "kg", RetailPrice: 52000, Stock: 5000, Active: true},
		{ID: "c", Slug: "saffron", Name: "Saffron", Unit: "g", RetailPrice: 35000, CatererPrice: 32000, Stock: 0, Active: true},
		{ID: "d", Slug: "retired", Name: "Retired", Unit: "kg", RetailPrice: 10000, Stock: 100, Active: false},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{Store: &fakeStore{items: testItems()}, DefaultLimit: 20, MaxLimit: 100})
	require.NoError(t, err)
	return svc
}

func TestParseListParams(t *testing.T) {
	svc := newTestService(t)

	params, err := svc.ParseListParams(url.Values{})
	require.NoError(t, err)
	require.Equal(t, StorefrontRetail, params.Storefront)
	require.Equal(t, 1, params.Page)
	require.Equal(t, 20, params.Limit)

	params, err = svc.ParseListParams(url.Values{"storefront": {"caterer"}, "limit": {"500"}, "inStock": {"true"}})
	require.NoError(t, err)
	require.Equal(t, StorefrontCaterer, params.Storefront)
	require.Equal(t, 100, params.Limit)
	require.NotNil(t, params.InStock)
	require.True(t, *params.InStock)

	_, err = svc.ParseListParams(url.Values{"storefront": {"walkin"}})
	require.Error(t, err)

	_, err = svc.ParseListParams(url.Values{"page": {"0"}})
	require.Error(t, err)
}

func TestListResolvesStorefrontPrice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result, err := svc.List(ctx, ListParams{Storefront: StorefrontCaterer, Page: 1, Limit: 20})
	require.NoError(t, err)

	prices := map[string]int64{}
	for _, it := range result.Items {
		prices[it.ID] = it.UnitPrice
	}
	require.EqualValues(t, 38000, prices["a"], "caterer price wins when set")
	require.EqualValues(t, 52000, prices["b"], "retail price is the fallback")
}

func TestCandidatesDropsIneligible(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	candidates, dropped, err := svc.Candidates(ctx, StorefrontRetail, []string{"a", "c", "d", "ghost", "b"})
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	require.Equal(t, "a", candidates[0].ID)
	require.Equal(t, "b", candidates[1].ID)
	require.Equal(t, []string{"c", "d", "ghost"}, dropped)
}

func TestGetMapsNotFound(t *testing.T) {
	svc := newTestService(t)

	item, err := svc.Get(context.Background(), "turmeric")
	require.NoError(t, err)
	require.Equal(t, "a", item.ID)

	_, err = svc.Get(context.Background(), "nope")
	require.Error(t, err)
}
