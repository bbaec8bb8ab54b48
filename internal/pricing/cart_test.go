package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-masala/internal/pricing"
)

var testRules = pricing.Rules{FreeDeliveryThreshold: 50000, DeliveryFee: 5000}

func TestCustomBudgetLineBillsEnteredAmount(t *testing.T) {
	// 237.50 at 50.00/kg derives 4.750 kg; the entered amount stays
	// authoritative even if the derived quantity would not reproduce it.
	line := pricing.Line{
		ID:            "cb-1",
		Kind:          pricing.LineCustomBudget,
		UnitPrice:     5000,
		Qty:           pricing.DivQuantity(23750, 5000),
		EnteredAmount: 23750,
	}
	require.Equal(t, int64(4750), line.Qty)
	require.Equal(t, int64(23750), line.Value())

	// A price that does not divide evenly still bills the entered amount.
	odd := pricing.Line{
		ID:            "cb-2",
		Kind:          pricing.LineCustomBudget,
		UnitPrice:     333,
		Qty:           pricing.DivQuantity(23750, 333),
		EnteredAmount: 23750,
	}
	require.NotEqual(t, odd.EnteredAmount, pricing.MulPrice(odd.UnitPrice, odd.Qty))
	require.Equal(t, int64(23750), odd.Value())
}

func TestTotalsDeliveryThresholdInclusive(t *testing.T) {
	below := []pricing.Line{{ID: "a", Kind: pricing.LineStandard, UnitPrice: 49999, Qty: 1000}}
	totals := testRules.Totals(below)
	require.Equal(t, int64(49999), totals.Subtotal)
	require.Equal(t, int64(5000), totals.DeliveryFee)
	require.Equal(t, int64(54999), totals.GrandTotal)

	at := []pricing.Line{{ID: "a", Kind: pricing.LineStandard, UnitPrice: 50000, Qty: 1000}}
	totals = testRules.Totals(at)
	require.Equal(t, int64(50000), totals.Subtotal)
	require.Zero(t, totals.DeliveryFee)
	require.Equal(t, int64(50000), totals.GrandTotal)
}

func TestTotalsEmptyCartHasNoFee(t *testing.T) {
	totals := testRules.Totals(nil)
	require.Zero(t, totals.Subtotal)
	require.Zero(t, totals.DeliveryFee)
	require.Zero(t, totals.GrandTotal)
}

func TestTotalsMixLineBillsFullBudget(t *testing.T) {
	alloc, err := pricing.Allocate(50000, []pricing.Candidate{
		{ID: "a", UnitPrice: 5000},
		{ID: "b", UnitPrice: 3000},
		{ID: "c", UnitPrice: 2000},
	})
	require.NoError(t, err)
	lines := []pricing.Line{{
		ID:        "mix-1",
		Kind:      pricing.LineMix,
		Label:     "Mix 1",
		UnitPrice: alloc.Total,
		Qty:       pricing.QuantityScale,
		Mix:       &alloc,
	}}
	totals := testRules.Totals(lines)
	require.Equal(t, int64(50000), totals.Subtotal)
	require.Zero(t, totals.DeliveryFee)
}

func TestSetQuantityRemovesLineAndKeepsOrder(t *testing.T) {
	lines := []pricing.Line{
		{ID: "a", Kind: pricing.LineStandard, UnitPrice: 100, Qty: 1000},
		{ID: "b", Kind: pricing.LineCustomQty, UnitPrice: 200, Qty: 1500},
		{ID: "c", Kind: pricing.LineStandard, UnitPrice: 300, Qty: 2000},
	}
	out, err := pricing.SetQuantity(lines, "b", 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].ID)
	require.Equal(t, "c", out[1].ID)
	// original slice untouched
	require.Len(t, lines, 3)
}

func TestSetQuantityClampsToMinimum(t *testing.T) {
	lines := []pricing.Line{{ID: "a", Kind: pricing.LineStandard, UnitPrice: 100, Qty: 1000}}
	out, err := pricing.SetQuantity(lines, "a", 1)
	require.NoError(t, err)
	require.Equal(t, pricing.MinQty, out[0].Qty)
}

func TestSetQuantityMixOnlyRemovable(t *testing.T) {
	alloc := pricing.Allocation{Total: 10000}
	lines := []pricing.Line{
		{ID: "std", Kind: pricing.LineStandard, UnitPrice: 100, Qty: 1000},
		{ID: "mix", Kind: pricing.LineMix, UnitPrice: 10000, Qty: 1000, Mix: &alloc},
	}
	_, err := pricing.SetQuantity(lines, "mix", 2000)
	require.ErrorIs(t, err, pricing.ErrMixImmutable)

	out, err := pricing.SetQuantity(lines, "mix", 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "std", out[0].ID)
}

func TestSetQuantityUnknownLine(t *testing.T) {
	_, err := pricing.SetQuantity(nil, "nope", 1000)
	require.ErrorIs(t, err, pricing.ErrLineNotFound)
}
