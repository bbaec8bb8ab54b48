package pricing

import (
	"errors"
	"testing"
)

func TestAllocateEqualSplitWithRemainder(t *testing.T) {
	// 500.00 over three items: 166.66 + 166.66 + 166.68.
	items := []Candidate{
		{ID: "a", UnitPrice: 5000},
		{ID: "b", UnitPrice: 3000},
		{ID: "c", UnitPrice: 2000},
	}
	alloc, err := Allocate(50000, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := alloc.Lines[0].Cost; got != 16666 {
		t.Fatalf("expected first share 16666, got %d", got)
	}
	if got := alloc.Lines[1].Cost; got != 16666 {
		t.Fatalf("expected second share 16666, got %d", got)
	}
	if got := alloc.Lines[2].Cost; got != 16668 {
		t.Fatalf("expected last share 16668, got %d", got)
	}
	if alloc.Total != 50000 {
		t.Fatalf("expected total 50000, got %d", alloc.Total)
	}
	if alloc.Remainder != 0 {
		t.Fatalf("expected zero remainder, got %d", alloc.Remainder)
	}
}

func TestAllocateConservesBudget(t *testing.T) {
	budgets := []Money{1, 99, 100, 23750, 50000, 99999, 1000001}
	prices := []Money{1, 7, 250, 4999, 5000, 123456}
	for _, budget := range budgets {
		for n := 1; n <= 9; n++ {
			items := make([]Candidate, 0, n)
			for i := 0; i < n; i++ {
				items = append(items, Candidate{ID: string(rune('a' + i)), UnitPrice: prices[i%len(prices)]})
			}
			alloc, err := Allocate(budget, items)
			if err != nil {
				t.Fatalf("budget=%d n=%d: %v", budget, n, err)
			}
			var sum Money
			for _, line := range alloc.Lines {
				sum += line.Cost
			}
			if sum != budget || alloc.Total != budget {
				t.Fatalf("budget=%d n=%d: allocated %d", budget, n, sum)
			}
			if alloc.Remainder != 0 {
				t.Fatalf("budget=%d n=%d: remainder %d", budget, n, alloc.Remainder)
			}
		}
	}
}

func TestAllocateQuantityTracksCost(t *testing.T) {
	items := []Candidate{
		{ID: "a", UnitPrice: 5000},
		{ID: "b", UnitPrice: 3333},
		{ID: "c", UnitPrice: 799},
	}
	alloc, err := Allocate(123457, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, line := range alloc.Lines {
		// Qty must be within half a thousandth of cost/unitPrice.
		exact := float64(line.Cost) / float64(items[i].UnitPrice)
		got := float64(line.Qty) / float64(QuantityScale)
		diff := exact - got
		if diff < 0 {
			diff = -diff
		}
		if diff >= 0.0005 {
			t.Fatalf("line %d: qty %f too far from %f", i, got, exact)
		}
	}
}

func TestAllocateSingleItem(t *testing.T) {
	alloc, err := Allocate(10000, []Candidate{{ID: "only", UnitPrice: 777}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alloc.Lines) != 1 || alloc.Lines[0].Cost != 10000 {
		t.Fatalf("expected sole item to receive full budget, got %+v", alloc.Lines)
	}
}

func TestAllocateRejectsBadInput(t *testing.T) {
	if _, err := Allocate(0, []Candidate{{ID: "a", UnitPrice: 100}}); !errors.Is(err, ErrInvalidMix) {
		t.Fatalf("expected ErrInvalidMix for zero budget, got %v", err)
	}
	if _, err := Allocate(-500, []Candidate{{ID: "a", UnitPrice: 100}}); !errors.Is(err, ErrInvalidMix) {
		t.Fatalf("expected ErrInvalidMix for negative budget, got %v", err)
	}
	if _, err := Allocate(10000, nil); !errors.Is(err, ErrInvalidMix) {
		t.Fatalf("expected ErrInvalidMix for empty candidates, got %v", err)
	}
	if _, err := Allocate(10000, []Candidate{{ID: "a", UnitPrice: 0}}); !errors.Is(err, ErrInvalidMix) {
		t.Fatalf("expected ErrInvalidMix for unpriced candidate, got %v", err)
	}
}
