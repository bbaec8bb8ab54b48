package pricing

import (
	"errors"
	"fmt"
)

// ErrInvalidMix is returned when a mix cannot be allocated from the provided
// budget and candidate set.
var ErrInvalidMix = errors.New("invalid mix")

// Candidate is a catalog item eligible for inclusion in a mix. Callers must
// filter out unpriced and out-of-stock items before allocating.
type Candidate struct {
	ID        string
	UnitPrice Money
}

// AllocationLine holds the budget share, quantity, and cost for one item in
// a mix. Cost is authoritative for billing; Qty is authoritative for
// fulfilment and may imply a cost that differs in the last thousandth.
type AllocationLine struct {
	ItemID string   `json:"itemId"`
	Budget Money    `json:"budget"`
	Qty    Quantity `json:"qty"`
	Cost   Money    `json:"cost"`
}

// Allocation is the result of splitting a budget across a candidate set.
type Allocation struct {
	Lines     []AllocationLine `json:"lines"`
	Total     Money            `json:"total"`
	Remainder Money            `json:"remainder"`
}

// Allocate divides budget equally across items, truncated to the minor unit,
// with the last line absorbing the leftover so the line costs sum to the
// budget exactly. Remainder is always zero on success.
func Allocate(budget Money, items []Candidate) (Allocation, error) {
	if budget <= 0 {
		return Allocation{}, fmt.Errorf("budget must be positive: %w", ErrInvalidMix)
	}
	if len(items) == 0 {
		return Allocation{}, fmt.Errorf("no eligible items: %w", ErrInvalidMix)
	}
	for _, it := range items {
		if it.UnitPrice <= 0 {
			return Allocation{}, fmt.Errorf("item %s has no price: %w", it.ID, ErrInvalidMix)
		}
	}

	// Integer division truncates to the minor unit, so the running total
	// never exceeds the budget before the last line absorbs the remainder.
	share := budget / Money(len(items))
	lines := make([]AllocationLine, 0, len(items))
	var allocated Money
	for idx, it := range items {
		cost := share
		if idx == len(items)-1 {
			cost = budget - allocated
		}
		lines = append(lines, AllocationLine{
			ItemID: it.ID,
			Budget: cost,
			Qty:    DivQuantity(cost, it.UnitPrice),
			Cost:   cost,
		})
		allocated += cost
	}
	return Allocation{Lines: lines, Total: allocated, Remainder: budget - allocated}, nil
}
