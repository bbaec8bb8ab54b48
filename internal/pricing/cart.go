package pricing

import "errors"

// LineKind distinguishes how a cart line was created and how it is billed.
type LineKind string

const (
	// LineStandard is a plain catalog item added at a whole quantity.
	LineStandard LineKind = "standard"
	// LineCustomQty is a catalog item added at a user-chosen fractional quantity.
	LineCustomQty LineKind = "customQuantity"
	// LineCustomBudget is a catalog item bought for an exact currency amount.
	LineCustomBudget LineKind = "customBudget"
	// LineMix is a frozen budget allocation across several items.
	LineMix LineKind = "mix"
)

// ErrMixImmutable is returned when attempting to change the quantity of a mix
// line. The internal split was computed against the original budget, so mix
// lines only support full removal.
var ErrMixImmutable = errors.New("mix lines only support removal")

// ErrLineNotFound indicates the referenced cart line does not exist.
var ErrLineNotFound = errors.New("cart line not found")

// MinQty is the smallest orderable quantity (0.100 of a unit).
const MinQty Quantity = 100

// Line is one entry in a cart. It carries enough information to compute its
// own monetary value independent of other lines.
type Line struct {
	ID            string      `json:"id"`
	Kind          LineKind    `json:"kind"`
	ItemID        string      `json:"itemId,omitempty"`
	Label         string      `json:"label"`
	Unit          string      `json:"unit"`
	UnitPrice     Money       `json:"unitPrice"`
	Qty           Quantity    `json:"qty"`
	EnteredAmount Money       `json:"enteredAmount,omitempty"`
	Mix           *Allocation `json:"mix,omitempty"`
}

// Value returns the billed amount for the line. Custom-budget lines bill the
// exact amount the customer entered; recomputing it from the rounded derived
// quantity would drift.
func (l Line) Value() Money {
	if l.Kind == LineCustomBudget {
		return l.EnteredAmount
	}
	return MulPrice(l.UnitPrice, l.Qty)
}

// Totals aggregates computed cart pricing components.
type Totals struct {
	Subtotal    Money `json:"subtotal"`
	DeliveryFee Money `json:"deliveryFee"`
	GrandTotal  Money `json:"grandTotal"`
}

// Rules holds the delivery-fee configuration applied to a cart.
type Rules struct {
	FreeDeliveryThreshold Money
	DeliveryFee           Money
}

// Totals computes subtotal, delivery fee, and grand total for the cart.
// Delivery is free once the subtotal reaches the threshold, inclusive.
func (r Rules) Totals(lines []Line) Totals {
	var subtotal Money
	for _, l := range lines {
		subtotal += l.Value()
	}
	var fee Money
	if len(lines) > 0 && subtotal < r.FreeDeliveryThreshold {
		fee = r.DeliveryFee
	}
	return Totals{Subtotal: subtotal, DeliveryFee: fee, GrandTotal: subtotal + fee}
}

// SetQuantity returns a copy of lines with the identified line updated. A
// quantity of zero or less removes the line for every kind; positive values
// are clamped to MinQty and rejected for mix lines. Line order is preserved.
func SetQuantity(lines []Line, lineID string, qty Quantity) ([]Line, error) {
	idx := -1
	for i, l := range lines {
		if l.ID == lineID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return lines, ErrLineNotFound
	}
	if qty <= 0 {
		out := make([]Line, 0, len(lines)-1)
		out = append(out, lines[:idx]...)
		out = append(out, lines[idx+1:]...)
		return out, nil
	}
	if lines[idx].Kind == LineMix {
		return lines, ErrMixImmutable
	}
	if qty < MinQty {
		qty = MinQty
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	out[idx].Qty = qty
	return out, nil
}
