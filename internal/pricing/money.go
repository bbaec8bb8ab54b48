package pricing

// Money represents a monetary value stored in minor units (paise).
type Money = int64

// Quantity represents a physical quantity in thousandths of a unit,
// e.g. 1500 is 1.5 kg.
type Quantity = int64

// QuantityScale is the number of quantity steps per whole unit.
const QuantityScale Quantity = 1000

// MulPrice returns price multiplied by qty, rounded half-up to the nearest
// minor unit.
func MulPrice(price Money, qty Quantity) Money {
	if price <= 0 || qty <= 0 {
		return 0
	}
	return (price*qty + QuantityScale/2) / QuantityScale
}

// DivQuantity converts a monetary amount into a quantity at the given unit
// price, rounded half-up to the nearest thousandth of a unit.
func DivQuantity(amount, unitPrice Money) Quantity {
	if amount <= 0 || unitPrice <= 0 {
		return 0
	}
	return (2*amount*QuantityScale + unitPrice) / (2 * unitPrice)
}
