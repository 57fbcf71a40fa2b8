package offer

import (
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Line is a priced order line as seen by the resolver.
type Line struct {
	ItemID    string
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal returns UnitPrice * Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Discount is the discount chosen for one line.
type Discount struct {
	OfferID string
	Amount  decimal.Decimal
}

// lineDiscount computes the discount o grants to l. The second result is
// false when the offer does not apply to the line at all.
func lineDiscount(o *Offer, l Line) (decimal.Decimal, bool) {
	if !o.AppliesTo(l.ItemID) {
		return zero, false
	}

	switch o.Kind {
	case KindPercentage:
		return applyPercentage(o, l), true
	case KindFixed:
		if o.MinQuantity > 0 && l.Quantity < o.MinQuantity {
			return zero, false
		}
		return applyFixed(o, l), true
	default:
		// KindBuyXGetY is handled per category group, see bundleDiscounts.
		return zero, false
	}
}

func applyPercentage(o *Offer, l Line) decimal.Decimal {
	return floorAtZero(o.Value.Div(hundred).Mul(l.Subtotal()))
}

func applyFixed(o *Offer, l Line) decimal.Decimal {
	return floorAtZero(decimal.Min(o.Value, l.Subtotal()))
}

// bundleDiscounts is the category-wide hook for buy_x_get_y offers. The kind
// is recognised but has no pricing rule yet, so it grants nothing.
func bundleDiscounts(_ *Offer, _ map[string][]Line) map[string]decimal.Decimal {
	return nil
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
