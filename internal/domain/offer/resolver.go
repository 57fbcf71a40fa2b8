package offer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Resolver picks the best applicable offer for each order line.
type Resolver struct {
	offers Lister
	now    func() time.Time
}

// NewResolver creates a Resolver reading offers from the given Lister.
func NewResolver(offers Lister) *Resolver {
	return &Resolver{offers: offers, now: time.Now}
}

// Resolve returns the best discount per item ID. Lines are expected to be
// unique by item ID. Each line receives at most one discount: offers are
// scanned in registry order and a later offer only replaces an earlier one
// when its amount is strictly greater, so the first offer wins exact ties.
// Lines with no qualifying offer are absent from the result.
//
// Inactive offers, offers outside their validity window and offers that
// reference items not in the order are skipped without error.
func (r *Resolver) Resolve(ctx context.Context, lines []Line) (map[string]Discount, error) {
	offers, err := r.offers.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list offers")
	}

	lg := zctx.From(ctx)
	groups := groupByCategory(lines)
	now := r.now()

	best := make(map[string]Discount, len(lines))
	consider := func(itemID, offerID string, amount decimal.Decimal) {
		cur, ok := best[itemID]
		if ok && !amount.GreaterThan(cur.Amount) {
			return
		}
		best[itemID] = Discount{OfferID: offerID, Amount: amount}
		lg.Debug("Offer selected",
			zap.String("item_id", itemID),
			zap.String("offer_id", offerID),
			zap.String("amount", amount.String()),
		)
	}

	for i := range offers {
		o := &offers[i]
		if !o.ValidAt(now) {
			continue
		}

		if o.Kind == KindBuyXGetY {
			for itemID, amount := range bundleDiscounts(o, groups) {
				consider(itemID, o.ID, amount)
			}
			continue
		}

		for _, l := range lines {
			amount, ok := lineDiscount(o, l)
			if !ok {
				continue
			}
			consider(l.ItemID, o.ID, amount)
		}
	}

	return best, nil
}

// groupByCategory buckets lines by item category, preserving line order
// within each bucket.
func groupByCategory(lines []Line) map[string][]Line {
	groups := make(map[string][]Line)
	for _, l := range lines {
		groups[l.Category] = append(groups[l.Category], l)
	}
	return groups
}
