// Package seed loads the sample catalog into a store.
package seed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/inventory-offers/db"
	"github.com/xenking/inventory-offers/internal/domain/item"
	"github.com/xenking/inventory-offers/internal/domain/offer"
)

type itemJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
}

type offerJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	OfferType       string          `json:"offer_type"`
	DiscountValue   decimal.Decimal `json:"discount_value"`
	MinQuantity     int             `json:"min_quantity"`
	ApplicableItems []string        `json:"applicable_items"`
	StartDate       *time.Time      `json:"start_date"`
	EndDate         *time.Time      `json:"end_date"`
	IsActive        bool            `json:"is_active"`
}

// Catalog is a parsed sample catalog.
type Catalog struct {
	Items  []item.Item
	Offers []offer.Offer
}

// Parse decodes a catalog document and validates every entry.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Items  []itemJSON  `json:"items"`
		Offers []offerJSON `json:"offers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}

	c := &Catalog{
		Items:  make([]item.Item, 0, len(doc.Items)),
		Offers: make([]offer.Offer, 0, len(doc.Offers)),
	}
	known := make(map[string]struct{}, len(doc.Items))
	for _, j := range doc.Items {
		it := item.Item{
			ID:          j.ID,
			Name:        j.Name,
			Description: j.Description,
			Price:       j.Price,
			Stock:       j.Stock,
			Category:    j.Category,
		}
		if it.ID == "" {
			return nil, errors.Errorf("item %q: id required", it.Name)
		}
		if err := it.Validate(); err != nil {
			return nil, errors.Wrapf(err, "item %s", it.ID)
		}
		known[it.ID] = struct{}{}
		c.Items = append(c.Items, it)
	}

	for _, j := range doc.Offers {
		o := offer.Offer{
			ID:          j.ID,
			Name:        j.Name,
			Description: j.Description,
			Kind:        offer.Kind(j.OfferType),
			Value:       j.DiscountValue,
			MinQuantity: j.MinQuantity,
			Items:       j.ApplicableItems,
			StartsAt:    j.StartDate,
			EndsAt:      j.EndDate,
			Active:      j.IsActive,
		}
		if o.ID == "" {
			return nil, errors.Errorf("offer %q: id required", o.Name)
		}
		if err := o.Validate(); err != nil {
			return nil, errors.Wrapf(err, "offer %s", o.ID)
		}
		var missing []string
		for _, id := range o.Items {
			if _, ok := known[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return nil, errors.Wrapf(&offer.UnknownItemsError{IDs: missing}, "offer %s", o.ID)
		}
		c.Offers = append(c.Offers, o)
	}

	return c, nil
}

// Default returns the bundled sample catalog.
func Default() (*Catalog, error) {
	return Parse(db.Catalog)
}

// Apply writes every item, then every offer, through the given functions.
// Memory stores pass their Create methods, postgres passes upserts.
func Apply(
	ctx context.Context,
	c *Catalog,
	putItem func(context.Context, *item.Item) error,
	putOffer func(context.Context, *offer.Offer) error,
) error {
	for i := range c.Items {
		if err := putItem(ctx, &c.Items[i]); err != nil {
			return errors.Wrapf(err, "put item %s", c.Items[i].ID)
		}
	}
	for i := range c.Offers {
		if err := putOffer(ctx, &c.Offers[i]); err != nil {
			return errors.Wrapf(err, "put offer %s", c.Offers[i].ID)
		}
	}
	return nil
}
