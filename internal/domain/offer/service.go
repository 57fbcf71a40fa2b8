package offer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/inventory-offers/internal/domain/item"
)

// ItemLookup is the catalog read needed to check applicable item IDs.
type ItemLookup interface {
	GetByIDs(ctx context.Context, ids []string) ([]item.Item, error)
}

// Service encapsulates offer management: integrity checks against the catalog
// happen here, at creation and update time, so resolution never has to
// report a malformed offer.
type Service struct {
	offers Repository
	items  ItemLookup
	now    func() time.Time
}

// NewService creates an offer Service.
func NewService(offers Repository, items ItemLookup) *Service {
	return &Service{offers: offers, items: items, now: time.Now}
}

// Get returns a single offer by ID.
func (s *Service) Get(ctx context.Context, id string) (*Offer, error) {
	return s.offers.GetByID(ctx, id)
}

// All returns every offer in registry order.
func (s *Service) All(ctx context.Context) ([]Offer, error) {
	return s.offers.List(ctx)
}

// Active returns the offers that are currently valid, in registry order.
func (s *Service) Active(ctx context.Context) ([]Offer, error) {
	offers, err := s.offers.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list offers")
	}

	now := s.now()
	active := make([]Offer, 0, len(offers))
	for _, o := range offers {
		if o.ValidAt(now) {
			active = append(active, o)
		}
	}
	return active, nil
}

// Create validates o, checks that every applicable item exists, assigns an ID
// when none is set and stores the offer.
func (s *Service) Create(ctx context.Context, o *Offer) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := s.CheckItems(ctx, o.Items); err != nil {
		return err
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if err := s.offers.Create(ctx, o); err != nil {
		return errors.Wrap(err, "create offer")
	}
	return nil
}

// Update applies p to the stored offer and re-validates the result.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*Offer, error) {
	if p.Items != nil {
		if err := s.CheckItems(ctx, p.Items); err != nil {
			return nil, err
		}
	}
	return s.offers.Update(ctx, id, func(o *Offer) error {
		p.Apply(o)
		return o.Validate()
	})
}

// Delete removes an offer.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.offers.Delete(ctx, id)
}

// CheckItems returns *UnknownItemsError listing every ID in ids that is not in
// the catalog.
func (s *Service) CheckItems(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	found, err := s.items.GetByIDs(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "get items")
	}
	known := make(map[string]struct{}, len(found))
	for _, it := range found {
		known[it.ID] = struct{}{}
	}

	var missing []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &UnknownItemsError{IDs: missing}
	}
	return nil
}
