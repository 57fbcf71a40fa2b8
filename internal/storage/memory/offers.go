package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xenking/inventory-offers/internal/domain/offer"
)

var _ offer.Repository = (*Offers)(nil)

// Offers is an in-memory offer.Repository. List preserves insertion order,
// which is the order the resolver sees offers in.
type Offers struct {
	mu     sync.RWMutex
	offers []offer.Offer
}

// NewOffers returns an empty offer store.
func NewOffers() *Offers {
	return &Offers{}
}

func (s *Offers) index(id string) int {
	for i := range s.offers {
		if s.offers[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Offers) List(_ context.Context) ([]offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]offer.Offer, len(s.offers))
	for i := range s.offers {
		out[i] = cloneOffer(s.offers[i])
	}
	return out, nil
}

func (s *Offers) GetByID(_ context.Context, id string) (*offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(id)
	if i < 0 {
		return nil, offer.ErrNotFound
	}
	o := cloneOffer(s.offers[i])
	return &o, nil
}

func (s *Offers) Create(_ context.Context, o *offer.Offer) error {
	if o.ID == "" {
		return fmt.Errorf("creating offer: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(o.ID) >= 0 {
		return fmt.Errorf("creating offer %q: already exists", o.ID)
	}
	s.offers = append(s.offers, cloneOffer(*o))
	return nil
}

// Update applies fn to a copy of the stored offer and keeps its position in
// the list.
func (s *Offers) Update(_ context.Context, id string, fn func(*offer.Offer) error) (*offer.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil, offer.ErrNotFound
	}
	cp := cloneOffer(s.offers[i])
	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.ID = id
	s.offers[i] = cloneOffer(cp)
	return &cp, nil
}

func (s *Offers) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return offer.ErrNotFound
	}
	s.offers = append(s.offers[:i], s.offers[i+1:]...)
	return nil
}

func cloneOffer(o offer.Offer) offer.Offer {
	o.Items = append([]string(nil), o.Items...)
	if o.StartsAt != nil {
		t := *o.StartsAt
		o.StartsAt = &t
	}
	if o.EndsAt != nil {
		t := *o.EndsAt
		o.EndsAt = &t
	}
	return o
}
