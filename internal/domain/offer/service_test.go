package offer

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/inventory-offers/internal/domain/item"
)

type mockItemLookup struct {
	items map[string]item.Item
}

func (m *mockItemLookup) GetByIDs(_ context.Context, ids []string) ([]item.Item, error) {
	var out []item.Item
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

type mockOfferRepo struct {
	offers []Offer
}

func (m *mockOfferRepo) List(_ context.Context) ([]Offer, error) {
	return append([]Offer(nil), m.offers...), nil
}

func (m *mockOfferRepo) GetByID(_ context.Context, id string) (*Offer, error) {
	for i := range m.offers {
		if m.offers[i].ID == id {
			o := m.offers[i]
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockOfferRepo) Create(_ context.Context, o *Offer) error {
	m.offers = append(m.offers, *o)
	return nil
}

func (m *mockOfferRepo) Update(_ context.Context, id string, fn func(*Offer) error) (*Offer, error) {
	for i := range m.offers {
		if m.offers[i].ID != id {
			continue
		}
		o := m.offers[i]
		if err := fn(&o); err != nil {
			return nil, err
		}
		m.offers[i] = o
		return &o, nil
	}
	return nil, ErrNotFound
}

func (m *mockOfferRepo) Delete(_ context.Context, id string) error {
	for i := range m.offers {
		if m.offers[i].ID == id {
			m.offers = append(m.offers[:i], m.offers[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func newTestService(offers ...Offer) (*Service, *mockOfferRepo) {
	repo := &mockOfferRepo{offers: offers}
	items := &mockItemLookup{items: map[string]item.Item{
		"laptop":  {ID: "laptop", Name: "Laptop"},
		"blender": {ID: "blender", Name: "Blender"},
	}}
	return NewService(repo, items), repo
}

func TestService_Create(t *testing.T) {
	svc, repo := newTestService()

	o := &Offer{
		Name:   "Electronics Sale",
		Kind:   KindPercentage,
		Value:  decimal.NewFromInt(20),
		Items:  []string{"laptop"},
		Active: true,
	}
	require.NoError(t, svc.Create(context.Background(), o))
	assert.NotEmpty(t, o.ID)
	require.Len(t, repo.offers, 1)
	assert.Equal(t, o.ID, repo.offers[0].ID)
}

func TestService_Create_UnknownItems(t *testing.T) {
	svc, repo := newTestService()

	err := svc.Create(context.Background(), &Offer{
		Name:  "Ghost",
		Kind:  KindFixed,
		Value: decimal.NewFromInt(5),
		Items: []string{"laptop", "toaster", "kettle", "toaster"},
	})

	var uiErr *UnknownItemsError
	require.ErrorAs(t, err, &uiErr)
	assert.Equal(t, []string{"toaster", "kettle"}, uiErr.IDs)
	assert.Empty(t, repo.offers)
}

func TestService_Create_Invalid(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Create(context.Background(), &Offer{
		Name:  "Too generous",
		Kind:  KindPercentage,
		Value: decimal.NewFromInt(120),
		Items: []string{"laptop"},
	})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestService_Update(t *testing.T) {
	svc, _ := newTestService(Offer{
		ID:     "o1",
		Name:   "Kitchen Special",
		Kind:   KindFixed,
		Value:  decimal.NewFromInt(10),
		Items:  []string{"blender"},
		Active: true,
	})

	inactive := false
	value := decimal.NewFromInt(15)
	got, err := svc.Update(context.Background(), "o1", Patch{Active: &inactive, Value: &value})
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.True(t, value.Equal(got.Value))
	assert.Equal(t, "Kitchen Special", got.Name)

	_, err = svc.Update(context.Background(), "o1", Patch{Items: []string{"toaster"}})
	var uiErr *UnknownItemsError
	require.ErrorAs(t, err, &uiErr)

	_, err = svc.Update(context.Background(), "missing", Patch{Active: &inactive})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_Active(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	svc, _ := newTestService(
		Offer{ID: "live", Active: true},
		Offer{ID: "off", Active: false},
		Offer{ID: "expired", Active: true, EndsAt: &past},
		Offer{ID: "started", Active: true, StartsAt: &past},
	)
	svc.now = func() time.Time { return now }

	got, err := svc.Active(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, o := range got {
		ids[i] = o.ID
	}
	assert.Equal(t, []string{"live", "started"}, ids)
}

func TestService_Delete(t *testing.T) {
	svc, repo := newTestService(Offer{ID: "o1"}, Offer{ID: "o2"})

	require.NoError(t, svc.Delete(context.Background(), "o1"))
	require.Len(t, repo.offers, 1)
	assert.Equal(t, "o2", repo.offers[0].ID)

	require.ErrorIs(t, svc.Delete(context.Background(), "o1"), ErrNotFound)
}
