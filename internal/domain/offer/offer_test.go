package offer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffer_Validate(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	tests := []struct {
		name    string
		offer   Offer
		wantErr bool
	}{
		{name: "percentage", offer: Offer{Name: "p", Kind: KindPercentage, Value: d("20")}},
		{name: "fixed with min quantity", offer: Offer{Name: "f", Kind: KindFixed, Value: d("10"), MinQuantity: 2}},
		{name: "buy x get y accepted", offer: Offer{Name: "b", Kind: KindBuyXGetY, Value: d("1")}},
		{name: "missing name", offer: Offer{Kind: KindFixed, Value: d("1")}, wantErr: true},
		{name: "unknown kind", offer: Offer{Name: "x", Kind: Kind("bogus"), Value: d("1")}, wantErr: true},
		{name: "negative value", offer: Offer{Name: "x", Kind: KindFixed, Value: d("-1")}, wantErr: true},
		{name: "percentage over 100", offer: Offer{Name: "x", Kind: KindPercentage, Value: d("100.01")}, wantErr: true},
		{name: "negative min quantity", offer: Offer{Name: "x", Kind: KindFixed, Value: d("1"), MinQuantity: -1}, wantErr: true},
		{name: "end before start", offer: Offer{Name: "x", Kind: KindFixed, Value: d("1"), StartsAt: &start, EndsAt: &end}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.offer.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPatch_Apply(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	o := Offer{
		Name:     "Sale",
		Kind:     KindPercentage,
		Value:    d("20"),
		Items:    []string{"a"},
		StartsAt: &start,
		EndsAt:   &end,
		Active:   true,
	}

	kind := KindFixed
	Patch{Kind: &kind, Items: []string{"a", "b"}, ClearStartsAt: true}.Apply(&o)

	assert.Equal(t, KindFixed, o.Kind)
	assert.Equal(t, []string{"a", "b"}, o.Items)
	assert.Nil(t, o.StartsAt)
	require.NotNil(t, o.EndsAt)
	assert.True(t, end.Equal(*o.EndsAt))
	assert.Equal(t, "Sale", o.Name)
}
