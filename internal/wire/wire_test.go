package wire

import (
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/inventory-offers/internal/domain/item"
	"github.com/xenking/inventory-offers/internal/domain/offer"
	"github.com/xenking/inventory-offers/internal/domain/order"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestDecodeOrderRequest(t *testing.T) {
	want := []order.LineRequest{{ItemID: "a", Quantity: 2}, {ItemID: "b", Quantity: -1}}

	tests := []struct {
		name    string
		body    string
		want    []order.LineRequest
		wantErr bool
	}{
		{name: "bare array", body: `[{"item_id":"a","quantity":2},{"item_id":"b","quantity":-1}]`, want: want},
		{name: "items object", body: `{"items":[{"item_id":"a","quantity":2},{"item_id":"b","quantity":-1,"note":"x"}]}`, want: want},
		{name: "empty array", body: `[]`},
		{name: "null items", body: `{"items":null}`},
		{name: "string", body: `"nope"`, wantErr: true},
		{name: "fractional quantity", body: `[{"item_id":"a","quantity":1.5}]`, wantErr: true},
		{name: "truncated", body: `[{"item_id":"a"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeOrderRequest([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeOrder(t *testing.T) {
	o := &order.Order{
		ID: "o1",
		Lines: []order.Line{
			{ItemID: "a", Quantity: 2, UnitPrice: d("100"), OfferID: "sale", Discount: d("40")},
			{ItemID: "b", Quantity: 1, UnitPrice: d("49.99"), Discount: decimal.Zero},
		},
		Total:     d("249.99"),
		Discount:  d("40"),
		Final:     d("209.99"),
		CreatedAt: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}

	data := Encode(func(e *jx.Encoder) { EncodeOrder(e, o) })

	assert.JSONEq(t, `{
		"id": "o1",
		"items": [
			{"item_id":"a","quantity":2,"unit_price":100,"applied_offer_id":"sale","discount_amount":40},
			{"item_id":"b","quantity":1,"unit_price":49.99,"applied_offer_id":null,"discount_amount":0}
		],
		"total_amount": 249.99,
		"discount_amount": 40,
		"final_amount": 209.99,
		"created_at": "2025-06-15T12:00:00Z"
	}`, string(data))

	got, err := DecodeOrder(jx.DecodeBytes(data))
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.True(t, o.Final.Equal(got.Final))
	assert.Equal(t, "", got.Lines[1].OfferID)
	assert.True(t, o.CreatedAt.Equal(got.CreatedAt))
}

func TestDecodeItem(t *testing.T) {
	it, err := DecodeItem([]byte(`{"id":"ignored","name":"Kettle","price":"19.90","stock":4,"category":"Kitchen"}`))
	require.NoError(t, err)
	assert.Empty(t, it.ID)
	assert.Equal(t, "Kettle", it.Name)
	assert.True(t, d("19.9").Equal(it.Price))
	assert.Equal(t, 4, it.Stock)

	_, err = DecodeItem([]byte(`{"price":true}`))
	require.Error(t, err)
}

func TestDecodeItemPatch(t *testing.T) {
	p, err := DecodeItemPatch([]byte(`{"stock":7,"name":null,"unknown":[1,2]}`))
	require.NoError(t, err)
	require.NotNil(t, p.Stock)
	assert.Equal(t, 7, *p.Stock)
	assert.Nil(t, p.Name)
	assert.Nil(t, p.Price)

	it := item.Item{Name: "Kettle", Stock: 1}
	p.Apply(&it)
	assert.Equal(t, 7, it.Stock)
	assert.Equal(t, "Kettle", it.Name)
}

func TestDecodeOffer(t *testing.T) {
	o, err := DecodeOffer([]byte(`{
		"name": "Sale",
		"offer_type": "percentage",
		"discount_value": 20,
		"applicable_items": ["a", "b"],
		"start_date": "2025-01-01T00:00:00Z",
		"end_date": null
	}`))
	require.NoError(t, err)

	assert.Equal(t, offer.KindPercentage, o.Kind)
	assert.True(t, d("20").Equal(o.Value))
	assert.Equal(t, []string{"a", "b"}, o.Items)
	require.NotNil(t, o.StartsAt)
	assert.True(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Equal(*o.StartsAt))
	assert.Nil(t, o.EndsAt)
	assert.True(t, o.Active, "is_active defaults to true")

	_, err = DecodeOffer([]byte(`{"start_date":"yesterday"}`))
	require.Error(t, err)
}

func TestDecodeOfferPatch(t *testing.T) {
	p, err := DecodeOfferPatch([]byte(`{"start_date":null,"end_date":"2025-02-01T00:00:00Z","is_active":false,"applicable_items":[]}`))
	require.NoError(t, err)

	assert.True(t, p.ClearStartsAt)
	assert.False(t, p.ClearEndsAt)
	require.NotNil(t, p.EndsAt)
	require.NotNil(t, p.Active)
	assert.False(t, *p.Active)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.Nil(t, p.Name)
}

func TestEncodeOffer_NullDates(t *testing.T) {
	o := &offer.Offer{ID: "o", Name: "n", Kind: offer.KindFixed, Value: d("10"), MinQuantity: 1, Items: []string{"a"}, Active: true}
	data := Encode(func(e *jx.Encoder) { EncodeOffer(e, o) })

	assert.JSONEq(t, `{
		"id":"o","name":"n","description":"","offer_type":"fixed","discount_value":10,
		"min_quantity":1,"applicable_items":["a"],"start_date":null,"end_date":null,"is_active":true
	}`, string(data))
}

func TestError(t *testing.T) {
	data := Encode(func(e *jx.Encoder) {
		EncodeError(e, Error{Code: 400, Message: "order validation failed", Errors: []string{"item x not found"}})
	})
	got, err := DecodeError(data)
	require.NoError(t, err)
	assert.Equal(t, 400, got.Code)
	assert.Equal(t, []string{"item x not found"}, got.Errors)

	data = Encode(func(e *jx.Encoder) { EncodeError(e, Error{Code: 404, Message: "item not found"}) })
	assert.JSONEq(t, `{"code":404,"message":"item not found"}`, string(data))
}
