package wire

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/ogen-go/ogen/json"

	"github.com/xenking/inventory-offers/internal/domain/offer"
)

func encodeOptTime(e *jx.Encoder, t *time.Time) {
	if t == nil {
		e.Null()
		return
	}
	json.EncodeDateTime(e, *t)
}

// EncodeOffer writes o as a JSON object. Unbounded dates are null.
func EncodeOffer(e *jx.Encoder, o *offer.Offer) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("name")
	e.Str(o.Name)
	e.FieldStart("description")
	e.Str(o.Description)
	e.FieldStart("offer_type")
	e.Str(string(o.Kind))
	e.FieldStart("discount_value")
	encodeDecimal(e, o.Value)
	e.FieldStart("min_quantity")
	e.Int(o.MinQuantity)
	e.FieldStart("applicable_items")
	encodeStrings(e, o.Items)
	e.FieldStart("start_date")
	encodeOptTime(e, o.StartsAt)
	e.FieldStart("end_date")
	encodeOptTime(e, o.EndsAt)
	e.FieldStart("is_active")
	e.Bool(o.Active)
	e.ObjEnd()
}

func EncodeOffers(e *jx.Encoder, offers []offer.Offer) {
	e.ArrStart()
	for i := range offers {
		EncodeOffer(e, &offers[i])
	}
	e.ArrEnd()
}

// DecodeOffer parses an offer definition. is_active defaults to true and an
// "id" field is kept, which the bulk importer relies on.
func DecodeOffer(data []byte) (*offer.Offer, error) {
	o := offer.Offer{Active: true, Items: []string{}}
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "name":
			o.Name, err = d.Str()
		case "description":
			o.Description, err = d.Str()
		case "offer_type":
			var s string
			s, err = d.Str()
			o.Kind = offer.Kind(s)
		case "discount_value":
			o.Value, err = decodeDecimal(d)
		case "min_quantity":
			if null, nErr := isNull(d); nErr != nil || null {
				return nErr
			}
			o.MinQuantity, err = d.Int()
		case "applicable_items":
			o.Items, err = decodeStrings(d)
		case "start_date":
			o.StartsAt, err = decodeOptTime(d)
		case "end_date":
			o.EndsAt, err = decodeOptTime(d)
		case "is_active":
			o.Active, err = d.Bool()
		default:
			return d.Skip()
		}
		if err != nil {
			return fieldErr(err, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func decodeOptTime(d *jx.Decoder) (*time.Time, error) {
	if null, err := isNull(d); err != nil || null {
		return nil, err
	}
	t, err := json.DecodeDateTime(d)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DecodeOfferPatch parses a partial offer update. A null start_date or
// end_date clears that bound; other null fields are ignored.
func DecodeOfferPatch(data []byte) (offer.Patch, error) {
	var p offer.Patch
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		null, err := isNull(d)
		if err != nil {
			return fieldErr(err, key)
		}
		if null {
			switch key {
			case "start_date":
				p.ClearStartsAt = true
			case "end_date":
				p.ClearEndsAt = true
			}
			return nil
		}

		switch key {
		case "name":
			v, err := d.Str()
			if err != nil {
				return fieldErr(err, key)
			}
			p.Name = &v
		case "description":
			v, err := d.Str()
			if err != nil {
				return fieldErr(err, key)
			}
			p.Description = &v
		case "offer_type":
			v, err := d.Str()
			if err != nil {
				return fieldErr(err, key)
			}
			k := offer.Kind(v)
			p.Kind = &k
		case "discount_value":
			v, err := decodeDecimal(d)
			if err != nil {
				return fieldErr(err, key)
			}
			p.Value = &v
		case "min_quantity":
			v, err := d.Int()
			if err != nil {
				return fieldErr(err, key)
			}
			p.MinQuantity = &v
		case "applicable_items":
			v, err := decodeStrings(d)
			if err != nil {
				return fieldErr(err, key)
			}
			p.Items = v
		case "start_date":
			t, err := json.DecodeDateTime(d)
			if err != nil {
				return fieldErr(err, key)
			}
			p.StartsAt = &t
		case "end_date":
			t, err := json.DecodeDateTime(d)
			if err != nil {
				return fieldErr(err, key)
			}
			p.EndsAt = &t
		case "is_active":
			v, err := d.Bool()
			if err != nil {
				return fieldErr(err, key)
			}
			p.Active = &v
		default:
			return d.Skip()
		}
		return nil
	})
	return p, err
}
