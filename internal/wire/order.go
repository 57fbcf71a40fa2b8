package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/ogen-go/ogen/json"

	"github.com/xenking/inventory-offers/internal/domain/order"
)

func encodeLine(e *jx.Encoder, l *order.Line) {
	e.ObjStart()
	e.FieldStart("item_id")
	e.Str(l.ItemID)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("unit_price")
	encodeDecimal(e, l.UnitPrice)
	e.FieldStart("applied_offer_id")
	if l.OfferID == "" {
		e.Null()
	} else {
		e.Str(l.OfferID)
	}
	e.FieldStart("discount_amount")
	encodeDecimal(e, l.Discount)
	e.ObjEnd()
}

// EncodeOrder writes o as a JSON object.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("items")
	e.ArrStart()
	for i := range o.Lines {
		encodeLine(e, &o.Lines[i])
	}
	e.ArrEnd()
	e.FieldStart("total_amount")
	encodeDecimal(e, o.Total)
	e.FieldStart("discount_amount")
	encodeDecimal(e, o.Discount)
	e.FieldStart("final_amount")
	encodeDecimal(e, o.Final)
	e.FieldStart("created_at")
	json.EncodeDateTime(e, o.CreatedAt)
	e.ObjEnd()
}

func EncodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ArrStart()
	for i := range orders {
		EncodeOrder(e, &orders[i])
	}
	e.ArrEnd()
}

// DecodeOrder parses an order previously written by EncodeOrder.
func DecodeOrder(d *jx.Decoder) (*order.Order, error) {
	var o order.Order
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				if err != nil {
					return err
				}
				o.Lines = append(o.Lines, l)
				return nil
			})
		case "total_amount":
			o.Total, err = decodeDecimal(d)
		case "discount_amount":
			o.Discount, err = decodeDecimal(d)
		case "final_amount":
			o.Final, err = decodeDecimal(d)
		case "created_at":
			o.CreatedAt, err = json.DecodeDateTime(d)
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

func decodeLine(d *jx.Decoder) (order.Line, error) {
	var l order.Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "item_id":
			l.ItemID, err = d.Str()
		case "quantity":
			l.Quantity, err = d.Int()
		case "unit_price":
			l.UnitPrice, err = decodeDecimal(d)
		case "applied_offer_id":
			if null, nErr := isNull(d); nErr != nil || null {
				return nErr
			}
			l.OfferID, err = d.Str()
		case "discount_amount":
			l.Discount, err = decodeDecimal(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return fieldErr(err, key)
		}
		return nil
	})
	return l, err
}

// DecodeOrderRequest parses an order submission. Both a bare array of lines
// and an object with an "items" array are accepted.
func DecodeOrderRequest(data []byte) ([]order.LineRequest, error) {
	d := jx.DecodeBytes(data)
	switch d.Next() {
	case jx.Array:
		return decodeLineRequests(d)
	case jx.Object:
		var reqs []order.LineRequest
		err := d.Obj(func(d *jx.Decoder, key string) error {
			if key != "items" {
				return d.Skip()
			}
			if null, err := isNull(d); err != nil || null {
				return err
			}
			var err error
			reqs, err = decodeLineRequests(d)
			return err
		})
		return reqs, err
	default:
		return nil, errors.Errorf("unexpected %s, want array or object", d.Next())
	}
}

func decodeLineRequests(d *jx.Decoder) ([]order.LineRequest, error) {
	var reqs []order.LineRequest
	err := d.Arr(func(d *jx.Decoder) error {
		var r order.LineRequest
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "item_id":
				r.ItemID, err = d.Str()
			case "quantity":
				r.Quantity, err = d.Int()
			default:
				return d.Skip()
			}
			if err != nil {
				return fieldErr(err, key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		reqs = append(reqs, r)
		return nil
	})
	return reqs, err
}
