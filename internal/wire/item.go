package wire

import (
	"github.com/go-faster/jx"

	"github.com/xenking/inventory-offers/internal/domain/item"
)

// EncodeItem writes it as a JSON object.
func EncodeItem(e *jx.Encoder, it *item.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("description")
	e.Str(it.Description)
	e.FieldStart("price")
	encodeDecimal(e, it.Price)
	e.FieldStart("stock")
	e.Int(it.Stock)
	e.FieldStart("category")
	e.Str(it.Category)
	e.ObjEnd()
}

func EncodeItems(e *jx.Encoder, items []item.Item) {
	e.ArrStart()
	for i := range items {
		EncodeItem(e, &items[i])
	}
	e.ArrEnd()
}

// DecodeItem parses an item creation body. The ID, if present, is ignored.
func DecodeItem(data []byte) (*item.Item, error) {
	var it item.Item
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			it.Name, err = d.Str()
		case "description":
			it.Description, err = d.Str()
		case "price":
			it.Price, err = decodeDecimal(d)
		case "stock":
			it.Stock, err = d.Int()
		case "category":
			it.Category, err = d.Str()
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
	return &it, nil
}

// DecodeItemPatch parses a partial item update. Absent and null fields are
// left unset.
func DecodeItemPatch(data []byte) (item.Patch, error) {
	var p item.Patch
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if null, err := isNull(d); err != nil || null {
			return err
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
		case "price":
			v, err := decodeDecimal(d)
			if err != nil {
				return fieldErr(err, key)
			}
			p.Price = &v
		case "stock":
			v, err := d.Int()
			if err != nil {
				return fieldErr(err, key)
			}
			p.Stock = &v
		case "category":
			v, err := d.Str()
			if err != nil {
				return fieldErr(err, key)
			}
			p.Category = &v
		default:
			return d.Skip()
		}
		return nil
	})
	return p, err
}
