package wire

import "github.com/go-faster/jx"

// Error is the error body returned by the HTTP API.
type Error struct {
	Code    int
	Message string
	// Errors lists individual problems, e.g. each failed order line.
	Errors []string
}

func EncodeError(e *jx.Encoder, v Error) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(v.Code)
	e.FieldStart("message")
	e.Str(v.Message)
	if len(v.Errors) > 0 {
		e.FieldStart("errors")
		encodeStrings(e, v.Errors)
	}
	e.ObjEnd()
}

// DecodeError parses an error body.
func DecodeError(data []byte) (Error, error) {
	var v Error
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			v.Code, err = d.Int()
		case "message":
			v.Message, err = d.Str()
		case "errors":
			v.Errors, err = decodeStrings(d)
		default:
			return d.Skip()
		}
		return err
	})
	return v, err
}
