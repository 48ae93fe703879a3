package def

import (
	"io"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/pkg/errors"
)

// DecodeJSON reads one JSON object, keeping key order.
func DecodeJSON(r io.Reader) (*Object, error) {
	dec := jsontext.NewDecoder(r)
	v, err := readValue(dec)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, errors.Errorf("environment document must be an object, got %T", v)
	}
	return obj, nil
}

func readValue(dec *jsontext.Decoder) (any, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	switch tok.Kind() {
	case 'n':
		return nil, nil
	case 'f', 't':
		return tok.Bool(), nil
	case '"':
		return tok.String(), nil
	case '0':
		return tok.Float(), nil
	case '{':
		obj := NewObject()
		for dec.PeekKind() != '}' {
			keyTok, err := dec.ReadToken()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			val, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(keyTok.String(), val)
		}
		if _, err := dec.ReadToken(); err != nil {
			return nil, errors.WithStack(err)
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.PeekKind() != ']' {
			val, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.ReadToken(); err != nil {
			return nil, errors.WithStack(err)
		}
		return arr, nil
	}
	return nil, errors.Errorf("unexpected JSON token %s", tok.Kind())
}

// EncodeJSON writes obj as indented JSON, keeping key order.
func EncodeJSON(w io.Writer, obj *Object) error {
	enc := jsontext.NewEncoder(w, jsontext.WithIndent("  "))
	return writeValue(enc, obj)
}

func writeValue(enc *jsontext.Encoder, v any) error {
	var err error
	switch v := v.(type) {
	case nil:
		err = enc.WriteToken(jsontext.Null)
	case bool:
		err = enc.WriteToken(jsontext.Bool(v))
	case string:
		err = enc.WriteToken(jsontext.String(v))
	case float64:
		err = enc.WriteToken(jsontext.Float(v))
	case int:
		err = enc.WriteToken(jsontext.Int(int64(v)))
	case int64:
		err = enc.WriteToken(jsontext.Int(v))
	case []any:
		if err := enc.WriteToken(jsontext.BeginArray); err != nil {
			return errors.WithStack(err)
		}
		for _, elem := range v {
			if err := writeValue(enc, elem); err != nil {
				return err
			}
		}
		err = enc.WriteToken(jsontext.EndArray)
	case *Object:
		if err := enc.WriteToken(jsontext.BeginObject); err != nil {
			return errors.WithStack(err)
		}
		for _, key := range v.keys {
			if err := enc.WriteToken(jsontext.String(key)); err != nil {
				return errors.WithStack(err)
			}
			if err := writeValue(enc, v.values[key]); err != nil {
				return err
			}
		}
		err = enc.WriteToken(jsontext.EndObject)
	default:
		return errors.Errorf("cannot encode %T", v)
	}
	return errors.WithStack(err)
}
