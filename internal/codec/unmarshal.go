package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Unmarshal inverts the serialization stage for the given kind.
//
// Decoded types:
//   - TEXT   -> string
//   - BYTES  -> []byte
//   - STRUCT -> nil, bool, int64, uint64, float64, string, []any, map[string]any
//   - OBJECT -> the registered Go type, or generic CBOR data if unregistered
func Unmarshal(kind Kind, data []byte) (any, error) {
	switch kind {
	case KindText:
		return string(data), nil

	case KindBytes:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil

	case KindStruct:
		return unmarshalStruct(data)

	case KindObject:
		var v any
		if err := unmarshalObject(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}

	return nil, fmt.Errorf("%w: unknown serialization kind %s", ErrCorrupted, kind)
}

// UnmarshalInto decodes into target, which must be a non-nil pointer.
// A *any target receives the same value Unmarshal would return.
func UnmarshalInto(kind Kind, data []byte, target any) error {
	val := reflect.ValueOf(target)
	if !val.IsValid() || val.Kind() != reflect.Pointer || val.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer, got %T", target)
	}

	if p, ok := target.(*any); ok {
		v, err := Unmarshal(kind, data)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}

	switch kind {
	case KindText, KindBytes:
		switch p := target.(type) {
		case *string:
			*p = string(data)
			return nil
		case *[]byte:
			*p = append([]byte(nil), data...)
			return nil
		}
		return fmt.Errorf("cannot decode %s value into %T", kind, target)

	case KindStruct:
		if err := json.Unmarshal(data, target); err != nil {
			return fmt.Errorf("cannot decode %s value into %T: %w", kind, target, err)
		}
		return nil

	case KindObject:
		return unmarshalObject(data, target)
	}

	return fmt.Errorf("%w: unknown serialization kind %s", ErrCorrupted, kind)
}

func unmarshalStruct(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: struct: %v", ErrCorrupted, err)
	}
	return fromStructTree(v), nil
}
