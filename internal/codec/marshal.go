package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Marshaler runs the serialization stage.
type Marshaler struct {
	allowObjects bool
}

// NewMarshaler creates a marshaler. When allowObjects is false only TEXT,
// BYTES and STRUCT values are accepted.
func NewMarshaler(allowObjects bool) *Marshaler {
	return &Marshaler{allowObjects: allowObjects}
}

// Marshal serializes value and reports which kind was used.
//
// Selection order:
//  1. string                -> TEXT
//  2. []byte                -> BYTES
//  3. JSON-representable    -> STRUCT (canonical JSON)
//  4. anything else         -> OBJECT (CBOR), only if objects are allowed
func (m *Marshaler) Marshal(value any) ([]byte, Kind, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), KindText, nil
	case []byte:
		return v, KindBytes, nil
	}

	if tree, ok := toStructTree(value); ok {
		data, err := marshalStruct(tree)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %T: %v", ErrUnsupportedValue, value, err)
		}
		return data, KindStruct, nil
	}

	if !m.allowObjects {
		return nil, 0, fmt.Errorf("%w: %T is not JSON-representable and object serialization is disabled",
			ErrUnsupportedValue, value)
	}

	data, err := marshalObject(value)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %T: %v", ErrUnsupportedValue, value, err)
	}
	return data, KindObject, nil
}

// marshalStruct writes canonical JSON: sorted map keys, no HTML escaping,
// no trailing newline.
func marshalStruct(tree any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
