package codec

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// maxStructDepth bounds nesting so self-referencing values fail instead of
// recursing forever.
const maxStructDepth = 128

// jsonFloat always renders with a fraction or exponent so that a float
// survives a round trip as a float rather than coming back as an integer.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	b := strconv.AppendFloat(nil, float64(f), 'g', -1, 64)
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, ".0"...)
	}
	return b, nil
}

// toStructTree converts value into a tree of map[string]any, []any and
// scalars that encoding/json writes canonically.
//
// Returns false if value is not structurally JSON-representable:
//   - structs, pointers, channels, funcs, complex numbers
//   - maps whose keys are not strings
//   - byte slices nested inside a structure
//   - NaN and infinities
func toStructTree(value any) (any, bool) {
	return structTree(reflect.ValueOf(value), 0)
}

func structTree(val reflect.Value, depth int) (any, bool) {
	if depth > maxStructDepth {
		return nil, false
	}
	if !val.IsValid() {
		return nil, true
	}

	switch val.Kind() {
	case reflect.Interface:
		if val.IsNil() {
			return nil, true
		}
		return structTree(val.Elem(), depth+1)

	case reflect.Bool:
		return val.Bool(), true

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return val.Int(), true

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return val.Uint(), true

	case reflect.Float32, reflect.Float64:
		f := val.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return jsonFloat(f), true

	case reflect.String:
		return val.String(), true

	case reflect.Slice, reflect.Array:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		out := make([]any, val.Len())
		for i := range out {
			elem, ok := structTree(val.Index(i), depth+1)
			if !ok {
				return nil, false
			}
			out[i] = elem
		}
		return out, true

	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(map[string]any, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			elem, ok := structTree(iter.Value(), depth+1)
			if !ok {
				return nil, false
			}
			out[iter.Key().String()] = elem
		}
		return out, true
	}

	return nil, false
}

// fromStructTree replaces json.Number leaves with int64, uint64 or float64.
func fromStructTree(v any) any {
	switch x := v.(type) {
	case json.Number:
		return fromNumber(x)
	case []any:
		for i := range x {
			x[i] = fromStructTree(x[i])
		}
		return x
	case map[string]any:
		for k, elem := range x {
			x[k] = fromStructTree(elem)
		}
		return x
	default:
		return v
	}
}

func fromNumber(n json.Number) any {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u
		}
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
