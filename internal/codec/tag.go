// Package codec converts values to tagged byte payloads and back.
//
// A payload is produced by two stages applied in order:
//
//	serialize (TEXT, BYTES, STRUCT or OBJECT) -> compress (optional)
//
// and the stages that ran are recorded in a Tag stored next to the payload, so
// decoding never depends on how the store happens to be configured today.
package codec

import (
	"fmt"
)

// Kind identifies the serialization stage of a payload.
type Kind byte

// Serialization kinds. The byte values are persisted; never renumber them.
const (
	KindText   Kind = 'U'
	KindBytes  Kind = 'B'
	KindStruct Kind = 'J'
	KindObject Kind = 'O'
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindStruct:
		return "struct"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%#x)", byte(k))
	}
}

func (k Kind) valid() bool {
	switch k {
	case KindText, KindBytes, KindStruct, KindObject:
		return true
	}
	return false
}

// Tag is the per-row codec chain.
//
// Layout:
//
//	byte 0     serialization kind
//	bytes 1..  compression codec ids, in the order they were applied
//
// Example:
//   - "U"  -> UTF-8 text, uncompressed
//   - "Jz" -> canonical JSON, then zstd
type Tag []byte

// NewTag builds a tag for the given kind and compression codecs.
func NewTag(kind Kind, codecs ...byte) Tag {
	tag := make(Tag, 0, 1+len(codecs))
	tag = append(tag, byte(kind))
	return append(tag, codecs...)
}

// ParseTag validates raw tag bytes read back from storage.
func ParseTag(raw []byte) (Tag, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty codec tag", ErrCorrupted)
	}
	if !Kind(raw[0]).valid() {
		return nil, fmt.Errorf("%w: unknown serialization mnemonic %q", ErrCorrupted, raw[0])
	}
	for _, id := range raw[1:] {
		if _, ok := compressorByID(id); !ok {
			return nil, fmt.Errorf("%w: unknown compression mnemonic %q", ErrCorrupted, id)
		}
	}
	return Tag(raw), nil
}

// Kind returns the serialization kind.
func (t Tag) Kind() Kind {
	if len(t) == 0 {
		return 0
	}
	return Kind(t[0])
}

// Codecs returns the compression codec ids in apply order.
func (t Tag) Codecs() []byte {
	if len(t) < 2 {
		return nil
	}
	return t[1:]
}

// IsCompressed reports whether any compression stage ran.
func (t Tag) IsCompressed() bool {
	return len(t) > 1
}

// String renders the tag for logs, e.g. "struct+zstd".
func (t Tag) String() string {
	s := t.Kind().String()
	for _, id := range t.Codecs() {
		if c, ok := compressorByID(id); ok {
			s += "+" + c.name()
		} else {
			s += fmt.Sprintf("+%#x", id)
		}
	}
	return s
}
