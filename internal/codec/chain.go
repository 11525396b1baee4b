package codec

import (
	"fmt"
)

// DefaultCompressionThreshold is the smallest serialized size, in bytes,
// that gets compressed when compression is enabled.
const DefaultCompressionThreshold = 1024

// Payload is an encoded value ready for storage.
type Payload struct {
	Tag  Tag
	Data []byte
}

// Chain encodes values with a fixed serialization policy and compression
// setting. It is safe for concurrent use.
type Chain struct {
	marshaler   *Marshaler
	compression Compression
	threshold   int
}

// NewChain creates an encoding chain. A threshold <= 0 compresses every
// value when compression is enabled.
func NewChain(allowObjects bool, compression Compression, threshold int) *Chain {
	return &Chain{
		marshaler:   NewMarshaler(allowObjects),
		compression: compression,
		threshold:   threshold,
	}
}

// Compression returns the configured compression setting.
func (c *Chain) Compression() Compression {
	return c.compression
}

// Encode serializes value and compresses it when the serialized form is at
// least the threshold size.
func (c *Chain) Encode(value any) (Payload, error) {
	data, kind, err := c.marshaler.Marshal(value)
	if err != nil {
		return Payload{}, err
	}

	if !c.compression.Enabled() || len(data) < c.threshold {
		return Payload{Tag: NewTag(kind), Data: data}, nil
	}

	comp := c.compression.compressor()
	packed, err := comp.compress(data)
	if err != nil {
		return Payload{}, err
	}

	return Payload{Tag: NewTag(kind, comp.id()), Data: packed}, nil
}

// Decode reverses the stages recorded in tag and returns the value.
func Decode(tag, data []byte) (any, error) {
	t, raw, err := unwind(tag, data)
	if err != nil {
		return nil, err
	}
	return Unmarshal(t.Kind(), raw)
}

// DecodeInto reverses the stages recorded in tag and decodes into target.
func DecodeInto(tag, data []byte, target any) error {
	t, raw, err := unwind(tag, data)
	if err != nil {
		return err
	}
	return UnmarshalInto(t.Kind(), raw, target)
}

// unwind validates the tag and undoes compression, last stage first.
func unwind(tag, data []byte) (Tag, []byte, error) {
	t, err := ParseTag(tag)
	if err != nil {
		return nil, nil, err
	}

	codecs := t.Codecs()
	for i := len(codecs) - 1; i >= 0; i-- {
		comp, ok := compressorByID(codecs[i])
		if !ok {
			return nil, nil, fmt.Errorf("%w: unknown compression mnemonic %q", ErrCorrupted, codecs[i])
		}
		data, err = comp.decompress(data, MaxDecodedSize)
		if err != nil {
			return nil, nil, err
		}
	}

	return t, data, nil
}
