package codec

import "errors"

var (
	// ErrUnsupportedValue is returned when a value cannot be serialized
	// under the current serialization mode.
	ErrUnsupportedValue = errors.New("unsupported value type")

	// ErrUnknownCompression is returned for an unrecognized algorithm name.
	ErrUnknownCompression = errors.New("unknown compression algorithm")

	// ErrInvalidLevel is returned for an out-of-range or non-numeric level.
	ErrInvalidLevel = errors.New("invalid compression level")

	// ErrCorrupted is returned when a stored payload or tag cannot be decoded.
	ErrCorrupted = errors.New("data corrupted")
)
