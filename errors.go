package shelf

import (
	"errors"
	"fmt"

	"github.com/aigotowork/shelf/internal/codec"
	"github.com/aigotowork/shelf/internal/core"
)

// Common errors returned by shelf operations.
var (
	// ErrUnsupportedValueType is returned when a value cannot be stored
	// under the current serialization mode.
	ErrUnsupportedValueType = codec.ErrUnsupportedValue

	// ErrUnknownCompressionAlgorithm is returned for an unrecognized compression name.
	ErrUnknownCompressionAlgorithm = codec.ErrUnknownCompression

	// ErrInvalidCompressionLevel is returned for a bad zstd level.
	ErrInvalidCompressionLevel = codec.ErrInvalidLevel

	// ErrCorruptedData is returned when a stored row cannot be decoded.
	ErrCorruptedData = codec.ErrCorrupted

	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = core.ErrClosed

	// ErrKeyNotFound is returned by Rename when a source key is missing.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyAlreadyExists is returned by Rename when a target key is taken.
	ErrKeyAlreadyExists = errors.New("key already exists")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// EngineError wraps a failure reported by the database engine, such as a
// locked database or a full disk.
type EngineError struct {
	Op        string
	Namespace string
	Err       error
}

func (e *EngineError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("shelf: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("shelf: %s %q: %v", e.Op, e.Namespace, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// domainErrors pass through wrapErr unchanged.
var domainErrors = []error{
	ErrUnsupportedValueType,
	ErrUnknownCompressionAlgorithm,
	ErrInvalidCompressionLevel,
	ErrCorruptedData,
	ErrStoreClosed,
	ErrKeyNotFound,
	ErrKeyAlreadyExists,
	ErrInvalidConfig,
}

// wrapErr turns engine failures into *EngineError and leaves domain errors alone.
func wrapErr(op, namespace string, err error) error {
	if err == nil {
		return nil
	}

	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return err
	}
	for _, domain := range domainErrors {
		if errors.Is(err, domain) {
			return err
		}
	}

	return &EngineError{Op: op, Namespace: namespace, Err: err}
}
