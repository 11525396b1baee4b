package codec

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression ids persisted in tags.
const (
	idSnappy byte = 's'
	idZstd   byte = 'z'
)

// Zstd level bounds accepted by ParseCompression.
const (
	MinZstdLevel     = 1
	MaxZstdLevel     = 22
	DefaultZstdLevel = 3
)

// MaxDecodedSize bounds the output of a single decompression stage. It sits
// above SQLite's default maximum blob length, so only corrupt rows reach it.
const MaxDecodedSize = 1 << 30

// Algorithm names accepted by ParseCompression.
const (
	AlgorithmNone   = "none"
	AlgorithmSnappy = "snappy"
	AlgorithmZstd   = "zstd"
)

// Compression is a validated compression setting.
// The zero value disables compression.
type Compression struct {
	Algorithm string
	Level     int
}

// ParseCompression parses a compression setting.
//
// Accepted forms:
//   - "" or "none"  -> no compression
//   - "snappy"      -> snappy framed stream
//   - "zstd"        -> zstd at DefaultZstdLevel
//   - "zstd:LEVEL"  -> zstd at LEVEL, 1 <= LEVEL <= 22
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", AlgorithmNone:
		return Compression{}, nil
	case AlgorithmSnappy:
		return Compression{Algorithm: AlgorithmSnappy}, nil
	case AlgorithmZstd:
		return Compression{Algorithm: AlgorithmZstd, Level: DefaultZstdLevel}, nil
	}

	levelStr, ok := strings.CutPrefix(s, AlgorithmZstd+":")
	if !ok {
		return Compression{}, fmt.Errorf("%w: %q (use 'snappy', 'zstd', or 'zstd:LEVEL')", ErrUnknownCompression, s)
	}

	level, err := strconv.Atoi(levelStr)
	if err != nil {
		return Compression{}, fmt.Errorf("%w: zstd level %q is not an integer", ErrInvalidLevel, levelStr)
	}
	if level < MinZstdLevel || level > MaxZstdLevel {
		return Compression{}, fmt.Errorf("%w: zstd level must be between %d and %d, got: %d",
			ErrInvalidLevel, MinZstdLevel, MaxZstdLevel, level)
	}

	return Compression{Algorithm: AlgorithmZstd, Level: level}, nil
}

// Enabled reports whether values are compressed at all.
func (c Compression) Enabled() bool {
	return c.Algorithm != "" && c.Algorithm != AlgorithmNone
}

// String returns the setting in the form ParseCompression accepts.
func (c Compression) String() string {
	switch c.Algorithm {
	case "", AlgorithmNone:
		return AlgorithmNone
	case AlgorithmZstd:
		return fmt.Sprintf("%s:%d", AlgorithmZstd, c.Level)
	default:
		return c.Algorithm
	}
}

func (c Compression) compressor() compressor {
	switch c.Algorithm {
	case AlgorithmSnappy:
		return snappyCompressor{}
	case AlgorithmZstd:
		return zstdCompressor{level: c.Level}
	}
	return nil
}

// compressor is one byte-to-byte stage of the chain.
type compressor interface {
	id() byte
	name() string
	compress(data []byte) ([]byte, error)
	// decompress fails with ErrCorrupted when the output exceeds limit.
	decompress(data []byte, limit int) ([]byte, error)
}

func compressorByID(id byte) (compressor, bool) {
	switch id {
	case idSnappy:
		return snappyCompressor{}, true
	case idZstd:
		// Decoding does not need the level.
		return zstdCompressor{level: DefaultZstdLevel}, true
	}
	return nil, false
}

// ========== snappy ==========

type snappyCompressor struct{}

func (snappyCompressor) id() byte     { return idSnappy }
func (snappyCompressor) name() string { return AlgorithmSnappy }

func (snappyCompressor) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data) / 2)

	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("snappy compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("snappy compression failed: %w", err)
	}

	return buf.Bytes(), nil
}

func (snappyCompressor) decompress(data []byte, limit int) ([]byte, error) {
	r := io.LimitReader(snappy.NewReader(bytes.NewReader(data)), int64(limit)+1)
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: snappy: %v", ErrCorrupted, err)
	}
	if len(out) > limit {
		return nil, fmt.Errorf("%w: snappy: output exceeds %d bytes", ErrCorrupted, limit)
	}
	return out, nil
}

// ========== zstd ==========

var (
	// level -> *zstd.Encoder; EncodeAll is safe for concurrent use.
	zstdEncoders sync.Map

	zstdDecoderOnce sync.Once
	zstdDecoder     *zstd.Decoder
	zstdDecoderErr  error
)

type zstdCompressor struct {
	level int
}

func (zstdCompressor) id() byte     { return idZstd }
func (zstdCompressor) name() string { return AlgorithmZstd }

func (z zstdCompressor) compress(data []byte) ([]byte, error) {
	enc, err := zstdEncoder(z.level)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

func (zstdCompressor) decompress(data []byte, limit int) ([]byte, error) {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, zstdDecoderErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecodedSize))
	})
	if zstdDecoderErr != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", zstdDecoderErr)
	}

	// Reject declared sizes before allocating anything.
	var header zstd.Header
	if err := header.Decode(data); err == nil && header.HasFCS && header.FrameContentSize > uint64(limit) {
		return nil, fmt.Errorf("%w: zstd: frame declares %d bytes, limit is %d",
			ErrCorrupted, header.FrameContentSize, limit)
	}

	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupted, err)
	}
	if len(out) > limit {
		return nil, fmt.Errorf("%w: zstd: output exceeds %d bytes", ErrCorrupted, limit)
	}
	return out, nil
}

func zstdEncoder(level int) (*zstd.Encoder, error) {
	if enc, ok := zstdEncoders.Load(level); ok {
		return enc.(*zstd.Encoder), nil
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	actual, loaded := zstdEncoders.LoadOrStore(level, enc)
	if loaded {
		// Another goroutine won the race.
		enc.Close()
	}
	return actual.(*zstd.Encoder), nil
}
