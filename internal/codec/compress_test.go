package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// ========== ParseCompression Tests ==========

func TestParseCompression(t *testing.T) {
	tests := []struct {
		input    string
		expected Compression
	}{
		{"", Compression{}},
		{"none", Compression{}},
		{"snappy", Compression{Algorithm: AlgorithmSnappy}},
		{"zstd", Compression{Algorithm: AlgorithmZstd, Level: DefaultZstdLevel}},
		{"zstd:1", Compression{Algorithm: AlgorithmZstd, Level: 1}},
		{"zstd:22", Compression{Algorithm: AlgorithmZstd, Level: 22}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, err := ParseCompression(tt.input)
			if err != nil {
				t.Fatalf("ParseCompression(%q) failed: %v", tt.input, err)
			}
			if c != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, c)
			}
		})
	}
}

func TestParseCompressionErrors(t *testing.T) {
	tests := []struct {
		input   string
		target  error
		message string
	}{
		{"lz4", ErrUnknownCompression, "use 'snappy', 'zstd', or 'zstd:LEVEL'"},
		{"gzip", ErrUnknownCompression, "gzip"},
		{"zstd:0", ErrInvalidLevel, "between 1 and 22, got: 0"},
		{"zstd:23", ErrInvalidLevel, "between 1 and 22, got: 23"},
		{"zstd:-1", ErrInvalidLevel, "got: -1"},
		{"zstd:abc", ErrInvalidLevel, "not an integer"},
		{"zstd:", ErrInvalidLevel, "not an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseCompression(tt.input)
			if err == nil {
				t.Fatalf("Expected error for %q", tt.input)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Expected message to contain %q, got %q", tt.message, err.Error())
			}
		})
	}
}

func TestCompressionString(t *testing.T) {
	tests := map[string]string{
		"":        "none",
		"snappy":  "snappy",
		"zstd":    "zstd:3",
		"zstd:19": "zstd:19",
	}

	for input, expected := range tests {
		c, err := ParseCompression(input)
		if err != nil {
			t.Fatalf("ParseCompression(%q) failed: %v", input, err)
		}
		if c.String() != expected {
			t.Errorf("%q: expected %q, got %q", input, expected, c.String())
		}
		if (input != "") != c.Enabled() {
			t.Errorf("%q: unexpected Enabled() = %v", input, c.Enabled())
		}
	}
}

// ========== Compressor Tests ==========

func TestCompressorRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("shelf compresses repetitive payloads "), 200)

	for _, comp := range []compressor{
		snappyCompressor{},
		zstdCompressor{level: 1},
		zstdCompressor{level: DefaultZstdLevel},
		zstdCompressor{level: 19},
	} {
		t.Run(comp.name(), func(t *testing.T) {
			packed, err := comp.compress(data)
			if err != nil {
				t.Fatalf("compress failed: %v", err)
			}
			if len(packed) >= len(data) {
				t.Errorf("Expected compressed size < %d, got %d", len(data), len(packed))
			}

			unpacked, err := comp.decompress(packed, MaxDecodedSize)
			if err != nil {
				t.Fatalf("decompress failed: %v", err)
			}
			if !bytes.Equal(unpacked, data) {
				t.Error("Round trip mismatch")
			}
		})
	}
}

func TestDecompressGarbage(t *testing.T) {
	garbage := []byte("definitely not a compressed stream")

	for _, comp := range []compressor{snappyCompressor{}, zstdCompressor{}} {
		t.Run(comp.name(), func(t *testing.T) {
			_, err := comp.decompress(garbage, MaxDecodedSize)
			if !errors.Is(err, ErrCorrupted) {
				t.Errorf("Expected ErrCorrupted, got %v", err)
			}
		})
	}
}

func TestDecompressOutputLimit(t *testing.T) {
	data := bytes.Repeat([]byte{0}, 64*1024)

	for _, comp := range []compressor{snappyCompressor{}, zstdCompressor{level: DefaultZstdLevel}} {
		t.Run(comp.name(), func(t *testing.T) {
			packed, err := comp.compress(data)
			if err != nil {
				t.Fatalf("compress failed: %v", err)
			}

			if _, err := comp.decompress(packed, len(data)-1); !errors.Is(err, ErrCorrupted) {
				t.Errorf("Expected ErrCorrupted above the limit, got %v", err)
			}

			out, err := comp.decompress(packed, len(data))
			if err != nil {
				t.Fatalf("decompress at the exact limit failed: %v", err)
			}
			if len(out) != len(data) {
				t.Errorf("Expected %d bytes, got %d", len(data), len(out))
			}
		})
	}
}

func TestCompressorByID(t *testing.T) {
	if c, ok := compressorByID('s'); !ok || c.name() != AlgorithmSnappy {
		t.Error("'s' should resolve to snappy")
	}
	if c, ok := compressorByID('z'); !ok || c.name() != AlgorithmZstd {
		t.Error("'z' should resolve to zstd")
	}
	if _, ok := compressorByID('g'); ok {
		t.Error("'g' should not resolve")
	}
}
