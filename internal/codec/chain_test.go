package codec

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// ========== Chain Tests ==========

func mustParseCompression(t *testing.T, s string) Compression {
	t.Helper()
	c, err := ParseCompression(s)
	if err != nil {
		t.Fatalf("ParseCompression(%q) failed: %v", s, err)
	}
	return c
}

func TestChainBelowThreshold(t *testing.T) {
	chain := NewChain(false, mustParseCompression(t, "zstd"), DefaultCompressionThreshold)

	p, err := chain.Encode("short")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(p.Tag) != "U" {
		t.Errorf("Expected uncompressed tag 'U', got %q", string(p.Tag))
	}
	if string(p.Data) != "short" {
		t.Errorf("Expected raw data, got %q", string(p.Data))
	}
}

func TestChainCompressesLargeValues(t *testing.T) {
	large := strings.Repeat("abcdefgh", 512)

	tests := []struct {
		compression string
		tag         string
	}{
		{"snappy", "Us"},
		{"zstd", "Uz"},
		{"zstd:19", "Uz"},
	}

	for _, tt := range tests {
		t.Run(tt.compression, func(t *testing.T) {
			chain := NewChain(false, mustParseCompression(t, tt.compression), DefaultCompressionThreshold)

			p, err := chain.Encode(large)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if string(p.Tag) != tt.tag {
				t.Errorf("Expected tag %q, got %q", tt.tag, string(p.Tag))
			}
			if len(p.Data) >= len(large) {
				t.Errorf("Expected compressed data, got %d bytes", len(p.Data))
			}

			v, err := Decode(p.Tag, p.Data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if v != large {
				t.Error("Round trip mismatch")
			}
		})
	}
}

func TestChainThresholdBoundary(t *testing.T) {
	chain := NewChain(false, mustParseCompression(t, "snappy"), 16)

	below, _ := chain.Encode(strings.Repeat("x", 15))
	if below.Tag.IsCompressed() {
		t.Error("15 bytes should stay uncompressed")
	}

	at, _ := chain.Encode(strings.Repeat("x", 16))
	if !at.Tag.IsCompressed() {
		t.Error("16 bytes should be compressed")
	}
}

func TestChainWithoutCompression(t *testing.T) {
	chain := NewChain(false, Compression{}, 0)

	p, err := chain.Encode(strings.Repeat("y", 4096))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if p.Tag.IsCompressed() {
		t.Error("Disabled compression should never compress")
	}
}

func TestChainStructRoundTrip(t *testing.T) {
	chain := NewChain(false, mustParseCompression(t, "zstd"), 0)

	value := map[string]any{
		"name":  "shelf",
		"count": 3,
		"ratio": 0.5,
		"tags":  []string{"a", "b"},
	}

	p, err := chain.Encode(value)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(p.Tag) != "Jz" {
		t.Errorf("Expected tag 'Jz', got %q", string(p.Tag))
	}

	v, err := Decode(p.Tag, p.Data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	expected := map[string]any{
		"name":  "shelf",
		"count": int64(3),
		"ratio": 0.5,
		"tags":  []any{"a", "b"},
	}
	if !reflect.DeepEqual(v, expected) {
		t.Errorf("Expected %#v, got %#v", expected, v)
	}

	var typed struct {
		Name  string   `json:"name"`
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
	}
	if err := DecodeInto(p.Tag, p.Data, &typed); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}
	if typed.Name != "shelf" || typed.Count != 3 || len(typed.Tags) != 2 {
		t.Errorf("Unexpected typed result: %+v", typed)
	}
}

func TestChainObjectsDisabled(t *testing.T) {
	strict := NewChain(false, Compression{}, 0)
	if _, err := strict.Encode(testPoint{X: 1, Y: 2}); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("Expected ErrUnsupportedValue, got %v", err)
	}

	permissive := NewChain(true, Compression{}, 0)
	p, err := permissive.Encode(testPoint{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Decoding is not gated by the write policy.
	v, err := Decode(p.Tag, p.Data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if v != (testPoint{X: 1, Y: 2}) {
		t.Errorf("Unexpected value %#v", v)
	}
}

func TestDecodeCorrupted(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		data string
	}{
		{"empty tag", "", "x"},
		{"unknown kind", "Q", "x"},
		{"unknown compressor", "Ux", "x"},
		{"bad snappy", "Us", "not snappy"},
		{"bad zstd", "Bz", "not zstd"},
		{"bad struct", "J", "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.tag), []byte(tt.data))
			if !errors.Is(err, ErrCorrupted) {
				t.Errorf("Expected ErrCorrupted, got %v", err)
			}
		})
	}
}
