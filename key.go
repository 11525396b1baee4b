package shelf

import (
	"encoding/hex"
	"iter"
	"maps"

	"github.com/aigotowork/shelf/internal/core"
)

// Key addresses one entry within a namespace. Keys are comparable and can be
// used as map keys.
//
// Key identity in the store is the key bytes: TextKey("a") and
// BinaryKey([]byte("a")) address the same entry. The kind only records how
// the key was written and is reported back by ListKeys.
type Key struct {
	data   string
	binary bool
}

// TextKey returns a text key.
func TextKey(s string) Key {
	return Key{data: s}
}

// BinaryKey returns a binary key holding a copy of b.
func BinaryKey(b []byte) Key {
	return Key{data: string(b), binary: true}
}

// IsBinary reports whether k was created as a binary key.
func (k Key) IsBinary() bool {
	return k.binary
}

// Bytes returns a copy of the key bytes.
func (k Key) Bytes() []byte {
	return []byte(k.data)
}

// String returns the text of a text key, or 0x-prefixed hex for a binary key.
func (k Key) String() string {
	if k.binary {
		return "0x" + hex.EncodeToString([]byte(k.data))
	}
	return k.data
}

func (k Key) bytes() []byte {
	return []byte(k.data)
}

func (k Key) kind() core.KeyKind {
	if k.binary {
		return core.KeyBinary
	}
	return core.KeyText
}

func keyFromEntry(e core.KeyEntry) Key {
	return Key{data: string(e.Key), binary: e.Kind == core.KeyBinary}
}

// ========== Iterator Helpers ==========

// Entries adapts a map to the sequence accepted by SetMany.
func Entries(m map[Key]any) iter.Seq2[Key, any] {
	return maps.All(m)
}

// TextEntries adapts a map with string keys to the sequence accepted by SetMany.
//
// Example:
//
//	n, err := store.SetMany("users", shelf.TextEntries(map[string]any{
//		"alice": 30,
//		"bob":   25,
//	}))
func TextEntries[V any](m map[string]V) iter.Seq2[Key, any] {
	return func(yield func(Key, any) bool) {
		for k, v := range m {
			if !yield(TextKey(k), v) {
				return
			}
		}
	}
}

// Pair is one old-to-new key mapping for Rename.
type Pair struct {
	Old Key
	New Key
}

// Pairs returns the pairs as an ordered rename sequence. Use it when the
// order of application matters.
func Pairs(pairs ...Pair) iter.Seq2[Key, Key] {
	return func(yield func(Key, Key) bool) {
		for _, p := range pairs {
			if !yield(p.Old, p.New) {
				return
			}
		}
	}
}

// TextRenames adapts a map of old to new text keys to a rename sequence.
// Map iteration order is unspecified.
func TextRenames(m map[string]string) iter.Seq2[Key, Key] {
	return func(yield func(Key, Key) bool) {
		for from, to := range m {
			if !yield(TextKey(from), TextKey(to)) {
				return
			}
		}
	}
}
