/*
Package shelf provides an embedded, namespaced key-value store on top of a
single SQLite file.

Every namespace is an ordinary table, so a shelf file stays readable with any
SQLite client. Keys are text or raw bytes; values are encoded by a small codec
chain (text, bytes, canonical JSON, or CBOR objects, optionally compressed with
snappy or zstd) whose stages are recorded next to each row.

Quick Start:

	store := shelf.MustOpen("/data/app.db", shelf.WithCompression("zstd"))
	defer store.Close()

	users := store.Namespace("users")

	users.Set(shelf.TextKey("alice"), map[string]any{"age": 30})

	v, ok, err := users.Get(shelf.TextKey("alice"))

	n, err := users.Rename(shelf.TextRenames(map[string]string{"alice": "alicia"}))

Features:

- Arbitrary namespace names, including reserved words, quotes and Unicode
- Text and binary keys
- Atomic batch writes, deletes and renames
- Optional per-row expiry
- Goroutine-safe access through a single connection
*/
package shelf

import (
	"iter"

	"github.com/aigotowork/shelf/internal/codec"
)

// Store is a handle to one shelf file.
//
// All methods are safe for concurrent use. Reads of a namespace that was
// never written behave as reads of an empty namespace.
type Store interface {
	// ========== Single-key Operations ==========

	// Get returns the value stored under key and whether it was present.
	Get(namespace string, key Key) (any, bool, error)

	// GetInto decodes the value stored under key into target, which must be
	// a non-nil pointer. It reports whether the key was present.
	GetInto(namespace string, key Key, target any) (bool, error)

	// Set stores value under key, creating the namespace if needed.
	Set(namespace string, key Key, value any, opts ...SetOption) error

	// Has reports whether key is present.
	Has(namespace string, key Key) (bool, error)

	// Delete removes key and reports whether it was present.
	Delete(namespace string, key Key) (bool, error)

	// ========== Enumeration ==========

	// ListKeys returns the keys of a namespace in byte order, each with the
	// kind it was written with.
	ListKeys(namespace string, opts ...ListOption) ([]Key, error)

	// ListNamespaces returns every namespace in the file, sorted.
	ListNamespaces() ([]string, error)

	// ========== Batch Operations ==========

	// GetMany returns the present keys among keys, mapped by the caller's key.
	GetMany(namespace string, keys []Key) (map[Key]any, error)

	// SetMany stores every entry in one transaction and returns how many were written.
	SetMany(namespace string, entries iter.Seq2[Key, any], opts ...SetOption) (int, error)

	// HasMany returns the subset of keys that are present.
	HasMany(namespace string, keys []Key) (map[Key]struct{}, error)

	// DeleteMany removes keys in one transaction and returns how many were present.
	DeleteMany(namespace string, keys []Key) (int, error)

	// Rename moves values from old to new keys in one transaction.
	// See RenameOption for the conflict policy.
	Rename(namespace string, pairs iter.Seq2[Key, Key], opts ...RenameOption) (int, error)

	// ========== Maintenance ==========

	// PurgeExpired deletes expired rows in every namespace and returns the count.
	PurgeExpired() (int, error)

	// Stats returns statistics for a namespace.
	Stats(namespace string) (NamespaceStats, error)

	// Namespace returns a view bound to one namespace.
	Namespace(name string) Namespace

	// Path returns the resolved database path.
	Path() string

	// Config returns the configuration the store was opened with.
	Config() Config

	// Close releases the database. Later calls return ErrStoreClosed.
	// Closing twice is a no-op.
	Close() error
}

// Namespace is a Store view bound to one namespace.
type Namespace interface {
	Get(key Key) (any, bool, error)
	GetInto(key Key, target any) (bool, error)
	Set(key Key, value any, opts ...SetOption) error
	Has(key Key) (bool, error)
	Delete(key Key) (bool, error)
	ListKeys(opts ...ListOption) ([]Key, error)
	GetMany(keys []Key) (map[Key]any, error)
	SetMany(entries iter.Seq2[Key, any], opts ...SetOption) (int, error)
	HasMany(keys []Key) (map[Key]struct{}, error)
	DeleteMany(keys []Key) (int, error)
	Rename(pairs iter.Seq2[Key, Key], opts ...RenameOption) (int, error)
	Stats() (NamespaceStats, error)

	// Name returns the namespace name.
	Name() string
}

// Open opens or creates the shelf file at path.
//
// Configuration is validated before the file is touched, so an invalid
// compression setting never creates an empty database.
//
// Example:
//
//	store, err := shelf.Open("app.db", shelf.WithCompression("zstd:9"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
func Open(path string, opts ...Option) (Store, error) {
	return openStore(path, opts...)
}

// MustOpen is like Open but panics on error.
func MustOpen(path string, opts ...Option) Store {
	store, err := Open(path, opts...)
	if err != nil {
		panic(err)
	}
	return store
}

// RegisterObjectType registers the Go type of sample under a CBOR tag number
// so OBJECT values of that type decode back into it. The registry is
// process-wide; register types once, before opening stores that read them.
//
// Example:
//
//	type Point struct{ X, Y int }
//
//	func init() {
//		if err := shelf.RegisterObjectType(60001, Point{}); err != nil {
//			panic(err)
//		}
//	}
func RegisterObjectType(tag uint64, sample any) error {
	return codec.RegisterType(tag, sample)
}
