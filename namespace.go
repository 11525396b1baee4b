package shelf

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/aigotowork/shelf/internal/codec"
	"github.com/aigotowork/shelf/internal/core"
)

// ========== Single-key Operations ==========

// fetch returns the live record for key, or nil.
func (s *store) fetch(op, ns string, key Key) (*core.Record, error) {
	var rec *core.Record
	err := s.read(op, ns, func(ctx context.Context, conn *sql.Conn, t core.Table) error {
		var err error
		rec, err = t.Get(ctx, conn, key.bytes(), core.NowMillis())
		return err
	})
	return rec, err
}

// Get returns the decoded value stored under key.
func (s *store) Get(ns string, key Key) (any, bool, error) {
	rec, err := s.fetch("get", ns, key)
	if err != nil || rec == nil {
		return nil, false, err
	}

	value, err := codec.Decode(rec.Codecs, rec.Value)
	if err != nil {
		return nil, false, decodeErr(ns, key, err)
	}
	return value, true, nil
}

// GetInto decodes the value stored under key into target.
func (s *store) GetInto(ns string, key Key, target any) (bool, error) {
	rec, err := s.fetch("get", ns, key)
	if err != nil || rec == nil {
		return false, err
	}

	if err := codec.DecodeInto(rec.Codecs, rec.Value, target); err != nil {
		return false, decodeErr(ns, key, err)
	}
	return true, nil
}

// Set encodes value and stores it under key.
func (s *store) Set(ns string, key Key, value any, opts ...SetOption) error {
	options := applySetOptions(opts)

	rec, err := s.encode(key, value, options)
	if err != nil {
		return err
	}

	return s.write("set", ns, func(ctx context.Context, tx *sql.Tx, t core.Table) error {
		return t.Upsert(ctx, tx, rec)
	})
}

// Has reports whether key is present, without decoding it.
func (s *store) Has(ns string, key Key) (bool, error) {
	found := false
	err := s.read("has", ns, func(ctx context.Context, conn *sql.Conn, t core.Table) error {
		var err error
		found, err = t.Exists(ctx, conn, key.bytes(), core.NowMillis())
		return err
	})
	return found, err
}

// Delete removes key and reports whether it was present.
func (s *store) Delete(ns string, key Key) (bool, error) {
	deleted := false
	err := s.read("delete", ns, func(ctx context.Context, conn *sql.Conn, t core.Table) error {
		var err error
		deleted, err = t.Delete(ctx, conn, key.bytes(), core.NowMillis())
		return err
	})
	return deleted, err
}

// ListKeys returns the live keys of ns in byte order.
func (s *store) ListKeys(ns string, opts ...ListOption) ([]Key, error) {
	options := &listOptions{}
	for _, opt := range opts {
		opt(options)
	}

	keys := []Key{}
	err := s.read("list keys", ns, func(ctx context.Context, conn *sql.Conn, t core.Table) error {
		entries, err := t.Keys(ctx, conn, options.like, core.NowMillis())
		if err != nil {
			return err
		}
		for _, e := range entries {
			keys = append(keys, keyFromEntry(e))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Stats returns statistics for ns. An absent namespace has zero keys.
func (s *store) Stats(ns string) (NamespaceStats, error) {
	stats := NamespaceStats{
		Namespace: ns,
		Table:     core.NewTable(ns).Name,
	}

	err := s.read("stats", ns, func(ctx context.Context, conn *sql.Conn, t core.Table) error {
		n, err := t.Count(ctx, conn, core.NowMillis())
		stats.KeyCount = int(n)
		return err
	})
	if err != nil {
		return NamespaceStats{}, err
	}
	return stats, nil
}

// ========== helpers ==========

func applySetOptions(opts []SetOption) *setOptions {
	options := &setOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// encode runs the codec chain for one entry. It does not touch the database.
func (s *store) encode(key Key, value any, options *setOptions) (*core.Record, error) {
	payload, err := s.chain.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("key %s: %w", key, err)
	}
	return core.NewRecord(key.bytes(), key.kind(), payload.Tag, payload.Data, options.ttl), nil
}

func decodeErr(ns string, key Key, err error) error {
	return fmt.Errorf("failed to decode key %s in namespace %q: %w", key, ns, err)
}

// ========== Namespace View ==========

// namespace implements the Namespace interface.
type namespace struct {
	store *store
	name  string
}

func (n *namespace) Get(key Key) (any, bool, error) {
	return n.store.Get(n.name, key)
}

func (n *namespace) GetInto(key Key, target any) (bool, error) {
	return n.store.GetInto(n.name, key, target)
}

func (n *namespace) Set(key Key, value any, opts ...SetOption) error {
	return n.store.Set(n.name, key, value, opts...)
}

func (n *namespace) Has(key Key) (bool, error) {
	return n.store.Has(n.name, key)
}

func (n *namespace) Delete(key Key) (bool, error) {
	return n.store.Delete(n.name, key)
}

func (n *namespace) ListKeys(opts ...ListOption) ([]Key, error) {
	return n.store.ListKeys(n.name, opts...)
}

func (n *namespace) GetMany(keys []Key) (map[Key]any, error) {
	return n.store.GetMany(n.name, keys)
}

func (n *namespace) SetMany(entries iter.Seq2[Key, any], opts ...SetOption) (int, error) {
	return n.store.SetMany(n.name, entries, opts...)
}

func (n *namespace) HasMany(keys []Key) (map[Key]struct{}, error) {
	return n.store.HasMany(n.name, keys)
}

func (n *namespace) DeleteMany(keys []Key) (int, error) {
	return n.store.DeleteMany(n.name, keys)
}

func (n *namespace) Rename(pairs iter.Seq2[Key, Key], opts ...RenameOption) (int, error) {
	return n.store.Rename(n.name, pairs, opts...)
}

func (n *namespace) Stats() (NamespaceStats, error) {
	return n.store.Stats(n.name)
}

// Name returns the namespace name.
func (n *namespace) Name() string {
	return n.name
}
