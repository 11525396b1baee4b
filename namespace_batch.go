package shelf

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"iter"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/aigotowork/shelf/internal/codec"
	"github.com/aigotowork/shelf/internal/core"
)

// ========== Batch Reads ==========

// GetMany returns the present keys among keys. Every caller key whose bytes
// match a stored row gets an entry.
func (s *store) GetMany(ns string, keys []Key) (map[Key]any, error) {
	out := make(map[Key]any, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var rows map[string]*core.Record
	err := s.read("get many", ns, func(ctx context.Context, conn *sql.Conn, t core.Table) error {
		var err error
		rows, err = t.GetMany(ctx, conn, uniqueBytes(keys), core.NowMillis())
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		rec, ok := rows[key.data]
		if !ok {
			continue
		}
		value, err := codec.Decode(rec.Codecs, rec.Value)
		if err != nil {
			return nil, decodeErr(ns, key, err)
		}
		out[key] = value
	}

	return out, nil
}

// HasMany returns the subset of keys that are present.
func (s *store) HasMany(ns string, keys []Key) (map[Key]struct{}, error) {
	out := make(map[Key]struct{}, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var existing map[string]struct{}
	err := s.read("has many", ns, func(ctx context.Context, conn *sql.Conn, t core.Table) error {
		var err error
		existing, err = t.ExistingKeys(ctx, conn, uniqueBytes(keys), core.NowMillis())
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if _, ok := existing[key.data]; ok {
			out[key] = struct{}{}
		}
	}

	return out, nil
}

// ========== Batch Writes ==========

// SetMany encodes every entry and writes them in one transaction. Entries
// are applied in sequence order, so a repeated key keeps its last value.
// Nothing is written, and no table is created, when entries is empty or any
// value fails to encode.
func (s *store) SetMany(ns string, entries iter.Seq2[Key, any], opts ...SetOption) (int, error) {
	options := applySetOptions(opts)

	var keys []Key
	var values []any
	for key, value := range entries {
		keys = append(keys, key)
		values = append(values, value)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	records, err := s.encodeAll(keys, values, options)
	if err != nil {
		return 0, err
	}

	err = s.write("set many", ns, func(ctx context.Context, tx *sql.Tx, t core.Table) error {
		for _, rec := range records {
			if err := t.Upsert(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(records), nil
}

// DeleteMany removes keys in one transaction and returns how many were present.
func (s *store) DeleteMany(ns string, keys []Key) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	deleted := 0
	err := s.mutate("delete many", ns, func(ctx context.Context, tx *sql.Tx, t core.Table, exists bool) error {
		if !exists {
			return nil
		}
		n, err := t.DeleteMany(ctx, tx, uniqueBytes(keys), core.NowMillis())
		deleted = int(n)
		return err
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

// Rename moves values between keys in one transaction, pair by pair.
//
// For each pair:
//   - old == new counts as renamed and changes nothing
//   - a missing old key fails with ErrKeyNotFound, or is skipped when
//     MustExist(false)
//   - an existing new key fails with ErrKeyAlreadyExists, or is replaced
//     when Overwrite(true)
//
// Any failure rolls back every pair. The moved row keeps its codec tag,
// payload, timestamps and expiry. Returns the number of pairs renamed.
func (s *store) Rename(ns string, pairs iter.Seq2[Key, Key], opts ...RenameOption) (int, error) {
	options := defaultRenameOptions()
	for _, opt := range opts {
		opt(&options)
	}

	var list []Pair
	for from, to := range pairs {
		list = append(list, Pair{Old: from, New: to})
	}
	if len(list) == 0 {
		return 0, nil
	}

	renamed := 0
	err := s.mutate("rename", ns, func(ctx context.Context, tx *sql.Tx, t core.Table, exists bool) error {
		if !exists {
			if options.mustExist {
				return keyNotFound(ns, list[0].Old)
			}
			return nil
		}

		now := core.NowMillis()
		for _, p := range list {
			from, to := p.Old.bytes(), p.New.bytes()
			if bytes.Equal(from, to) {
				renamed++
				continue
			}

			found, err := t.Exists(ctx, tx, from, now)
			if err != nil {
				return err
			}
			if !found {
				if options.mustExist {
					return keyNotFound(ns, p.Old)
				}
				continue
			}

			taken, err := t.Exists(ctx, tx, to, now)
			if err != nil {
				return err
			}
			if taken && !options.overwrite {
				return fmt.Errorf("%w: key %s already exists in namespace %q", ErrKeyAlreadyExists, p.New, ns)
			}

			// Also clears an expired row still holding the target key.
			if err := t.Remove(ctx, tx, to); err != nil {
				return err
			}
			if err := t.Move(ctx, tx, from, to, p.New.kind()); err != nil {
				return err
			}
			renamed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return renamed, nil
}

// ========== helpers ==========

func keyNotFound(ns string, key Key) error {
	return fmt.Errorf("%w: key %s does not exist in namespace %q", ErrKeyNotFound, key, ns)
}

// encodeAll runs the codec chain over a batch, spreading the work over
// GOMAXPROCS goroutines. Records come back in input order.
func (s *store) encodeAll(keys []Key, values []any, options *setOptions) ([]*core.Record, error) {
	records := make([]*core.Record, len(keys))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range keys {
		g.Go(func() error {
			rec, err := s.encode(keys[i], values[i], options)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// uniqueBytes returns the distinct key byte strings in first-seen order.
func uniqueBytes(keys []Key) [][]byte {
	seen := make(map[string]struct{}, len(keys))
	out := make([][]byte, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key.data]; ok {
			continue
		}
		seen[key.data] = struct{}{}
		out = append(out, key.bytes())
	}
	return out
}
