package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aigotowork/shelf/internal/index"
)

// DB is the statement surface shared by *sql.Conn and *sql.Tx.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// maxBatchParams bounds the number of keys bound into one IN (...) list,
// well under SQLite's host parameter limit.
const maxBatchParams = 500

// liveFilter hides expired rows. It takes the current time in ms.
const liveFilter = "(expires_at_ms IS NULL OR expires_at_ms > ?)"

// KeyEntry is a key as listed from a table.
type KeyEntry struct {
	Key  []byte
	Kind KeyKind
}

// Table issues statements against one namespace table.
type Table struct {
	Namespace string
	Name      string
	quoted    string
}

// NewTable returns the table for namespace. Nothing is created.
func NewTable(namespace string) Table {
	name := index.TableName(namespace)
	return Table{
		Namespace: namespace,
		Name:      name,
		quoted:    index.QuoteIdent(name),
	}
}

// Create creates the table if it does not exist.
func (t Table) Create(ctx context.Context, db DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+t.quoted+` (
		key           BLOB PRIMARY KEY NOT NULL,
		key_kind      INTEGER NOT NULL DEFAULT 0,
		codecs        BLOB NOT NULL,
		value         BLOB NOT NULL,
		created_at_ms INTEGER NOT NULL,
		expires_at_ms INTEGER
	)`)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.quoted, err)
	}
	return nil
}

// Upsert writes r, replacing any row with the same key.
func (t Table) Upsert(ctx context.Context, db DB, r *Record) error {
	if !r.IsValid() {
		return fmt.Errorf("invalid record")
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO `+t.quoted+
			` (key, key_kind, codecs, value, created_at_ms, expires_at_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		blob(r.Key), int(r.KeyKind), blob(r.Codecs), blob(r.Value), r.CreatedAt, r.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

// Get returns the live row for key, or nil if there is none.
func (t Table) Get(ctx context.Context, db DB, key []byte, nowMs int64) (*Record, error) {
	r := &Record{Key: blob(key)}
	var kind int

	err := db.QueryRowContext(ctx,
		`SELECT key_kind, codecs, value, created_at_ms, expires_at_ms FROM `+t.quoted+
			` WHERE key = ? AND `+liveFilter,
		blob(key), nowMs).Scan(&kind, &r.Codecs, &r.Value, &r.CreatedAt, &r.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	r.KeyKind = KeyKind(kind)
	return r, nil
}

// Exists reports whether a live row for key exists.
func (t Table) Exists(ctx context.Context, db DB, key []byte, nowMs int64) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM `+t.quoted+` WHERE key = ? AND `+liveFilter,
		blob(key), nowMs).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check row: %w", err)
	}
	return true, nil
}

// GetMany returns the live rows among keys, indexed by string(key).
func (t Table) GetMany(ctx context.Context, db DB, keys [][]byte, nowMs int64) (map[string]*Record, error) {
	out := make(map[string]*Record, len(keys))

	err := forEachChunk(keys, func(chunk [][]byte) error {
		rows, err := db.QueryContext(ctx,
			`SELECT key, key_kind, codecs, value, created_at_ms, expires_at_ms FROM `+t.quoted+
				` WHERE key IN (`+placeholders(len(chunk))+`) AND `+liveFilter,
			chunkArgs(chunk, nowMs)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			r := &Record{}
			var kind int
			if err := rows.Scan(&r.Key, &kind, &r.Codecs, &r.Value, &r.CreatedAt, &r.ExpiresAt); err != nil {
				return err
			}
			r.Key = blob(r.Key)
			r.KeyKind = KeyKind(kind)
			out[string(r.Key)] = r
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return out, nil
}

// ExistingKeys returns the subset of keys that have live rows, indexed by
// string(key).
func (t Table) ExistingKeys(ctx context.Context, db DB, keys [][]byte, nowMs int64) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(keys))

	err := forEachChunk(keys, func(chunk [][]byte) error {
		rows, err := db.QueryContext(ctx,
			`SELECT key FROM `+t.quoted+` WHERE key IN (`+placeholders(len(chunk))+`) AND `+liveFilter,
			chunkArgs(chunk, nowMs)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var key []byte
			if err := rows.Scan(&key); err != nil {
				return err
			}
			out[string(key)] = struct{}{}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check rows: %w", err)
	}

	return out, nil
}

// Delete removes the live row for key and reports whether there was one.
func (t Table) Delete(ctx context.Context, db DB, key []byte, nowMs int64) (bool, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM `+t.quoted+` WHERE key = ? AND `+liveFilter, blob(key), nowMs)
	if err != nil {
		return false, fmt.Errorf("failed to delete row: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete row: %w", err)
	}
	return n > 0, nil
}

// DeleteMany removes the live rows among keys and returns how many there were.
func (t Table) DeleteMany(ctx context.Context, db DB, keys [][]byte, nowMs int64) (int64, error) {
	var total int64

	err := forEachChunk(keys, func(chunk [][]byte) error {
		res, err := db.ExecContext(ctx,
			`DELETE FROM `+t.quoted+` WHERE key IN (`+placeholders(len(chunk))+`) AND `+liveFilter,
			chunkArgs(chunk, nowMs)...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete rows: %w", err)
	}

	return total, nil
}

// Remove deletes the row for key whether or not it has expired.
func (t Table) Remove(ctx context.Context, db DB, key []byte) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM `+t.quoted+` WHERE key = ?`, blob(key)); err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}
	return nil
}

// Keys lists live keys in key order. A non-empty like is applied as a SQL
// LIKE pattern on the key bytes read as text. The key column holds blobs,
// which a bare LIKE never matches.
func (t Table) Keys(ctx context.Context, db DB, like string, nowMs int64) ([]KeyEntry, error) {
	query := `SELECT key, key_kind FROM ` + t.quoted + ` WHERE ` + liveFilter
	args := []any{nowMs}
	if like != "" {
		query += ` AND CAST(key AS TEXT) LIKE ?`
		args = append(args, like)
	}
	query += ` ORDER BY key`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	entries := []KeyEntry{}
	for rows.Next() {
		var e KeyEntry
		var kind int
		if err := rows.Scan(&e.Key, &kind); err != nil {
			return nil, fmt.Errorf("failed to list keys: %w", err)
		}
		e.Key = blob(e.Key)
		e.Kind = KeyKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	return entries, nil
}

// Move re-keys the row at from. The codec tag, payload and timestamps are
// left untouched. The caller must ensure no row exists at to.
func (t Table) Move(ctx context.Context, db DB, from, to []byte, kind KeyKind) error {
	_, err := db.ExecContext(ctx,
		`UPDATE `+t.quoted+` SET key = ?, key_kind = ? WHERE key = ?`,
		blob(to), int(kind), blob(from))
	if err != nil {
		return fmt.Errorf("failed to move row: %w", err)
	}
	return nil
}

// Count returns the number of live rows.
func (t Table) Count(ctx context.Context, db DB, nowMs int64) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+t.quoted+` WHERE `+liveFilter, nowMs).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

// PurgeExpired deletes every expired row and returns how many there were.
func (t Table) PurgeExpired(ctx context.Context, db DB, nowMs int64) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM `+t.quoted+` WHERE expires_at_ms IS NOT NULL AND expires_at_ms <= ?`, nowMs)
	if err != nil {
		return 0, fmt.Errorf("failed to purge rows: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge rows: %w", err)
	}
	return n, nil
}

// ========== Table Manager ==========

// TableManager creates tables on demand and remembers which exist.
type TableManager struct {
	known *index.Cache
}

// NewTableManager creates a manager with an empty known-table cache.
func NewTableManager() *TableManager {
	return &TableManager{known: index.NewCache()}
}

// Ensure makes sure the table for namespace exists and reports whether this
// call created it. db may be a transaction: the table is not remembered
// until Remember is called, so a rolled back CREATE leaves no stale entry.
func (m *TableManager) Ensure(ctx context.Context, db DB, namespace string) (Table, bool, error) {
	t := NewTable(namespace)
	if m.known.Exists(t.Name) {
		return t, false, nil
	}

	exists, err := index.TableExists(ctx, db, t.Name)
	if err != nil {
		return t, false, err
	}
	if !exists {
		if err := t.Create(ctx, db); err != nil {
			return t, false, err
		}
	}

	return t, !exists, nil
}

// Remember records t as existing. Call it once the statement or transaction
// that ensured t has committed.
func (m *TableManager) Remember(t Table) {
	m.known.Set(t.Name)
}

// Lookup returns the table for namespace if it exists. It never creates one.
func (m *TableManager) Lookup(ctx context.Context, db DB, namespace string) (Table, bool, error) {
	t := NewTable(namespace)
	if m.known.Exists(t.Name) {
		return t, true, nil
	}

	exists, err := index.TableExists(ctx, db, t.Name)
	if err != nil {
		return t, false, err
	}
	if exists {
		m.known.Set(t.Name)
	}
	return t, exists, nil
}

// Known returns the tables recorded so far, sorted.
func (m *TableManager) Known() []string {
	return m.known.Keys()
}

// Reset forgets every recorded table.
func (m *TableManager) Reset() {
	m.known.Clear()
}

// ========== helpers ==========

// blob keeps empty slices from binding as NULL.
func blob(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func chunkArgs(chunk [][]byte, nowMs int64) []any {
	args := make([]any, 0, len(chunk)+1)
	for _, key := range chunk {
		args = append(args, blob(key))
	}
	return append(args, nowMs)
}

func forEachChunk(keys [][]byte, fn func(chunk [][]byte) error) error {
	for start := 0; start < len(keys); start += maxBatchParams {
		end := min(start+maxBatchParams, len(keys))
		if err := fn(keys[start:end]); err != nil {
			return err
		}
	}
	return nil
}
