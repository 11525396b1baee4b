// Package core provides the row model and the SQLite plumbing behind a store.
package core

import (
	"database/sql"
	"fmt"
	"time"
)

// KeyKind records whether a key was written as text or as raw bytes.
// The values are persisted in the key_kind column; never renumber them.
type KeyKind int

// Key kinds
const (
	KeyText   KeyKind = 0
	KeyBinary KeyKind = 1
)

// String returns the kind name.
func (k KeyKind) String() string {
	switch k {
	case KeyText:
		return "text"
	case KeyBinary:
		return "binary"
	default:
		return fmt.Sprintf("KeyKind(%d)", int(k))
	}
}

// IsValid reports whether k is a known kind.
func (k KeyKind) IsValid() bool {
	return k == KeyText || k == KeyBinary
}

// NowMillis returns the current time in unix milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// ExpiryAt returns the expires_at_ms value for a row written at nowMs with
// the given ttl. A ttl <= 0 means the row never expires.
func ExpiryAt(nowMs int64, ttl time.Duration) sql.NullInt64 {
	if ttl <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: nowMs + ttl.Milliseconds(), Valid: true}
}
