package core

import (
	"database/sql"
	"time"
)

// Record is one row of a namespace table.
//
// Columns:
//
//	key            BLOB PRIMARY KEY  key bytes (text keys as UTF-8)
//	key_kind       INTEGER           KeyText or KeyBinary
//	codecs         BLOB              codec tag
//	value          BLOB              encoded payload
//	created_at_ms  INTEGER           write time
//	expires_at_ms  INTEGER NULL      expiry, NULL for never
type Record struct {
	Key       []byte
	KeyKind   KeyKind
	Codecs    []byte
	Value     []byte
	CreatedAt int64
	ExpiresAt sql.NullInt64
}

// NewRecord creates a record stamped with the current time.
func NewRecord(key []byte, kind KeyKind, codecs, value []byte, ttl time.Duration) *Record {
	now := NowMillis()
	return &Record{
		Key:       key,
		KeyKind:   kind,
		Codecs:    codecs,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: ExpiryAt(now, ttl),
	}
}

// IsValid checks that the record can be written.
func (r *Record) IsValid() bool {
	if r == nil {
		return false
	}

	if !r.KeyKind.IsValid() {
		return false
	}

	// Every payload carries at least a serialization kind
	return len(r.Codecs) > 0
}
