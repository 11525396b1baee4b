// Package index maps namespaces to physical tables and tracks which tables exist.
package index

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// Table name prefixes. Neither is a prefix of the other.
const (
	// TablePrefix is used when the namespace can appear verbatim.
	TablePrefix = "kv_"

	// EscapedTablePrefix is followed by the lower-case hex of the namespace bytes.
	EscapedTablePrefix = "kvx_"
)

// TableName returns the table that stores namespace.
//
// Rules:
//   - valid UTF-8, no NUL, no ASCII upper-case -> "kv_" + namespace
//   - anything else                            -> "kvx_" + hex(namespace)
//
// SQLite compares identifiers case-insensitively for ASCII letters, so
// namespaces that differ only in ASCII case must not share the literal form.
//
// Example:
//   - "users"     -> "kv_users"
//   - "my table"  -> "kv_my table"
//   - "Users"     -> "kvx_5573657273"
//   - ""          -> "kv_"
func TableName(namespace string) string {
	if isLiteral(namespace) {
		return TablePrefix + namespace
	}
	return EscapedTablePrefix + hex.EncodeToString([]byte(namespace))
}

// Namespace is the inverse of TableName. It returns false for tables that
// TableName would never produce, so foreign tables in the same file are
// left alone.
func Namespace(table string) (string, bool) {
	var namespace string

	if rest, ok := strings.CutPrefix(table, EscapedTablePrefix); ok {
		raw, err := hex.DecodeString(rest)
		if err != nil {
			return "", false
		}
		namespace = string(raw)
	} else if rest, ok := strings.CutPrefix(table, TablePrefix); ok {
		namespace = rest
	} else {
		return "", false
	}

	// Only canonical forms are managed: rejects upper-case hex and escaped
	// names whose namespace would have been written literally.
	if TableName(namespace) != table {
		return "", false
	}
	return namespace, true
}

// QuoteIdent renders name as a double-quoted SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isLiteral(namespace string) bool {
	if !utf8.ValidString(namespace) {
		return false
	}
	for i := 0; i < len(namespace); i++ {
		c := namespace[i]
		if c == 0 || (c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
