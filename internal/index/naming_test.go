package index

import (
	"strings"
	"testing"
)

var adversarialNamespaces = []string{
	"gallery-html-raw",
	"namespace-with-hyphens",
	"namespace with spaces",
	"namespace.with.dots",
	"namespace@with@symbols",
	"namespace/with/slashes",
	"namespace\\with\\backslashes",
	"namespace(with)parens",
	"namespace[with]brackets",
	"namespace{with}braces",
	"namespace:with:colons",
	"namespace;with;semicolons",
	"namespace,with,commas",
	"namespace'with'quotes",
	"namespace`with`backticks",
	"namespace|with|pipes",
	"namespace<with>angles",
	"namespace+with+plus",
	"namespace=with=equals",
	"namespace%with%percent",
	"namespace&with&ampersand",
	"namespace*with*stars",
	"namespace#with#hash",
	"namespace!with!exclamation",
	"namespace?with?question",
	"namespace~with~tilde",
	"namespace^with^caret",
	"123numeric_start",
	"---...@@@",
	"namespace_with_ünïcödé_characters",
	`double"quote`,
	"",
	"select",
	"table",
	"drop",
	"Users",
	"users",
	"USERS",
	"nul\x00byte",
	"bad\xffutf8",
	"x_looks_escaped",
	"kvx_",
}

// ========== TableName Tests ==========

func TestTableName(t *testing.T) {
	tests := []struct {
		namespace string
		expected  string
	}{
		{"users", "kv_users"},
		{"my table", "kv_my table"},
		{"", "kv_"},
		{`a"b`, `kv_a"b`},
		{"ünï", "kv_ünï"},
		{"Users", "kvx_5573657273"},
		{"a\x00", "kvx_6100"},
		{"\xff", "kvx_ff"},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			if got := TableName(tt.namespace); got != tt.expected {
				t.Errorf("TableName(%q) = %q, want %q", tt.namespace, got, tt.expected)
			}
		})
	}
}

func TestTableNameRoundTrip(t *testing.T) {
	for _, ns := range adversarialNamespaces {
		table := TableName(ns)
		back, ok := Namespace(table)
		if !ok {
			t.Errorf("Namespace(%q) not recognized (from %q)", table, ns)
			continue
		}
		if back != ns {
			t.Errorf("Round trip mismatch: %q -> %q -> %q", ns, table, back)
		}
	}
}

func TestTableNameCaseInsensitiveUnique(t *testing.T) {
	// SQLite folds ASCII case in identifiers, so distinct namespaces must
	// map to table names that stay distinct after folding.
	seen := make(map[string]string)
	for _, ns := range adversarialNamespaces {
		folded := strings.ToLower(TableName(ns))
		if prev, ok := seen[folded]; ok {
			t.Errorf("Namespaces %q and %q collide as %q", prev, ns, folded)
		}
		seen[folded] = ns
	}
}

// ========== Namespace Tests ==========

func TestNamespaceRejectsUnmanaged(t *testing.T) {
	tests := []string{
		"sqlite_sequence",
		"users",
		"kv",
		"kvx_zz",
		"kvx_abc",
		"kvx_5A",
		"kvx_61",
		"kv_Users",
		"tl_ns",
	}

	for _, table := range tests {
		t.Run(table, func(t *testing.T) {
			if ns, ok := Namespace(table); ok {
				t.Errorf("Namespace(%q) = %q, want unmanaged", table, ns)
			}
		})
	}
}

// ========== QuoteIdent Tests ==========

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"kv_users", `"kv_users"`},
		{`kv_a"b`, `"kv_a""b"`},
		{`kv_""`, `"kv_"""""`},
		{"kv_", `"kv_"`},
	}

	for _, tt := range tests {
		if got := QuoteIdent(tt.name); got != tt.expected {
			t.Errorf("QuoteIdent(%q) = %s, want %s", tt.name, got, tt.expected)
		}
	}
}
