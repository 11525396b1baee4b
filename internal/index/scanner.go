package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx the scanner needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ScanNamespaces lists every namespace that has a table in the catalog,
// sorted. Tables not produced by TableName are skipped.
func ScanNamespaces(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, fmt.Errorf("failed to scan catalog: %w", err)
	}
	defer rows.Close()

	namespaces := []string{}
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, fmt.Errorf("failed to scan catalog: %w", err)
		}
		if ns, ok := Namespace(table); ok {
			namespaces = append(namespaces, ns)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan catalog: %w", err)
	}

	sort.Strings(namespaces)
	return namespaces, nil
}

// TableExists reports whether the catalog contains table.
func TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up table: %w", err)
	}
	return true, nil
}
