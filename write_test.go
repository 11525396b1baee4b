package shelf

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aigotowork/shelf/internal/core"
)

func TestFailedFirstWriteLeavesNoNamespace(t *testing.T) {
	st, err := openStore(filepath.Join(t.TempDir(), "write.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()
	s := st.(*store)

	failed := errors.New("upsert failed")
	err = s.write("set", "doomed", func(ctx context.Context, tx *sql.Tx, t core.Table) error {
		if err := t.Upsert(ctx, tx, core.NewRecord([]byte("k"), core.KeyText, []byte("U"), []byte("v"), 0)); err != nil {
			return err
		}
		return failed
	})
	if !errors.Is(err, failed) {
		t.Fatalf("write error = %v, want %v", err, failed)
	}

	names, err := s.ListNamespaces()
	if err != nil {
		t.Fatalf("ListNamespaces failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("ListNamespaces = %q, want none after a rolled back write", names)
	}
	if len(s.tables.Known()) != 0 {
		t.Errorf("Known tables = %v, want none", s.tables.Known())
	}

	// The namespace still works once a write succeeds.
	if err := s.Set("doomed", TextKey("k"), "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	names, err = s.ListNamespaces()
	if err != nil || len(names) != 1 || names[0] != "doomed" {
		t.Errorf("ListNamespaces = %q, %v; want [doomed]", names, err)
	}
}
