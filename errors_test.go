package shelf

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestWrapErr(t *testing.T) {
	if wrapErr("get", "ns", nil) != nil {
		t.Error("wrapErr(nil) should be nil")
	}

	// Domain errors pass through untouched.
	domain := fmt.Errorf("%w: key a does not exist", ErrKeyNotFound)
	if got := wrapErr("rename", "ns", domain); got != domain {
		t.Errorf("wrapErr changed a domain error: %v", got)
	}

	engine := errors.New("database is locked")
	wrapped := wrapErr("set", "users", engine)

	var engineErr *EngineError
	if !errors.As(wrapped, &engineErr) {
		t.Fatalf("wrapErr should produce *EngineError, got %T", wrapped)
	}
	if engineErr.Op != "set" || engineErr.Namespace != "users" {
		t.Errorf("EngineError = %+v", engineErr)
	}
	if !errors.Is(wrapped, engine) {
		t.Error("EngineError should unwrap to the cause")
	}
	if wrapped.Error() != `shelf: set "users": database is locked` {
		t.Errorf("Error() = %q", wrapped.Error())
	}

	// Already wrapped errors are not wrapped twice.
	if again := wrapErr("get", "other", wrapped); again != wrapped {
		t.Errorf("wrapErr re-wrapped an EngineError: %v", again)
	}

	if got := wrapErr("list namespaces", "", engine).Error(); got != "shelf: list namespaces: database is locked" {
		t.Errorf("Error() without namespace = %q", got)
	}
}

func TestFormatFields(t *testing.T) {
	if got := formatFields(nil); got != "" {
		t.Errorf("formatFields(nil) = %q", got)
	}
	got := formatFields([]Field{{"path", "/tmp/x.db"}, {"count", 3}})
	if got != "{path: /tmp/x.db, count: 3}" {
		t.Errorf("formatFields = %q", got)
	}
}

func TestConfigPragmas(t *testing.T) {
	config := DefaultConfig()
	config.JournalMode = "wal"

	got := config.pragmas()
	want := []string{
		"journal_mode = WAL",
		"synchronous = NORMAL",
		"cache_size = 1000",
		"temp_store = MEMORY",
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("pragmas = %q, want %q", got, want)
	}

	config.BusyTimeout = 1500 * time.Millisecond
	got = config.pragmas()
	if got[len(got)-1] != "busy_timeout = 1500" {
		t.Errorf("busy_timeout pragma = %q", got[len(got)-1])
	}
}

func TestLeveledLogger(t *testing.T) {
	var buf strings.Builder
	logger := NewLogger(&buf, LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown", Field{"table", "kv_a"})
	logger.Error("also shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Messages below the minimum level leaked: %q", out)
	}
	if !strings.Contains(out, "[shelf] ") || !strings.Contains(out, "[WARN] shown {table: kv_a}") {
		t.Errorf("Missing warning in %q", out)
	}
	if !strings.Contains(out, "[ERROR] also shown\n") {
		t.Errorf("Missing error in %q", out)
	}
}
