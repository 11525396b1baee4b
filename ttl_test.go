package shelf_test

import (
	"testing"
	"time"

	"github.com/aigotowork/shelf"
)

// ========== Expiry Tests ==========

func TestTTLHidesExpiredEntries(t *testing.T) {
	store := openTestStore(t)

	if err := store.Set("sessions", k("short"), "s", shelf.WithTTL(50*time.Millisecond)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("sessions", k("long"), "l", shelf.WithTTL(time.Hour)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("sessions", k("forever"), "f"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if got := mustGet(t, store, "sessions", k("short")); got != "s" {
		t.Errorf("short = %v before expiry", got)
	}

	time.Sleep(100 * time.Millisecond)

	assertAbsent(t, store, "sessions", k("short"))
	if has, _ := store.Has("sessions", k("short")); has {
		t.Error("Has should hide expired entries")
	}
	if deleted, _ := store.Delete("sessions", k("short")); deleted {
		t.Error("Delete of an expired entry should report false")
	}

	keys, err := store.ListKeys("sessions")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("ListKeys = %v, want long and forever", keys)
	}

	many, err := store.GetMany("sessions", []shelf.Key{k("short"), k("long")})
	if err != nil || len(many) != 1 {
		t.Errorf("GetMany = %v, %v", many, err)
	}

	stats, err := store.Stats("sessions")
	if err != nil || stats.KeyCount != 2 {
		t.Errorf("Stats = %+v, %v", stats, err)
	}
}

func TestPurgeExpired(t *testing.T) {
	store := openTestStore(t)

	n, err := store.SetMany("a", shelf.TextEntries(map[string]int{"x": 1, "y": 2}), shelf.WithTTL(time.Millisecond))
	if err != nil || n != 2 {
		t.Fatalf("SetMany = %d, %v", n, err)
	}
	if err := store.Set("b", k("z"), 3, shelf.WithTTL(time.Millisecond)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("b", k("kept"), 4); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	purged, err := store.PurgeExpired()
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if purged != 3 {
		t.Errorf("PurgeExpired = %d, want 3", purged)
	}

	purged, err = store.PurgeExpired()
	if err != nil || purged != 0 {
		t.Errorf("Second PurgeExpired = %d, %v; want 0", purged, err)
	}

	if got := mustGet(t, store, "b", k("kept")); got != int64(4) {
		t.Errorf("kept = %v", got)
	}
}

func TestRenameOverExpiredTarget(t *testing.T) {
	store := openTestStore(t)

	if err := store.Set("ns", k("target"), "stale", shelf.WithTTL(time.Millisecond)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("ns", k("source"), "fresh"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	// The expired target counts as absent, so no Overwrite is needed.
	n, err := store.Rename("ns", shelf.Pairs(shelf.Pair{Old: k("source"), New: k("target")}))
	if err != nil || n != 1 {
		t.Fatalf("Rename = %d, %v", n, err)
	}
	if got := mustGet(t, store, "ns", k("target")); got != "fresh" {
		t.Errorf("target = %v, want fresh", got)
	}
}

func TestRenameKeepsExpiry(t *testing.T) {
	store := openTestStore(t)

	if err := store.Set("ns", k("a"), "v", shelf.WithTTL(50*time.Millisecond)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := store.Rename("ns", shelf.Pairs(shelf.Pair{Old: k("a"), New: k("b")})); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	assertAbsent(t, store, "ns", k("b"))
}
