package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestInit_CreatesDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer st.Close()

	version, err := GetUserVersion(st.DB())
	if err != nil {
		t.Fatalf("GetUserVersion failed: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestInit_NestedBaseDir(t *testing.T) {
	st, err := Init(filepath.Join(t.TempDir(), "nested", "dir"))
	if err != nil {
		t.Fatalf("Init with nested dir failed: %v", err)
	}
	st.Close()
}

func TestInit_Reopen(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	st, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := st.Set(ctx, KeySettings, map[string]string{"historyMode": "both_with_toggle"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	st.Close()

	st, err = Init(tmpDir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st.Close()

	var settings map[string]string
	found, err := st.Get(ctx, KeySettings, &settings)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("found = false after reopen, want true")
	}
	if settings["historyMode"] != "both_with_toggle" {
		t.Errorf("historyMode = %q, want %q", settings["historyMode"], "both_with_toggle")
	}
}

func TestGet_AbsentKey(t *testing.T) {
	st, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer st.Close()

	out := map[string]int{"existing": 1}
	found, err := st.Get(context.Background(), KeyKarmaByDomain, &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("found = true for absent key, want false")
	}
	// Absent keys must leave out untouched.
	if out["existing"] != 1 {
		t.Error("Get modified out for an absent key")
	}
}

func TestSet_Overwrites(t *testing.T) {
	st, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	if err := st.Set(ctx, KeyKarmaByDomain, map[string]int{"a.example": -1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := st.Set(ctx, KeyKarmaByDomain, map[string]int{"a.example": -2}); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	var scores map[string]int
	if _, err := st.Get(ctx, KeyKarmaByDomain, &scores); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if scores["a.example"] != -2 {
		t.Errorf("score = %d, want -2 (last write wins)", scores["a.example"])
	}
}

func TestRemove(t *testing.T) {
	st, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	if err := st.Set(ctx, KeyActiveSession, map[string]bool{"ended": false}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := st.Remove(ctx, KeyActiveSession); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	var out map[string]bool
	found, err := st.Get(ctx, KeyActiveSession, &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("found = true after Remove, want false")
	}
}

func TestRemove_AbsentKey(t *testing.T) {
	st, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer st.Close()

	if err := st.Remove(context.Background(), "never-set"); err != nil {
		t.Errorf("Remove of absent key failed: %v", err)
	}
}

func TestKeys_Sorted(t *testing.T) {
	st, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	for _, key := range []string{KeyVisitedLinks, KeyHistory, KeySettings} {
		if err := st.Set(ctx, key, map[string]string{}); err != nil {
			t.Fatalf("Set(%q) failed: %v", key, err)
		}
	}

	keys, err := st.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	want := []string{KeyHistory, KeySettings, KeyVisitedLinks}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestWALMode(t *testing.T) {
	st, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer st.Close()

	var mode string
	if err := st.DB().QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("journal_mode query failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}
