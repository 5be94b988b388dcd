package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Fdondi/MindfulTab/internal/store"
)

func newTestJournal(t *testing.T) (*Journal, *store.Store) {
	t.Helper()
	st, err := store.Init(t.TempDir())
	if err != nil {
		t.Fatalf("store.Init failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st), st
}

func TestAppend_NewestFirst(t *testing.T) {
	j, _ := newTestJournal(t)
	ctx := context.Background()

	if err := j.Append(ctx, Entry{Type: TypeSessionStarted}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := j.Append(ctx, Entry{Type: TypeSessionEnded}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := j.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Type != TypeSessionEnded {
		t.Errorf("entries[0].Type = %q, want %q (newest first)", entries[0].Type, TypeSessionEnded)
	}
	if entries[1].Type != TypeSessionStarted {
		t.Errorf("entries[1].Type = %q, want %q", entries[1].Type, TypeSessionStarted)
	}
}

func TestAppend_FillsIDAndTimestamp(t *testing.T) {
	j, _ := newTestJournal(t)
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	j.SetNow(func() time.Time { return at })

	if err := j.Append(context.Background(), Entry{Type: TypeContinueAnyway, Domain: "example.com"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := j.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("ID is empty, want generated ULID")
	}
	if entries[0].AtISO != "2026-08-01T12:00:00Z" {
		t.Errorf("AtISO = %q, want %q", entries[0].AtISO, "2026-08-01T12:00:00Z")
	}
}

func TestAppend_TrimsToHistoryCap(t *testing.T) {
	j, st := newTestJournal(t)
	ctx := context.Background()

	// Seed a full ring directly; appending one more must evict the oldest.
	full := make([]Entry, HistoryCap)
	for i := range full {
		full[i] = Entry{ID: fmt.Sprintf("seed-%d", i), Type: TypeSessionStarted}
	}
	if err := st.Set(ctx, store.KeyHistory, full); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := j.Append(ctx, Entry{ID: "newest", Type: TypeSessionEnded}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := j.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != HistoryCap {
		t.Fatalf("entries = %d, want %d", len(entries), HistoryCap)
	}
	if entries[0].ID != "newest" {
		t.Errorf("entries[0].ID = %q, want %q", entries[0].ID, "newest")
	}
	last := entries[len(entries)-1]
	if last.ID != fmt.Sprintf("seed-%d", HistoryCap-2) {
		t.Errorf("oldest kept = %q, want %q (the very oldest evicted)", last.ID, fmt.Sprintf("seed-%d", HistoryCap-2))
	}
}

func TestRecent_Limit(t *testing.T) {
	j, _ := newTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := j.Append(ctx, Entry{Type: TypeSessionStarted}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := j.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("entries = %d, want 3", len(entries))
	}
}

func TestAppendReflection_NewestFirstAndCapped(t *testing.T) {
	j, st := newTestJournal(t)
	ctx := context.Background()

	full := make([]Reflection, ReflectionsCap)
	for i := range full {
		full[i] = Reflection{ID: fmt.Sprintf("seed-%d", i), Domain: "example.com"}
	}
	if err := st.Set(ctx, store.KeyReflections, full); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	err := j.AppendReflection(ctx, Reflection{ID: "newest", Domain: "example.com", Reflection: "checking the news again"})
	if err != nil {
		t.Fatalf("AppendReflection failed: %v", err)
	}

	reflections, err := j.Reflections(ctx, 0)
	if err != nil {
		t.Fatalf("Reflections failed: %v", err)
	}
	if len(reflections) != ReflectionsCap {
		t.Fatalf("reflections = %d, want %d", len(reflections), ReflectionsCap)
	}
	if reflections[0].ID != "newest" {
		t.Errorf("reflections[0].ID = %q, want %q", reflections[0].ID, "newest")
	}
}

func TestAppendReflection_EmptyTextAllowed(t *testing.T) {
	j, _ := newTestJournal(t)
	ctx := context.Background()

	if err := j.AppendReflection(ctx, Reflection{Domain: "example.com"}); err != nil {
		t.Fatalf("AppendReflection failed: %v", err)
	}

	reflections, err := j.Reflections(ctx, 0)
	if err != nil {
		t.Fatalf("Reflections failed: %v", err)
	}
	if len(reflections) != 1 {
		t.Fatalf("reflections = %d, want 1", len(reflections))
	}
	if reflections[0].Reflection != "" {
		t.Errorf("Reflection = %q, want empty", reflections[0].Reflection)
	}
}

func TestNowISO_Format(t *testing.T) {
	j, _ := newTestJournal(t)
	at := time.Date(2026, 8, 1, 12, 30, 45, 123_000_000, time.UTC)
	j.SetNow(func() time.Time { return at })

	if got := j.NowISO(); got != "2026-08-01T12:30:45.123Z" {
		t.Errorf("NowISO = %q, want %q", got, "2026-08-01T12:30:45.123Z")
	}
}
