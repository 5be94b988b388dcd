package karma

import (
	"context"
	"testing"

	"github.com/Fdondi/MindfulTab/internal/store"
)

func newTestOptOuts(t *testing.T) *OptOuts {
	t.Helper()
	st, err := store.Init(t.TempDir())
	if err != nil {
		t.Fatalf("store.Init failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewOptOuts(st)
}

func TestOptOuts_SetAndContains(t *testing.T) {
	optOuts := newTestOptOuts(t)
	ctx := context.Background()

	if err := optOuts.Set(ctx, "Example.com", true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := optOuts.Contains(ctx, "example.com")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !got {
		t.Error("Contains = false, want true")
	}

	other, err := optOuts.Contains(ctx, "other.example")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if other {
		t.Error("Contains(other) = true, want false")
	}
}

func TestOptOuts_RemovalDeletesKey(t *testing.T) {
	optOuts := newTestOptOuts(t)
	ctx := context.Background()

	if err := optOuts.Set(ctx, "example.com", true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := optOuts.Set(ctx, "example.com", false); err != nil {
		t.Fatalf("Set(false) failed: %v", err)
	}

	all, err := optOuts.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if _, present := all["example.com"]; present {
		t.Error("disabled domain still present in stored set, want deleted")
	}
}

func TestOptOuts_BlankDomainIgnored(t *testing.T) {
	optOuts := newTestOptOuts(t)
	ctx := context.Background()

	if err := optOuts.Set(ctx, "  ", true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	all, err := optOuts.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("set has %d entries, want 0", len(all))
	}
}
