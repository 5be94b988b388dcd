package links

import (
	"context"
	"errors"
	"testing"

	"github.com/Fdondi/MindfulTab/internal/config"
	"github.com/Fdondi/MindfulTab/internal/host"
	"github.com/Fdondi/MindfulTab/internal/host/hosttest"
)

func TestHydrate_MergesBrowserHistory(t *testing.T) {
	set := newTestSet(t)
	ctx := context.Background()

	history := &hosttest.History{Items: []host.HistoryItem{
		{URL: "https://a.test/x", Title: "A", VisitCount: 3, LastVisitTime: 3000},
		{URL: "https://b.test/y", Title: "", VisitCount: 1, LastVisitTime: 1000},
		{URL: "about:config"}, // not trackable, skipped
	}}

	merged, err := set.Hydrate(ctx, history, OnDemandHydrateLimit)
	if err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}
	if merged != 2 {
		t.Errorf("merged = %d, want 2", merged)
	}

	linkSet, err := set.ByMode(ctx, config.HistoryModeBrowserAPI)
	if err != nil {
		t.Fatalf("ByMode failed: %v", err)
	}
	if len(linkSet) != 2 {
		t.Fatalf("links = %d, want 2", len(linkSet))
	}
	if linkSet[0].Source != SourceBrowser {
		t.Errorf("Source = %q, want %q", linkSet[0].Source, SourceBrowser)
	}
	// Untitled history items fall back to their URL.
	if linkSet[1].Title != "https://b.test/y" {
		t.Errorf("Title = %q, want URL fallback", linkSet[1].Title)
	}
}

func TestHydrate_MergesWithExtensionLinks(t *testing.T) {
	set := newTestSet(t)
	ctx := context.Background()

	err := set.Upsert(ctx, VisitedLink{URL: "https://a.test/x", Title: "Seen", VisitCount: 5, LastVisit: 5000, Source: SourceExtension})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	history := &hosttest.History{Items: []host.HistoryItem{
		{URL: "https://a.test/x", Title: "A", VisitCount: 2, LastVisitTime: 1000},
	}}
	if _, err := set.Hydrate(ctx, history, OnDemandHydrateLimit); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}

	linkSet, err := set.ByMode(ctx, config.HistoryModeBoth)
	if err != nil {
		t.Fatalf("ByMode failed: %v", err)
	}
	if len(linkSet) != 1 {
		t.Fatalf("links = %d, want 1 (merged by URL)", len(linkSet))
	}
	link := linkSet[0]
	if link.VisitCount != 5 {
		t.Errorf("VisitCount = %d, want 5 (max kept)", link.VisitCount)
	}
	if link.Source != "extension,browser" {
		t.Errorf("Source = %q, want union", link.Source)
	}
}

func TestHydrate_NilHistoryIsNoOp(t *testing.T) {
	set := newTestSet(t)

	merged, err := set.Hydrate(context.Background(), nil, OnDemandHydrateLimit)
	if err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}
	if merged != 0 {
		t.Errorf("merged = %d, want 0", merged)
	}
}

func TestHydrate_SearchFailurePropagates(t *testing.T) {
	set := newTestSet(t)
	history := &hosttest.History{Err: errors.New("permission denied")}

	if _, err := set.Hydrate(context.Background(), history, OnDemandHydrateLimit); err == nil {
		t.Error("Hydrate with failing history succeeded, want error")
	}
}
