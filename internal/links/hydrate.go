package links

import (
	"context"

	"github.com/Fdondi/MindfulTab/internal/host"
)

// Hydration limits. The install-time pass is smaller because it runs before
// the user has asked for anything.
const (
	InstallHydrateLimit  = 200
	OnDemandHydrateLimit = 300
	minHydrateResults    = 20
)

// Hydrate pulls up to limit items from the browser history API and upserts
// them with source "browser". Returns how many items were merged. A nil
// history provider is a no-op, matching browsers without the history
// permission.
func (s *Set) Hydrate(ctx context.Context, history host.History, limit int) (int, error) {
	if history == nil {
		return 0, nil
	}
	if limit < minHydrateResults {
		limit = minHydrateResults
	}

	items, err := history.Search(ctx, limit)
	if err != nil {
		return 0, err
	}

	merged := 0
	for _, item := range items {
		if !Trackable(item.URL) {
			continue
		}
		title := item.Title
		if title == "" {
			title = item.URL
		}
		err := s.Upsert(ctx, VisitedLink{
			URL:        item.URL,
			Title:      title,
			VisitCount: item.VisitCount,
			LastVisit:  item.LastVisitTime,
			Source:     SourceBrowser,
		})
		if err != nil {
			return merged, err
		}
		merged++
	}
	return merged, nil
}
