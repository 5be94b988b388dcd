package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Fdondi/MindfulTab/internal/links"
	"github.com/Fdondi/MindfulTab/internal/store"
)

// IndexVersion tags the index format. Cached indexes with a different
// version are rebuilt.
const IndexVersion = 1

// Record is one indexed visited link.
type Record struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	VisitCount int       `json:"visitCount"`
	LastVisit  int64     `json:"lastVisit"`
	Source     string    `json:"source"`
	Embedding  []float32 `json:"embedding"`
}

// Index is the cached embedding index over the visited-link set.
type Index struct {
	Version     int      `json:"version"`
	Fingerprint string   `json:"fingerprint"`
	BuiltAt     int64    `json:"builtAt"` // epoch milliseconds
	Records     []Record `json:"records"`
}

// DocumentText concatenates the searchable text of a link.
func DocumentText(link links.VisitedLink) string {
	return strings.TrimSpace(link.Title + " " + link.URL + " " + link.Intent)
}

// Fingerprint derives the cheap staleness check for a link set: the link
// count plus the length of all URLs joined with "|". It cannot distinguish
// every edit (swapping two equal-length URLs collides), which is accepted
// staleness, not a correctness bug.
func Fingerprint(linkSet []links.VisitedLink) string {
	joinedLen := 0
	for i, link := range linkSet {
		if i > 0 {
			joinedLen++ // separator
		}
		joinedLen += len(link.URL)
	}
	return fmt.Sprintf("%d:%d", len(linkSet), joinedLen)
}

// Build creates an index over the given links. Links without a URL or with
// empty document text are skipped.
func Build(linkSet []links.VisitedLink, builtAt time.Time) *Index {
	records := make([]Record, 0, len(linkSet))
	for _, link := range linkSet {
		if link.URL == "" {
			continue
		}
		text := DocumentText(link)
		if text == "" {
			continue
		}
		title := link.Title
		if title == "" {
			title = link.URL
		}
		source := link.Source
		if source == "" {
			source = "unknown"
		}
		records = append(records, Record{
			URL:        link.URL,
			Title:      title,
			VisitCount: link.VisitCount,
			LastVisit:  link.LastVisit,
			Source:     source,
			Embedding:  Embed(text),
		})
	}
	return &Index{
		Version:     IndexVersion,
		Fingerprint: Fingerprint(linkSet),
		BuiltAt:     builtAt.UnixMilli(),
		Records:     records,
	}
}

// Indexer lazily builds the embedding index, caching it in the store and
// reusing the cache while the fingerprint and version match.
type Indexer struct {
	store *store.Store
	now   func() time.Time
}

// NewIndexer creates an Indexer over the given store.
func NewIndexer(s *store.Store) *Indexer {
	return &Indexer{store: s, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (ix *Indexer) SetNow(now func() time.Time) {
	ix.now = now
}

// Ensure returns the cached index if it is still valid for linkSet,
// otherwise rebuilds and persists it.
func (ix *Indexer) Ensure(ctx context.Context, linkSet []links.VisitedLink) (*Index, error) {
	fingerprint := Fingerprint(linkSet)

	cached := &Index{}
	found, err := ix.store.Get(ctx, store.KeySearchIndex, cached)
	if err != nil {
		return nil, err
	}
	if found && cached.Version == IndexVersion && cached.Fingerprint == fingerprint {
		return cached, nil
	}

	built := Build(linkSet, ix.now())
	if err := ix.store.Set(ctx, store.KeySearchIndex, built); err != nil {
		return nil, err
	}
	return built, nil
}
