package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Fdondi/MindfulTab/internal/links"
)

// Ranking constants.
const (
	DefaultLimit   = 8
	recencyWindow  = 24 * time.Hour
	recencyBoost   = 0.25
	maxVisitBoost  = 0.2
	visitBoostStep = 100.0
)

// Result is one ranked suggestion.
type Result struct {
	Record
	Score float64 `json:"score"`
}

// Rank scores every index record against the query and returns the top
// results, sorted by non-increasing score. The score is cosine similarity
// plus a recency boost (visited within 24h) and a visit-count boost.
func Rank(query string, index *Index, limit int, now time.Time) []Result {
	if index == nil {
		return nil
	}

	queryVec := Embed(query)
	ranked := make([]Result, 0, len(index.Records))
	for _, record := range index.Records {
		score := Cosine(queryVec, record.Embedding)
		score += recencyBoostFor(record.LastVisit, now)
		score += visitBoostFor(record.VisitCount)
		ranked = append(ranked, Result{Record: record, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return truncate(ranked, limit)
}

// KeywordFallback scores links by how many query tokens appear as literal
// substrings of the document text, case-insensitive. Links with no matching
// token are dropped. Used when the embedding path fails or returns nothing.
func KeywordFallback(query string, linkSet []links.VisitedLink, limit int) []Result {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	var results []Result
	for _, link := range linkSet {
		text := strings.ToLower(DocumentText(link))
		hits := 0
		for _, token := range tokens {
			if strings.Contains(text, token) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		title := link.Title
		if title == "" {
			title = link.URL
		}
		results = append(results, Result{
			Record: Record{
				URL:        link.URL,
				Title:      title,
				VisitCount: link.VisitCount,
				LastVisit:  link.LastVisit,
				Source:     link.Source,
			},
			Score: float64(hits) + visitBoostFor(link.VisitCount),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return truncate(results, limit)
}

// Engine ties the lazy indexer and the rankers together, degrading to the
// keyword fallback when the embedding path fails or finds nothing.
type Engine struct {
	indexer *Indexer
	now     func() time.Time
}

// NewEngine creates an Engine over the given indexer.
func NewEngine(indexer *Indexer) *Engine {
	return &Engine{indexer: indexer, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (e *Engine) SetNow(now func() time.Time) {
	e.now = now
}

// Suggest ranks linkSet against query. The embedding index is built or
// reused as needed; indexing failures degrade silently to the keyword path.
func (e *Engine) Suggest(ctx context.Context, query string, linkSet []links.VisitedLink, limit int) []Result {
	index, err := e.indexer.Ensure(ctx, linkSet)
	if err != nil {
		return KeywordFallback(query, linkSet, limit)
	}
	results := Rank(query, index, limit, e.now())
	if len(results) == 0 {
		results = KeywordFallback(query, linkSet, limit)
	}
	return results
}

func recencyBoostFor(lastVisit int64, now time.Time) float64 {
	if lastVisit == 0 {
		return 0
	}
	if now.UnixMilli()-lastVisit < recencyWindow.Milliseconds() {
		return recencyBoost
	}
	return 0
}

func visitBoostFor(visitCount int) float64 {
	boost := float64(visitCount) / visitBoostStep
	if boost > maxVisitBoost {
		return maxVisitBoost
	}
	return boost
}

// truncate applies the limit contract: 0 means the default, anything below
// 1 is raised to 1.
func truncate(results []Result, limit int) []Result {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
