// Package links maintains the visited-link set and per-domain visit counts
// that feed the new-tab suggestions and the karma settings page.
package links

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/Fdondi/MindfulTab/internal/config"
	"github.com/Fdondi/MindfulTab/internal/store"
)

// Link sources.
const (
	SourceExtension = "extension"
	SourceBrowser   = "browser"
)

// VisitedLink is one known URL with merged visit metadata. Source is a
// comma-joined set of the places the link was seen from.
type VisitedLink struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	VisitCount int    `json:"visitCount"`
	LastVisit  int64  `json:"lastVisit"` // epoch milliseconds
	Source     string `json:"source"`
	Intent     string `json:"intent,omitempty"`
}

var httpPattern = regexp.MustCompile(`(?i)^https?://`)

// Trackable reports whether a URL belongs in the visited-link set. Only
// http(s) URLs are tracked.
func Trackable(rawURL string) bool {
	return httpPattern.MatchString(rawURL)
}

// DomainFromURL extracts the hostname from a URL, or "" if the URL does not
// parse or has no host. Callers treat "" as "no domain" and fail open.
func DomainFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// Set provides access to the stored visited links and domain visit counts.
type Set struct {
	store *store.Store
}

// NewSet creates a Set over the given store.
func NewSet(s *store.Store) *Set {
	return &Set{store: s}
}

// Upsert merges link into the stored set keyed by URL. Counts and timestamps
// are merged with max(), titles fall back new→current→url, and sources
// union. Links without a URL are ignored.
func (s *Set) Upsert(ctx context.Context, link VisitedLink) error {
	if link.URL == "" {
		return nil
	}

	all, err := s.all(ctx)
	if err != nil {
		return err
	}

	current, ok := all[link.URL]
	if !ok {
		current = VisitedLink{URL: link.URL}
	}

	merged := current
	merged.Title = firstNonEmpty(link.Title, current.Title, link.URL)
	merged.VisitCount = max(current.VisitCount, link.VisitCount)
	merged.LastVisit = max(current.LastVisit, link.LastVisit)
	merged.Source = mergeSources(current.Source, link.Source)
	if merged.Source == "" {
		merged.Source = SourceExtension
	}
	if link.Intent != "" {
		merged.Intent = link.Intent
	}

	all[link.URL] = merged
	return s.store.Set(ctx, store.KeyVisitedLinks, all)
}

// ByMode returns stored links filtered by history mode. Results are sorted
// by lastVisit descending for stable output; the extension sorts client-side
// but storage iteration order in Go is random.
func (s *Set) ByMode(ctx context.Context, mode string) ([]VisitedLink, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]VisitedLink, 0, len(all))
	for _, link := range all {
		switch mode {
		case config.HistoryModeExtensionOnly:
			if !strings.Contains(link.Source, SourceExtension) {
				continue
			}
		case config.HistoryModeBrowserAPI:
			if !strings.Contains(link.Source, SourceBrowser) {
				continue
			}
		}
		out = append(out, link)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastVisit != out[j].LastVisit {
			return out[i].LastVisit > out[j].LastVisit
		}
		return out[i].URL < out[j].URL
	})
	return out, nil
}

// RecordDomainVisit increments the visit counter for domain and returns the
// new count.
func (s *Set) RecordDomainVisit(ctx context.Context, domain string) (int, error) {
	if domain == "" {
		return 0, nil
	}
	visits, err := s.DomainVisits(ctx)
	if err != nil {
		return 0, err
	}
	visits[domain]++
	if err := s.store.Set(ctx, store.KeyDomainVisits, visits); err != nil {
		return 0, err
	}
	return visits[domain], nil
}

// DomainVisits returns the domain→count map.
func (s *Set) DomainVisits(ctx context.Context) (map[string]int, error) {
	visits := map[string]int{}
	if _, err := s.store.Get(ctx, store.KeyDomainVisits, &visits); err != nil {
		return nil, err
	}
	return visits, nil
}

func (s *Set) all(ctx context.Context) (map[string]VisitedLink, error) {
	all := map[string]VisitedLink{}
	if _, err := s.store.Get(ctx, store.KeyVisitedLinks, &all); err != nil {
		return nil, err
	}
	return all, nil
}

// mergeSources unions two comma-joined source sets, dropping empties.
// Order follows first appearance so "extension,browser" stays stable.
func mergeSources(a, b string) string {
	seen := make(map[string]bool)
	var parts []string
	for _, raw := range strings.Split(a+","+b, ",") {
		part := strings.TrimSpace(raw)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		parts = append(parts, part)
	}
	return strings.Join(parts, ",")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
