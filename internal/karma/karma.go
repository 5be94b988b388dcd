// Package karma tracks the per-domain reputation score that drives gating.
// Scores live in [-100, 100]; a domain with no score is at 0.
package karma

import (
	"context"
	"strings"

	"github.com/Fdondi/MindfulTab/internal/config"
	"github.com/Fdondi/MindfulTab/internal/store"
)

// Score bounds.
const (
	MinScore = -100
	MaxScore = 100
)

// State classifies how severely a domain is gated.
type State string

const (
	StateNormal  State = "normal"
	StateWarning State = "warning"
	StateHidden  State = "hidden"
)

// Ledger reads and mutates per-domain karma scores.
type Ledger struct {
	store *store.Store
}

// NewLedger creates a Ledger over the given store.
func NewLedger(s *store.Store) *Ledger {
	return &Ledger{store: s}
}

// Normalize canonicalizes a domain for use as a ledger key.
func Normalize(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// Classify maps a score onto a gating state. The hidden band is checked
// first, so thresholds with hidden > warning silently widen it; the original
// extension behaves the same way.
func Classify(score int, thresholds config.Thresholds) State {
	if score <= thresholds.Hidden {
		return StateHidden
	}
	if score <= thresholds.Warning {
		return StateWarning
	}
	return StateNormal
}

// Read returns the current score for domain (0 if absent).
func (l *Ledger) Read(ctx context.Context, domain string) (int, error) {
	key := Normalize(domain)
	if key == "" {
		return 0, nil
	}
	scores, err := l.all(ctx)
	if err != nil {
		return 0, err
	}
	return scores[key], nil
}

// All returns the full domain→score map.
func (l *Ledger) All(ctx context.Context) (map[string]int, error) {
	return l.all(ctx)
}

// Penalize subtracts max(1, minutesOver) from domain's score, clamped to the
// score bounds, and persists the result. Returns (0, false, nil) without
// touching storage when the domain is blank after normalization.
func (l *Ledger) Penalize(ctx context.Context, domain string, minutesOver int) (int, bool, error) {
	return l.adjust(ctx, domain, -amount(minutesOver))
}

// Recover adds max(1, points) to domain's score, clamped to the score
// bounds, and persists the result. Returns (0, false, nil) without touching
// storage when the domain is blank after normalization.
func (l *Ledger) Recover(ctx context.Context, domain string, points int) (int, bool, error) {
	return l.adjust(ctx, domain, amount(points))
}

func (l *Ledger) adjust(ctx context.Context, domain string, delta int) (int, bool, error) {
	key := Normalize(domain)
	if key == "" {
		return 0, false, nil
	}

	scores, err := l.all(ctx)
	if err != nil {
		return 0, false, err
	}

	updated := clamp(scores[key]+delta, MinScore, MaxScore)
	scores[key] = updated

	if err := l.store.Set(ctx, store.KeyKarmaByDomain, scores); err != nil {
		return 0, false, err
	}
	return updated, true, nil
}

func (l *Ledger) all(ctx context.Context) (map[string]int, error) {
	scores := map[string]int{}
	if _, err := l.store.Get(ctx, store.KeyKarmaByDomain, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

func amount(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
