// Package journal keeps the capped, newest-first activity logs: the history
// ring (what the gate and sessions did) and the reflection ring (what the
// user wrote before continuing past a gate).
package journal

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Fdondi/MindfulTab/internal/store"
)

// Ring capacities. Oldest entries fall off when the cap is hit.
const (
	HistoryCap     = 1000
	ReflectionsCap = 500
)

// Entry types appended to the history ring.
const (
	TypeSessionStarted           = "session_started"
	TypeSessionEnded             = "session_ended"
	TypeSessionCancelledTabClose = "session_cancelled_tab_closed"
	TypeSessionResetNewTab       = "session_reset_new_tab"
	TypeReflectionGateShown      = "reflection_gate_shown"
	TypeContinueAnyway           = "continue_anyway"
	TypeKarmaForgiven            = "karma_forgiven"
	TypeDomainOptOutEnabled      = "domain_opt_out_enabled"
	TypeDomainOptOutDisabled     = "domain_opt_out_disabled"
)

// Entry is one history record. Only the fields relevant to its Type are set.
type Entry struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	AtISO     string `json:"atIso"`
	Domain    string `json:"domain,omitempty"`
	Score     *int   `json:"score,omitempty"`
	TargetURL string `json:"targetUrl,omitempty"`
	Session   any    `json:"session,omitempty"`
}

// Reflection is one free-text reflection recorded at the gate. The text may
// be empty; the act of pausing is the point.
type Reflection struct {
	ID         string `json:"id"`
	AtISO      string `json:"atIso"`
	Domain     string `json:"domain"`
	Reflection string `json:"reflection"`
}

// Journal provides append/read access to both rings.
type Journal struct {
	store *store.Store
	now   func() time.Time
}

// New creates a Journal over the given store.
func New(s *store.Store) *Journal {
	return &Journal{store: s, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (j *Journal) SetNow(now func() time.Time) {
	j.now = now
}

// NowISO returns the current time formatted the way entries record it.
func (j *Journal) NowISO() string {
	return j.now().UTC().Format(time.RFC3339Nano)
}

// Append prepends entry to the history ring, filling ID and AtISO if unset,
// and trims to HistoryCap.
func (j *Journal) Append(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = newULID(j.now())
	}
	if entry.AtISO == "" {
		entry.AtISO = j.NowISO()
	}

	var history []Entry
	if _, err := j.store.Get(ctx, store.KeyHistory, &history); err != nil {
		return err
	}
	history = append([]Entry{entry}, history...)
	if len(history) > HistoryCap {
		history = history[:HistoryCap]
	}
	return j.store.Set(ctx, store.KeyHistory, history)
}

// Recent returns up to limit history entries, newest first. limit <= 0
// returns everything.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	var history []Entry
	if _, err := j.store.Get(ctx, store.KeyHistory, &history); err != nil {
		return nil, err
	}
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// AppendReflection prepends a reflection, filling ID and AtISO if unset, and
// trims to ReflectionsCap.
func (j *Journal) AppendReflection(ctx context.Context, r Reflection) error {
	if r.ID == "" {
		r.ID = newULID(j.now())
	}
	if r.AtISO == "" {
		r.AtISO = j.NowISO()
	}

	var reflections []Reflection
	if _, err := j.store.Get(ctx, store.KeyReflections, &reflections); err != nil {
		return err
	}
	reflections = append([]Reflection{r}, reflections...)
	if len(reflections) > ReflectionsCap {
		reflections = reflections[:ReflectionsCap]
	}
	return j.store.Set(ctx, store.KeyReflections, reflections)
}

// Reflections returns up to limit reflections, newest first. limit <= 0
// returns everything.
func (j *Journal) Reflections(ctx context.Context, limit int) ([]Reflection, error) {
	var reflections []Reflection
	if _, err := j.store.Get(ctx, store.KeyReflections, &reflections); err != nil {
		return nil, err
	}
	if limit > 0 && len(reflections) > limit {
		reflections = reflections[:limit]
	}
	return reflections, nil
}

// newULID generates a ULID for the given timestamp.
func newULID(at time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(at), entropy)
	if err != nil {
		// rand.Reader failing is unrecoverable; fall back to a zero-entropy
		// timestamp-only ID rather than propagate an error nobody can act on.
		return ulid.MustNew(ulid.Timestamp(at), zeroReader{}).String()
	}
	return id.String()
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
