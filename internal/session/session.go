// Package session owns the single active timed session and its lifecycle:
// start, expiry, cancellation on tab close, and reset on new-tab.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Fdondi/MindfulTab/internal/host"
	"github.com/Fdondi/MindfulTab/internal/journal"
	"github.com/Fdondi/MindfulTab/internal/karma"
	"github.com/Fdondi/MindfulTab/internal/links"
	"github.com/Fdondi/MindfulTab/internal/store"
)

// AlarmName is the wake-up alarm shared by every session. There is at most
// one session, so one name suffices; scheduling replaces any prior alarm.
const AlarmName = "mindfultab-timer-expired"

// Session is the single process-wide timed focus session.
// Invariant: EndsAt = StartedAt + DurationMinutes*60000.
type Session struct {
	StartedAt       int64  `json:"startedAt"` // epoch milliseconds
	EndsAt          int64  `json:"endsAt"`
	DurationMinutes int    `json:"durationMinutes"`
	Reason          string `json:"reason"`
	TabURL          string `json:"tabUrl"`
	TabID           *int   `json:"tabId"`
	Domain          string `json:"domain"`
	Ended           bool   `json:"ended"`
	NudgedAt        *int64 `json:"nudgedAt"`
	CreatedAtISO    string `json:"createdAtIso"`
}

// Manager drives session transitions.
type Manager struct {
	store    *store.Store
	ledger   *karma.Ledger
	optOuts  *karma.OptOuts
	journal  *journal.Journal
	tabs     host.Tabs
	alarms   host.Alarms
	notifier host.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager wires a Manager. tabs and notifier may be nil; expiry then
// falls back to the session's own domain and skips the notification.
func NewManager(s *store.Store, ledger *karma.Ledger, optOuts *karma.OptOuts, j *journal.Journal,
	tabs host.Tabs, alarms host.Alarms, notifier host.Notifier, logger *zap.Logger) *Manager {
	return &Manager{
		store:    s,
		ledger:   ledger,
		optOuts:  optOuts,
		journal:  j,
		tabs:     tabs,
		alarms:   alarms,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (m *Manager) SetNow(now func() time.Time) {
	m.now = now
}

// Active returns the stored session, or nil when idle.
func (m *Manager) Active(ctx context.Context) (*Session, error) {
	session := &Session{}
	found, err := m.store.Get(ctx, store.KeyActiveSession, session)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return session, nil
}

// StartInput carries the parameters for Start.
type StartInput struct {
	DurationMinutes int
	Reason          string
	TabURL          string
	TabID           *int
}

// Start begins a new session, superseding any prior one (last write wins).
// It persists the session, schedules the wake-up at EndsAt, and appends a
// session_started history entry. Durations below one minute are raised to one.
func (m *Manager) Start(ctx context.Context, in StartInput) (*Session, error) {
	duration := in.DurationMinutes
	if duration < 1 {
		duration = 1
	}

	startedAt := m.now().UnixMilli()
	session := &Session{
		StartedAt:       startedAt,
		EndsAt:          startedAt + int64(duration)*60_000,
		DurationMinutes: duration,
		Reason:          in.Reason,
		TabURL:          in.TabURL,
		TabID:           in.TabID,
		Domain:          links.DomainFromURL(in.TabURL),
		CreatedAtISO:    m.journal.NowISO(),
	}

	if err := m.store.Set(ctx, store.KeyActiveSession, session); err != nil {
		return nil, err
	}
	if err := m.scheduleWakeup(ctx, session.EndsAt); err != nil {
		return nil, err
	}
	if err := m.journal.Append(ctx, journal.Entry{Type: journal.TypeSessionStarted, Session: session}); err != nil {
		return nil, err
	}

	return session, nil
}

// FinishIfDue is the idempotent expiry check. It returns nil when there is
// no running session, the session unchanged when it has not reached its
// deadline, and the ended session once it has. Ending penalizes the active
// tab's domain (falling back to the session's original domain) by one point
// unless the domain is opted out, notifies best-effort, and appends a
// session_ended history entry. Already-ended sessions are a no-op.
func (m *Manager) FinishIfDue(ctx context.Context) (*Session, error) {
	session, err := m.Active(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Ended {
		return nil, nil
	}
	if m.now().UnixMilli() < session.EndsAt {
		return session, nil
	}

	targetDomain := m.activeTabDomain(ctx)
	if targetDomain == "" {
		targetDomain = session.Domain
	}

	nudgedAt := m.now().UnixMilli()
	session.Domain = targetDomain
	session.Ended = true
	session.NudgedAt = &nudgedAt

	if err := m.store.Set(ctx, store.KeyActiveSession, session); err != nil {
		return nil, err
	}

	optedOut, err := m.optOuts.Contains(ctx, targetDomain)
	if err != nil {
		return nil, err
	}
	if !optedOut {
		if _, _, err := m.ledger.Penalize(ctx, targetDomain, 1); err != nil {
			return nil, err
		}
	}

	if err := m.journal.Append(ctx, journal.Entry{Type: journal.TypeSessionEnded, Session: session}); err != nil {
		return nil, err
	}

	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, "MindfulTab", "Timer ended. Pause and decide your next step."); err != nil {
			m.logger.Warn("notification failed", zap.Error(err))
		}
	}

	return session, nil
}

// ResetForNewTab discards any session unconditionally: opening a new-tab
// page means reflection must be re-initiated.
func (m *Manager) ResetForNewTab(ctx context.Context) error {
	if err := m.alarms.Clear(ctx, AlarmName); err != nil {
		m.logger.Warn("clear alarm failed", zap.Error(err))
	}
	if err := m.store.Remove(ctx, store.KeyActiveSession); err != nil {
		return err
	}
	return m.journal.Append(ctx, journal.Entry{Type: journal.TypeSessionResetNewTab})
}

// HandleTabClosed cancels the session when its owning tab closes. Ended
// sessions stay in place (the user still gets to see the outcome); sessions
// owned by other tabs are untouched.
func (m *Manager) HandleTabClosed(ctx context.Context, tabID int) error {
	session, err := m.Active(ctx)
	if err != nil {
		return err
	}
	if session == nil || session.Ended {
		return nil
	}
	if session.TabID == nil || *session.TabID != tabID {
		return nil
	}

	if err := m.alarms.Clear(ctx, AlarmName); err != nil {
		m.logger.Warn("clear alarm failed", zap.Error(err))
	}
	if err := m.store.Remove(ctx, store.KeyActiveSession); err != nil {
		return err
	}
	return m.journal.Append(ctx, journal.Entry{Type: journal.TypeSessionCancelledTabClose, Session: session})
}

// scheduleWakeup replaces the wake-up alarm with one at endsAt.
func (m *Manager) scheduleWakeup(ctx context.Context, endsAt int64) error {
	if err := m.alarms.Clear(ctx, AlarmName); err != nil {
		m.logger.Warn("clear alarm failed", zap.Error(err))
	}
	return m.alarms.Schedule(ctx, AlarmName, time.UnixMilli(endsAt))
}

// activeTabDomain resolves the focused tab's domain, best-effort.
func (m *Manager) activeTabDomain(ctx context.Context) string {
	if m.tabs == nil {
		return ""
	}
	tab, err := m.tabs.ActiveTab(ctx)
	if err != nil || tab == nil {
		return ""
	}
	return links.DomainFromURL(tab.URL)
}
