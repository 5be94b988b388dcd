// Package background wires browser events into the core: navigation
// completions run the visit recorder and the gate, tab lifecycle events feed
// the tracker and the session manager, and alarms trigger the expiry check.
package background

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Fdondi/MindfulTab/internal/config"
	"github.com/Fdondi/MindfulTab/internal/gate"
	"github.com/Fdondi/MindfulTab/internal/host"
	"github.com/Fdondi/MindfulTab/internal/journal"
	"github.com/Fdondi/MindfulTab/internal/karma"
	"github.com/Fdondi/MindfulTab/internal/links"
	"github.com/Fdondi/MindfulTab/internal/session"
	"github.com/Fdondi/MindfulTab/internal/store"
)

// Watcher handles the event stream from the browser.
type Watcher struct {
	store    *store.Store
	links    *links.Set
	ledger   *karma.Ledger
	optOuts  *karma.OptOuts
	sessions *session.Manager
	journal  *journal.Journal
	bypass   *gate.Bypass
	tracker  *Tracker
	tabs     host.Tabs
	history  host.History
	logger   *zap.Logger

	mu       sync.Mutex
	gatePage string
	nowMilli func() int64
}

// NewWatcher wires a Watcher. gatePage is the absolute URL of the reflection
// page inside the extension; the extension updates it at registration time.
func NewWatcher(s *store.Store, linkSet *links.Set, ledger *karma.Ledger, optOuts *karma.OptOuts,
	sessions *session.Manager, j *journal.Journal, bypass *gate.Bypass, tracker *Tracker,
	tabs host.Tabs, history host.History, gatePage string, logger *zap.Logger) *Watcher {
	return &Watcher{
		store:    s,
		links:    linkSet,
		ledger:   ledger,
		optOuts:  optOuts,
		sessions: sessions,
		journal:  j,
		bypass:   bypass,
		tracker:  tracker,
		tabs:     tabs,
		history:  history,
		logger:   logger,
		gatePage: gatePage,
		nowMilli: nowMilli,
	}
}

func nowMilli() int64 {
	return time.Now().UnixMilli()
}

// SetGatePage updates the gate page URL (sent by the extension on register).
func (w *Watcher) SetGatePage(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gatePage = url
}

// GatePage returns the current gate page URL.
func (w *Watcher) GatePage() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gatePage
}

// SetNowMilli overrides the clock, for tests.
func (w *Watcher) SetNowMilli(f func() int64) {
	w.nowMilli = f
}

// OnNavigationComplete handles a completed navigation in a tab: record the
// visit, upsert the link, and run the gate. Returns the gate decision for
// observability; gating side effects (redirect, history entry) have already
// happened by the time it returns.
func (w *Watcher) OnNavigationComplete(ctx context.Context, tab host.Tab) (gate.Decision, error) {
	w.tracker.Observe(tab)

	if err := w.recordVisit(ctx, tab); err != nil {
		return gate.Decision{}, err
	}

	if links.Trackable(tab.URL) {
		title := tab.Title
		if title == "" {
			title = links.DomainFromURL(tab.URL)
		}
		err := w.links.Upsert(ctx, links.VisitedLink{
			URL:        tab.URL,
			Title:      title,
			VisitCount: 1,
			LastVisit:  w.nowMilli(),
			Source:     links.SourceExtension,
		})
		if err != nil {
			return gate.Decision{}, err
		}
	}

	return w.runGate(ctx, tab)
}

// OnTabActivated handles focus moving to a tab. Visit recording here is
// best-effort: tab lifecycle races are ignored.
func (w *Watcher) OnTabActivated(ctx context.Context, tab host.Tab) {
	w.tracker.Observe(tab)
	w.tracker.SetActive(tab.ID)
	if err := w.recordVisit(ctx, tab); err != nil {
		w.logger.Warn("record visit on activate failed", zap.Error(err))
	}
}

// OnTabRemoved handles a tab closing: drop its cached state and cancel the
// session if the tab owned one.
func (w *Watcher) OnTabRemoved(ctx context.Context, tabID int) error {
	w.tracker.Forget(tabID)
	return w.sessions.HandleTabClosed(ctx, tabID)
}

// OnAlarm handles a scheduled wake-up.
func (w *Watcher) OnAlarm(ctx context.Context, name string) error {
	if name != session.AlarmName {
		return nil
	}
	_, err := w.sessions.FinishIfDue(ctx)
	return err
}

// OnInstalled persists default settings and seeds the visited-link set from
// browser history.
func (w *Watcher) OnInstalled(ctx context.Context) error {
	settings, err := config.LoadSettings(ctx, w.store)
	if err != nil {
		return err
	}
	if err := config.SaveSettings(ctx, w.store, settings); err != nil {
		return err
	}
	if _, err := w.links.Hydrate(ctx, w.history, links.InstallHydrateLimit); err != nil {
		w.logger.Warn("history hydration failed", zap.Error(err))
	}
	return nil
}

// recordVisit bumps the domain counter once per distinct URL per tab and
// upserts a minimal link for it.
func (w *Watcher) recordVisit(ctx context.Context, tab host.Tab) error {
	if !links.Trackable(tab.URL) {
		return nil
	}
	if w.tracker.LastURL(tab.ID) == tab.URL {
		return nil
	}
	domain := links.DomainFromURL(tab.URL)
	if domain == "" {
		return nil
	}

	count, err := w.links.RecordDomainVisit(ctx, domain)
	if err != nil {
		return err
	}
	err = w.links.Upsert(ctx, links.VisitedLink{
		URL:        tab.URL,
		Title:      domain,
		VisitCount: count,
		LastVisit:  w.nowMilli(),
		Source:     links.SourceExtension,
	})
	if err != nil {
		return err
	}

	w.tracker.SetLastURL(tab.ID, tab.URL)
	return nil
}

// runGate evaluates the gate for a completed navigation and redirects the
// tab when it decides to intercept.
func (w *Watcher) runGate(ctx context.Context, tab host.Tab) (gate.Decision, error) {
	domain := links.DomainFromURL(tab.URL)

	in := gate.Input{
		URL:    tab.URL,
		Domain: domain,
	}

	if !gate.NeverGate(tab.URL) && domain != "" {
		settings, err := config.LoadSettings(ctx, w.store)
		if err != nil {
			return gate.Decision{}, err
		}
		score, err := w.ledger.Read(ctx, domain)
		if err != nil {
			return gate.Decision{}, err
		}
		optedOut, err := w.optOuts.Contains(ctx, domain)
		if err != nil {
			return gate.Decision{}, err
		}
		in.Score = score
		in.Thresholds = settings.HideThresholds
		in.OptedOut = optedOut
		in.BypassActive = w.bypass.Active(domain)
	}

	decision := gate.Decide(in)
	if decision.Action != gate.ActionGate {
		return decision, nil
	}

	gateURL := gate.PageURL(w.GatePage(), tab.URL, domain, decision.Score)
	if err := w.tabs.Navigate(ctx, tab.ID, gateURL); err != nil {
		// The tab may already be gone; the gate entry is still recorded.
		w.logger.Warn("gate redirect failed", zap.Int("tab", tab.ID), zap.Error(err))
	}

	score := decision.Score
	err := w.journal.Append(ctx, journal.Entry{
		Type:      journal.TypeReflectionGateShown,
		Domain:    domain,
		Score:     &score,
		TargetURL: tab.URL,
	})
	if err != nil {
		return decision, err
	}
	return decision, nil
}
