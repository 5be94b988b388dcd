package msg

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Fdondi/MindfulTab/internal/background"
	"github.com/Fdondi/MindfulTab/internal/config"
	"github.com/Fdondi/MindfulTab/internal/errors"
	"github.com/Fdondi/MindfulTab/internal/gate"
	"github.com/Fdondi/MindfulTab/internal/host"
	"github.com/Fdondi/MindfulTab/internal/journal"
	"github.com/Fdondi/MindfulTab/internal/karma"
	"github.com/Fdondi/MindfulTab/internal/links"
	"github.com/Fdondi/MindfulTab/internal/search"
	"github.com/Fdondi/MindfulTab/internal/session"
	"github.com/Fdondi/MindfulTab/internal/store"
)

// Handlers holds dependencies for message handlers.
type Handlers struct {
	store    *store.Store
	sessions *session.Manager
	ledger   *karma.Ledger
	optOuts  *karma.OptOuts
	links    *links.Set
	journal  *journal.Journal
	bypass   *gate.Bypass
	engine   *search.Engine
	watcher  *background.Watcher
	tabs     host.Tabs
	history  host.History
	logger   *zap.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(s *store.Store, sessions *session.Manager, ledger *karma.Ledger, optOuts *karma.OptOuts,
	linkSet *links.Set, j *journal.Journal, bypass *gate.Bypass, engine *search.Engine,
	watcher *background.Watcher, tabs host.Tabs, history host.History, logger *zap.Logger) *Handlers {
	return &Handlers{
		store:    s,
		sessions: sessions,
		ledger:   ledger,
		optOuts:  optOuts,
		links:    linkSet,
		journal:  j,
		bypass:   bypass,
		engine:   engine,
		watcher:  watcher,
		tabs:     tabs,
		history:  history,
		logger:   logger,
	}
}

// Request payload types

// StartTimerRequest carries start-timer arguments.
type StartTimerRequest struct {
	DurationMinutes int    `json:"durationMinutes"`
	Reason          string `json:"reason"`
	TabURL          string `json:"tabUrl"`
	TabID           *int   `json:"tabId,omitempty"`
}

// SetHistoryModeRequest carries set-history-mode arguments.
type SetHistoryModeRequest struct {
	Mode string `json:"mode"`
}

// GetVisitedLinksRequest carries get-visited-links arguments.
type GetVisitedLinksRequest struct {
	Mode string `json:"mode"`
}

// ContinueAnywayRequest carries continue-anyway arguments.
type ContinueAnywayRequest struct {
	Domain     string `json:"domain"`
	Reflection string `json:"reflection"`
	TargetURL  string `json:"targetUrl"`
	TabID      *int   `json:"tabId,omitempty"`
}

// DomainRequest carries a single-domain argument (forgive-karma).
type DomainRequest struct {
	Domain string `json:"domain"`
}

// SetDomainOptOutRequest carries set-domain-opt-out arguments.
type SetDomainOptOutRequest struct {
	Domain   string `json:"domain"`
	OptedOut bool   `json:"optedOut"`
}

// SearchLinksRequest carries search-links arguments.
type SearchLinksRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
	Limit int    `json:"limit"`
}

// RegisterRequest carries register arguments.
type RegisterRequest struct {
	GatePageURL string `json:"gatePageUrl"`
}

// TabEventRequest carries tab-updated/tab-activated arguments.
type TabEventRequest struct {
	TabID  int    `json:"tabId"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
}

// TabRemovedRequest carries tab-removed arguments.
type TabRemovedRequest struct {
	TabID int `json:"tabId"`
}

// HistoryItemsRequest carries a pushed browser-history snapshot.
type HistoryItemsRequest struct {
	Items []host.HistoryItem `json:"items"`
}

// Handler implementations

func (h *Handlers) handleStartTimer(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[StartTimerRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	sess, err := h.sessions.Start(ctx, session.StartInput{
		DurationMinutes: input.DurationMinutes,
		Reason:          input.Reason,
		TabURL:          input.TabURL,
		TabID:           input.TabID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"session": sess}, nil
}

func (h *Handlers) handleGetState(ctx context.Context, _ json.RawMessage) (any, error) {
	// A status poll doubles as an expiry check: the alarm may have fired
	// while the process was dormant.
	if _, err := h.sessions.FinishIfDue(ctx); err != nil {
		return nil, err
	}

	sess, err := h.sessions.Active(ctx)
	if err != nil {
		return nil, err
	}
	scores, err := h.ledger.All(ctx)
	if err != nil {
		return nil, err
	}
	visits, err := h.links.DomainVisits(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := config.LoadSettings(ctx, h.store)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"session":       sess,
		"karmaByDomain": scores,
		"domainVisits":  visits,
		"settings":      settings,
	}, nil
}

func (h *Handlers) handleResetNewTab(ctx context.Context, _ json.RawMessage) (any, error) {
	return nil, h.sessions.ResetForNewTab(ctx)
}

func (h *Handlers) handleSetHistoryMode(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[SetHistoryModeRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	mode := input.Mode
	if mode == "" {
		mode = config.HistoryModeBoth
	}

	settings, err := config.LoadSettings(ctx, h.store)
	if err != nil {
		return nil, err
	}
	settings.HistoryMode = mode
	if err := config.SaveSettings(ctx, h.store, settings); err != nil {
		return nil, err
	}
	return map[string]any{"settings": settings}, nil
}

func (h *Handlers) handleGetVisitedLinks(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[GetVisitedLinksRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	mode := input.Mode
	if mode == "" {
		settings, err := config.LoadSettings(ctx, h.store)
		if err != nil {
			return nil, err
		}
		mode = settings.HistoryMode
	}
	if mode == "" {
		mode = config.HistoryModeBoth
	}

	if mode != config.HistoryModeExtensionOnly {
		if _, err := h.links.Hydrate(ctx, h.history, links.OnDemandHydrateLimit); err != nil {
			// Hydration failure degrades to whatever is already stored.
			h.logger.Warn("history hydration failed", zap.Error(err))
		}
	}

	linkSet, err := h.links.ByMode(ctx, mode)
	if err != nil {
		return nil, err
	}
	return map[string]any{"links": linkSet, "mode": mode}, nil
}

func (h *Handlers) handleContinueAnyway(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[ContinueAnywayRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	err = h.journal.AppendReflection(ctx, journal.Reflection{
		Domain:     input.Domain,
		Reflection: input.Reflection,
	})
	if err != nil {
		return nil, err
	}
	err = h.journal.Append(ctx, journal.Entry{
		Type:      journal.TypeContinueAnyway,
		Domain:    input.Domain,
		TargetURL: input.TargetURL,
	})
	if err != nil {
		return nil, err
	}

	// Bypass is karma-neutral: the reflection is the cost, not a score change.
	h.bypass.Grant(input.Domain)

	if input.TargetURL != "" && input.TabID != nil {
		if err := h.tabs.Navigate(ctx, *input.TabID, input.TargetURL); err != nil {
			h.logger.Warn("continue-anyway redirect failed", zap.Int("tab", *input.TabID), zap.Error(err))
		}
	}
	return nil, nil
}

func (h *Handlers) handleGetKarmaSettings(ctx context.Context, _ json.RawMessage) (any, error) {
	scores, err := h.ledger.All(ctx)
	if err != nil {
		return nil, err
	}
	optOuts, err := h.optOuts.All(ctx)
	if err != nil {
		return nil, err
	}
	visits, err := h.links.DomainVisits(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"karmaByDomain": scores,
		"optOutDomains": optOuts,
		"domainVisits":  visits,
	}, nil
}

func (h *Handlers) handleForgiveKarma(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[DomainRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	domain := karma.Normalize(input.Domain)
	if domain == "" {
		return nil, errors.NewDomainRequired()
	}

	score, _, err := h.ledger.Recover(ctx, domain, 1)
	if err != nil {
		return nil, err
	}
	err = h.journal.Append(ctx, journal.Entry{Type: journal.TypeKarmaForgiven, Domain: domain})
	if err != nil {
		return nil, err
	}
	return map[string]any{"domain": domain, "score": score}, nil
}

func (h *Handlers) handleSetDomainOptOut(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[SetDomainOptOutRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	domain := karma.Normalize(input.Domain)
	if domain == "" {
		return nil, errors.NewDomainRequired()
	}

	if err := h.optOuts.Set(ctx, domain, input.OptedOut); err != nil {
		return nil, err
	}

	entryType := journal.TypeDomainOptOutDisabled
	if input.OptedOut {
		entryType = journal.TypeDomainOptOutEnabled
	}
	if err := h.journal.Append(ctx, journal.Entry{Type: entryType, Domain: domain}); err != nil {
		return nil, err
	}
	return map[string]any{"domain": domain, "optedOut": input.OptedOut}, nil
}

func (h *Handlers) handleSearchLinks(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[SearchLinksRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	mode := input.Mode
	if mode == "" {
		mode = config.HistoryModeBoth
	}
	linkSet, err := h.links.ByMode(ctx, mode)
	if err != nil {
		return nil, err
	}

	results := h.engine.Suggest(ctx, input.Query, linkSet, input.Limit)
	return map[string]any{"results": results, "mode": mode}, nil
}

func (h *Handlers) handleRegister(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[RegisterRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	if input.GatePageURL != "" {
		h.watcher.SetGatePage(input.GatePageURL)
	}
	if err := h.watcher.OnInstalled(ctx); err != nil {
		return nil, err
	}
	settings, err := config.LoadSettings(ctx, h.store)
	if err != nil {
		return nil, err
	}
	return map[string]any{"settings": settings}, nil
}

func (h *Handlers) handleTabUpdated(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[TabEventRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	if input.Status != "" && input.Status != "complete" {
		return nil, nil
	}

	decision, err := h.watcher.OnNavigationComplete(ctx, host.Tab{
		ID:    input.TabID,
		URL:   input.URL,
		Title: input.Title,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"action": decision.Action}, nil
}

func (h *Handlers) handleTabActivated(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[TabEventRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	h.watcher.OnTabActivated(ctx, host.Tab{ID: input.TabID, URL: input.URL, Title: input.Title})
	return nil, nil
}

func (h *Handlers) handleTabRemoved(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[TabRemovedRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return nil, h.watcher.OnTabRemoved(ctx, input.TabID)
}

func (h *Handlers) handleHistoryItems(ctx context.Context, payload json.RawMessage) (any, error) {
	input, err := decode[HistoryItemsRequest](payload)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	if cache, ok := h.history.(*HistoryCache); ok {
		cache.Replace(input.Items)
	}
	merged, err := h.links.Hydrate(ctx, h.history, len(input.Items))
	if err != nil {
		return nil, err
	}
	return map[string]any{"merged": merged}, nil
}
