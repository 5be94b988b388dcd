package web

import (
	"html/template"
	"net/http"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/Fdondi/MindfulTab/internal/config"
	"github.com/Fdondi/MindfulTab/internal/journal"
	"github.com/Fdondi/MindfulTab/internal/karma"
	"github.com/Fdondi/MindfulTab/internal/links"
	"github.com/Fdondi/MindfulTab/internal/search"
	"github.com/Fdondi/MindfulTab/internal/session"
	"github.com/Fdondi/MindfulTab/internal/store"
)

// Handlers holds dependencies for dashboard pages.
type Handlers struct {
	store    *store.Store
	sessions *session.Manager
	ledger   *karma.Ledger
	optOuts  *karma.OptOuts
	links    *links.Set
	journal  *journal.Journal
	engine   *search.Engine
	logger   *zap.Logger
	renderer *Renderer
}

// NewHandlers creates a Handlers instance. The renderer is attached by
// NewServer once the template FS is ready.
func NewHandlers(s *store.Store, sessions *session.Manager, ledger *karma.Ledger, optOuts *karma.OptOuts,
	linkSet *links.Set, j *journal.Journal, engine *search.Engine, logger *zap.Logger) *Handlers {
	return &Handlers{
		store:    s,
		sessions: sessions,
		ledger:   ledger,
		optOuts:  optOuts,
		links:    linkSet,
		journal:  j,
		engine:   engine,
		logger:   logger,
	}
}

// DomainRow is one row of the karma table.
type DomainRow struct {
	Domain   string
	Score    int
	State    karma.State
	Visits   int
	OptedOut bool
}

// DashboardPageData is the template data for the dashboard page.
type DashboardPageData struct {
	PageData
	Session *session.Session
	Domains []DomainRow
}

// HandleDashboard renders the karma table and active session.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.sessions.Active(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	scores, err := h.ledger.All(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	optOuts, err := h.optOuts.All(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	visits, err := h.links.DomainVisits(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	settings, err := config.LoadSettings(ctx, h.store)
	if err != nil {
		h.fail(w, err)
		return
	}

	domainSet := make(map[string]bool)
	for d := range scores {
		domainSet[d] = true
	}
	for d := range optOuts {
		domainSet[d] = true
	}
	for d := range visits {
		domainSet[d] = true
	}

	rows := make([]DomainRow, 0, len(domainSet))
	for d := range domainSet {
		rows = append(rows, DomainRow{
			Domain:   d,
			Score:    scores[d],
			State:    karma.Classify(scores[d], settings.HideThresholds),
			Visits:   visits[d],
			OptedOut: optOuts[d],
		})
	}
	// Busiest domains first, like the settings page.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Visits != rows[j].Visits {
			return rows[i].Visits > rows[j].Visits
		}
		return rows[i].Domain < rows[j].Domain
	})

	h.renderer.Render(w, "dashboard.html", DashboardPageData{
		PageData: PageData{Title: "Dashboard", Version: h.renderer.version, Nav: "dashboard"},
		Session:  sess,
		Domains:  rows,
	})
}

// HistoryPageData is the template data for the history page.
type HistoryPageData struct {
	PageData
	Entries []journal.Entry
}

// HandleHistory renders the activity log.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.renderer.Render(w, "history.html", HistoryPageData{
		PageData: PageData{Title: "History", Version: h.renderer.version, Nav: "history"},
		Entries:  entries,
	})
}

// ReflectionView is a reflection with its markdown rendered.
type ReflectionView struct {
	journal.Reflection
	RenderedHTML template.HTML
}

// ReflectionsPageData is the template data for the reflections page.
type ReflectionsPageData struct {
	PageData
	Reflections []ReflectionView
}

// HandleReflections renders recorded reflections.
func (h *Handlers) HandleReflections(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	reflections, err := h.journal.Reflections(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}

	views := make([]ReflectionView, len(reflections))
	for i, refl := range reflections {
		views[i] = ReflectionView{
			Reflection:   refl,
			RenderedHTML: RenderMarkdown(refl.Reflection),
		}
	}
	h.renderer.Render(w, "reflections.html", ReflectionsPageData{
		PageData:    PageData{Title: "Reflections", Version: h.renderer.version, Nav: "reflections"},
		Reflections: views,
	})
}

// SearchPageData is the template data for the search page.
type SearchPageData struct {
	PageData
	Query   string
	Results []search.Result
}

// HandleSearch ranks visited links against the q parameter.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	var results []search.Result
	if query != "" {
		linkSet, err := h.links.ByMode(r.Context(), config.HistoryModeBoth)
		if err != nil {
			h.fail(w, err)
			return
		}
		results = h.engine.Suggest(r.Context(), query, linkSet, queryInt(r, "limit", 10))
	}

	h.renderer.Render(w, "search.html", SearchPageData{
		PageData: PageData{Title: "Search", Version: h.renderer.version, Nav: "search"},
		Query:    query,
		Results:  results,
	})
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	h.logger.Error("dashboard handler failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
