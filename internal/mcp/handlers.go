package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Fdondi/MindfulTab/internal/config"
	"github.com/Fdondi/MindfulTab/internal/errors"
	"github.com/Fdondi/MindfulTab/internal/journal"
	"github.com/Fdondi/MindfulTab/internal/karma"
	"github.com/Fdondi/MindfulTab/internal/links"
	"github.com/Fdondi/MindfulTab/internal/search"
	"github.com/Fdondi/MindfulTab/internal/session"
	"github.com/Fdondi/MindfulTab/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store    *store.Store
	sessions *session.Manager
	ledger   *karma.Ledger
	optOuts  *karma.OptOuts
	links    *links.Set
	journal  *journal.Journal
	engine   *search.Engine
}

// NewHandlers creates a Handlers instance.
func NewHandlers(s *store.Store, sessions *session.Manager, ledger *karma.Ledger, optOuts *karma.OptOuts,
	linkSet *links.Set, j *journal.Journal, engine *search.Engine) *Handlers {
	return &Handlers{
		store:    s,
		sessions: sessions,
		ledger:   ledger,
		optOuts:  optOuts,
		links:    linkSet,
		journal:  j,
		engine:   engine,
	}
}

// Request types for each tool

// SearchRequest represents the arguments for mindful_search.
type SearchRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// LinksRequest represents the arguments for mindful_links.
type LinksRequest struct {
	Mode string `json:"mode,omitempty"`
}

// HistoryRequest represents the arguments for mindful_history.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// StartTimerRequest represents the arguments for mindful_start_timer.
type StartTimerRequest struct {
	DurationMinutes int    `json:"durationMinutes"`
	Reason          string `json:"reason,omitempty"`
	TabURL          string `json:"tabUrl,omitempty"`
}

// ForgiveRequest represents the arguments for mindful_forgive.
type ForgiveRequest struct {
	Domain string `json:"domain"`
}

// OptOutRequest represents the arguments for mindful_optout.
type OptOutRequest struct {
	Domain   string `json:"domain"`
	OptedOut bool   `json:"optedOut"`
}

// Handler implementations

// HandleState handles the mindful_state tool call.
func (h *Handlers) HandleState(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := h.sessions.FinishIfDue(ctx); err != nil {
		return errorResult(err), nil
	}

	sess, err := h.sessions.Active(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	scores, err := h.ledger.All(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	visits, err := h.links.DomainVisits(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	settings, err := config.LoadSettings(ctx, h.store)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"session":       sess,
		"karmaByDomain": scores,
		"domainVisits":  visits,
		"settings":      settings,
	})
}

// HandleSearch handles the mindful_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Query == "" {
		return errorResult(errors.NewInvalidRequest("query is required")), nil
	}

	mode := input.Mode
	if mode == "" {
		mode = config.HistoryModeBoth
	}
	linkSet, err := h.links.ByMode(ctx, mode)
	if err != nil {
		return errorResult(err), nil
	}

	results := h.engine.Suggest(ctx, input.Query, linkSet, input.Limit)
	return successResult(map[string]any{"results": results, "mode": mode})
}

// HandleLinks handles the mindful_links tool call.
func (h *Handlers) HandleLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LinksRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	mode := input.Mode
	if mode == "" {
		mode = config.HistoryModeBoth
	}
	linkSet, err := h.links.ByMode(ctx, mode)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"links": linkSet, "mode": mode})
}

// HandleHistory handles the mindful_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}
	entries, err := h.journal.Recent(ctx, limit)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"entries": entries})
}

// HandleStartTimer handles the mindful_start_timer tool call.
func (h *Handlers) HandleStartTimer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StartTimerRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	sess, err := h.sessions.Start(ctx, session.StartInput{
		DurationMinutes: input.DurationMinutes,
		Reason:          input.Reason,
		TabURL:          input.TabURL,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"session": sess})
}

// HandleForgive handles the mindful_forgive tool call.
func (h *Handlers) HandleForgive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ForgiveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	domain := karma.Normalize(input.Domain)
	if domain == "" {
		return errorResult(errors.NewDomainRequired()), nil
	}

	score, _, err := h.ledger.Recover(ctx, domain, 1)
	if err != nil {
		return errorResult(err), nil
	}
	if err := h.journal.Append(ctx, journal.Entry{Type: journal.TypeKarmaForgiven, Domain: domain}); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"domain": domain, "score": score})
}

// HandleOptOut handles the mindful_optout tool call.
func (h *Handlers) HandleOptOut(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OptOutRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	domain := karma.Normalize(input.Domain)
	if domain == "" {
		return errorResult(errors.NewDomainRequired()), nil
	}

	if err := h.optOuts.Set(ctx, domain, input.OptedOut); err != nil {
		return errorResult(err), nil
	}

	entryType := journal.TypeDomainOptOutDisabled
	if input.OptedOut {
		entryType = journal.TypeDomainOptOutEnabled
	}
	if err := h.journal.Append(ctx, journal.Entry{Type: entryType, Domain: domain}); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"domain": domain, "optedOut": input.OptedOut})
}

// errorResult creates an MCP error result carrying the structured error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if mErr, ok := err.(*errors.MindfulError); ok {
		errorObj := map[string]any{
			"code":    mErr.Code,
			"message": mErr.Message,
			"status":  mErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if mErr.Code != errors.ErrInternal && mErr.Details != nil {
			errorObj["details"] = mErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
