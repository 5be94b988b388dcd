// Package msg implements the {type, payload} message protocol the extension
// pages speak to the daemon, including the native-messaging transport.
package msg

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Fdondi/MindfulTab/internal/errors"
)

// Message types. The prefix namespaces them against other extensions sharing
// a native host.
const (
	TypeStartTimer      = "mindfultab/start-timer"
	TypeGetState        = "mindfultab/get-state"
	TypeResetNewTab     = "mindfultab/reset-session-newtab"
	TypeSetHistoryMode  = "mindfultab/set-history-mode"
	TypeGetVisitedLinks = "mindfultab/get-visited-links"
	TypeContinueAnyway  = "mindfultab/continue-anyway"
	TypeGetKarmaState   = "mindfultab/get-karma-settings"
	TypeForgiveKarma    = "mindfultab/forgive-karma"
	TypeSetDomainOptOut = "mindfultab/set-domain-opt-out"
	TypeSearchLinks     = "mindfultab/search-links"
	TypeRegister        = "mindfultab/register"

	// Event types pushed by the extension.
	TypeTabUpdated   = "mindfultab/tab-updated"
	TypeTabActivated = "mindfultab/tab-activated"
	TypeTabRemoved   = "mindfultab/tab-removed"
	TypeHistoryItems = "mindfultab/history-items"

	// Outbound command pushed by the daemon.
	TypeNavigateTab = "mindfultab/navigate-tab"
)

// Request is one inbound message.
type Request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the reply map. Every response carries "ok"; failures carry
// "error" instead of result fields.
type Response map[string]any

// handlerFunc processes one message type.
type handlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Router dispatches requests to handlers by type.
type Router struct {
	handlers map[string]handlerFunc
	logger   *zap.Logger
}

// NewRouter builds the full message registry over h.
func NewRouter(h *Handlers, logger *zap.Logger) *Router {
	return &Router{
		logger: logger,
		handlers: map[string]handlerFunc{
			TypeStartTimer:      h.handleStartTimer,
			TypeGetState:        h.handleGetState,
			TypeResetNewTab:     h.handleResetNewTab,
			TypeSetHistoryMode:  h.handleSetHistoryMode,
			TypeGetVisitedLinks: h.handleGetVisitedLinks,
			TypeContinueAnyway:  h.handleContinueAnyway,
			TypeGetKarmaState:   h.handleGetKarmaSettings,
			TypeForgiveKarma:    h.handleForgiveKarma,
			TypeSetDomainOptOut: h.handleSetDomainOptOut,
			TypeSearchLinks:     h.handleSearchLinks,
			TypeRegister:        h.handleRegister,
			TypeTabUpdated:      h.handleTabUpdated,
			TypeTabActivated:    h.handleTabActivated,
			TypeTabRemoved:      h.handleTabRemoved,
			TypeHistoryItems:    h.handleHistoryItems,
		},
	}
}

// Dispatch routes a request and wraps the result into a Response. Handler
// errors become {ok:false, error} rather than transport failures.
func (r *Router) Dispatch(ctx context.Context, req Request) Response {
	handler, ok := r.handlers[req.Type]
	if !ok {
		return Response{"ok": false, "error": "Unknown message type"}
	}

	result, err := handler(ctx, req.Payload)
	if err != nil {
		if mErr, isMindful := err.(*errors.MindfulError); isMindful {
			return Response{"ok": false, "error": mErr.Message}
		}
		r.logger.Error("handler failed", zap.String("type", req.Type), zap.Error(err))
		return Response{"ok": false, "error": err.Error()}
	}

	return successResponse(result)
}

// successResponse flattens a handler result's fields next to ok:true,
// matching the extension's response shape ({ok, session, ...}).
func successResponse(result any) Response {
	resp := Response{"ok": true}
	if result == nil {
		return resp
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return Response{"ok": false, "error": fmt.Sprintf("encode response: %v", err)}
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Response{"ok": false, "error": fmt.Sprintf("encode response: %v", err)}
	}
	for k, v := range fields {
		resp[k] = v
	}
	return resp
}

// decode unmarshals a payload into a typed struct. A missing payload decodes
// to the zero value.
func decode[T any](payload json.RawMessage) (T, error) {
	var result T
	if len(payload) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
