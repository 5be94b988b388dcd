// Package mcp exposes the daemon's state to agents over the Model Context
// Protocol: browsing-history search, karma inspection, and the small set of
// mutations the settings page offers.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Fdondi/MindfulTab/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"mindful_state": {
		def:     stateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleState },
	},
	"mindful_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"mindful_links": {
		def:     linksToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLinks },
	},
	"mindful_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"mindful_start_timer": {
		def:     startTimerToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStartTimer },
	},
	"mindful_forgive": {
		def:     forgiveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleForgive },
	},
	"mindful_optout": {
		def:     optOutToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOptOut },
	},
}

// Tool definitions.
var (
	stateToolDef = mcp.NewTool("mindful_state",
		mcp.WithDescription("Current session, per-domain karma, visit counts, and settings."),
	)

	searchToolDef = mcp.NewTool("mindful_search",
		mcp.WithDescription("Rank visited links against a free-text query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text query")),
		mcp.WithString("mode", mcp.Description("History mode filter: extension_only_history, browser_history_api, or both_with_toggle")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 8)")),
	)

	linksToolDef = mcp.NewTool("mindful_links",
		mcp.WithDescription("Visited links filtered by history mode."),
		mcp.WithString("mode", mcp.Description("History mode filter")),
	)

	historyToolDef = mcp.NewTool("mindful_history",
		mcp.WithDescription("Recent gate/session history entries, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum entries (default 50)")),
	)

	startTimerToolDef = mcp.NewTool("mindful_start_timer",
		mcp.WithDescription("Start a timed focus session."),
		mcp.WithNumber("durationMinutes", mcp.Required(), mcp.Description("Session length in minutes (minimum 1)")),
		mcp.WithString("reason", mcp.Description("Why this session is being started")),
		mcp.WithString("tabUrl", mcp.Description("URL of the tab the session is for")),
	)

	forgiveToolDef = mcp.NewTool("mindful_forgive",
		mcp.WithDescription("Recover one karma point for a domain."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain to forgive")),
	)

	optOutToolDef = mcp.NewTool("mindful_optout",
		mcp.WithDescription("Toggle a domain's exemption from karma penalties and gating."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain to toggle")),
		mcp.WithBoolean("optedOut", mcp.Required(), mcp.Description("true to exempt the domain")),
	)
)

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with MindfulTab tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(h *Handlers, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"mindfultab",
		version,
		server.WithToolCapabilities(true),
	)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(h *Handlers, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(h, cfg, version))
}
