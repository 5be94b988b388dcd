package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/Fdondi/MindfulTab/internal/config"
	"github.com/Fdondi/MindfulTab/internal/errors"
	"github.com/Fdondi/MindfulTab/internal/host/hosttest"
	"github.com/Fdondi/MindfulTab/internal/journal"
	"github.com/Fdondi/MindfulTab/internal/karma"
	"github.com/Fdondi/MindfulTab/internal/links"
	"github.com/Fdondi/MindfulTab/internal/search"
	"github.com/Fdondi/MindfulTab/internal/session"
	"github.com/Fdondi/MindfulTab/internal/store"
)

// testSetup creates a temporary store and the full handler dependency graph.
func testSetup(t *testing.T) (*Handlers, *store.Store) {
	t.Helper()

	st, err := store.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ledger := karma.NewLedger(st)
	optOuts := karma.NewOptOuts(st)
	linkSet := links.NewSet(st)
	j := journal.New(st)
	sessions := session.NewManager(st, ledger, optOuts, j,
		hosttest.NewTabs(), hosttest.NewAlarms(), &hosttest.Notifier{}, zap.NewNop())
	engine := search.NewEngine(search.NewIndexer(st))

	return NewHandlers(st, sessions, ledger, optOuts, linkSet, j, engine), st
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultPayload decodes a tool result's JSON text content.
func resultPayload(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", r.Content[0])
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return payload
}

func TestHandleState(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()

	r, err := h.HandleState(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("HandleState failed: %v", err)
	}
	if r.IsError {
		t.Fatalf("IsError = true: %v", r.Content)
	}

	payload := resultPayload(t, r)
	if _, ok := payload["settings"]; !ok {
		t.Error("payload missing settings")
	}
	if _, ok := payload["karmaByDomain"]; !ok {
		t.Error("payload missing karmaByDomain")
	}
	if payload["session"] != nil {
		t.Errorf("session = %v, want null with no session started", payload["session"])
	}
}

func TestHandleSearch(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()

	err := h.links.Upsert(ctx, links.VisitedLink{
		URL:       "https://go.dev/blog/pipelines",
		Title:     "go concurrency pipelines",
		LastVisit: time.Now().UnixMilli(),
		Source:    links.SourceExtension,
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	r, err := h.HandleSearch(ctx, makeRequest(map[string]any{"query": "concurrency"}))
	if err != nil {
		t.Fatalf("HandleSearch failed: %v", err)
	}
	if r.IsError {
		t.Fatalf("IsError = true: %v", r.Content)
	}

	payload := resultPayload(t, r)
	results, ok := payload["results"].([]any)
	if !ok {
		t.Fatalf("results = %T, want array", payload["results"])
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1", len(results))
	}
	if payload["mode"] != config.HistoryModeBoth {
		t.Errorf("mode = %v, want default %q", payload["mode"], config.HistoryModeBoth)
	}
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	h, _ := testSetup(t)

	r, err := h.HandleSearch(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("HandleSearch failed: %v", err)
	}
	if !r.IsError {
		t.Fatal("IsError = false for a missing query")
	}
}

func TestHandleLinks(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()

	err := h.links.Upsert(ctx, links.VisitedLink{
		URL:    "https://a.test/x",
		Source: links.SourceBrowser,
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	r, err := h.HandleLinks(ctx, makeRequest(map[string]any{"mode": config.HistoryModeExtensionOnly}))
	if err != nil {
		t.Fatalf("HandleLinks failed: %v", err)
	}

	payload := resultPayload(t, r)
	links, _ := payload["links"].([]any)
	if len(links) != 0 {
		t.Errorf("links = %d in extension-only mode, want 0 (stored link is browser-sourced)", len(links))
	}
}

func TestHandleHistory(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := h.journal.Append(ctx, journal.Entry{
			Type:   journal.TypeKarmaForgiven,
			Domain: fmt.Sprintf("d%d.test", i),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	r, err := h.HandleHistory(ctx, makeRequest(map[string]any{"limit": 2}))
	if err != nil {
		t.Fatalf("HandleHistory failed: %v", err)
	}

	payload := resultPayload(t, r)
	entries, ok := payload["entries"].([]any)
	if !ok {
		t.Fatalf("entries = %T, want array", payload["entries"])
	}
	if len(entries) != 2 {
		t.Errorf("entries = %d, want limit 2", len(entries))
	}
}

func TestHandleStartTimer(t *testing.T) {
	h, _ := testSetup(t)

	r, err := h.HandleStartTimer(context.Background(), makeRequest(map[string]any{
		"durationMinutes": 25,
		"reason":          "deep work",
		"tabUrl":          "https://example.com/doc",
	}))
	if err != nil {
		t.Fatalf("HandleStartTimer failed: %v", err)
	}
	if r.IsError {
		t.Fatalf("IsError = true: %v", r.Content)
	}

	payload := resultPayload(t, r)
	sess, ok := payload["session"].(map[string]any)
	if !ok {
		t.Fatalf("session = %T, want object", payload["session"])
	}
	if sess["reason"] != "deep work" {
		t.Errorf("reason = %v, want %q", sess["reason"], "deep work")
	}
	if sess["domain"] != "example.com" {
		t.Errorf("domain = %v, want %q", sess["domain"], "example.com")
	}
}

func TestHandleForgive(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()

	if _, _, err := h.ledger.Penalize(ctx, "example.com", 2); err != nil {
		t.Fatalf("Penalize failed: %v", err)
	}

	r, err := h.HandleForgive(ctx, makeRequest(map[string]any{"domain": "Example.COM"}))
	if err != nil {
		t.Fatalf("HandleForgive failed: %v", err)
	}
	if r.IsError {
		t.Fatalf("IsError = true: %v", r.Content)
	}

	payload := resultPayload(t, r)
	if payload["domain"] != "example.com" {
		t.Errorf("domain = %v, want normalized %q", payload["domain"], "example.com")
	}
	if payload["score"] != float64(-1) {
		t.Errorf("score = %v, want -1", payload["score"])
	}
}

func TestHandleForgive_BlankDomain(t *testing.T) {
	h, _ := testSetup(t)

	r, err := h.HandleForgive(context.Background(), makeRequest(map[string]any{"domain": "   "}))
	if err != nil {
		t.Fatalf("HandleForgive failed: %v", err)
	}
	if !r.IsError {
		t.Fatal("IsError = false for a blank domain")
	}

	payload := resultPayload(t, r)
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("error = %T, want object", payload["error"])
	}
	if errObj["message"] != "Domain is required" {
		t.Errorf("message = %v, want %q", errObj["message"], "Domain is required")
	}
}

func TestHandleOptOut(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()

	r, err := h.HandleOptOut(ctx, makeRequest(map[string]any{"domain": "example.com", "optedOut": true}))
	if err != nil {
		t.Fatalf("HandleOptOut failed: %v", err)
	}
	if r.IsError {
		t.Fatalf("IsError = true: %v", r.Content)
	}

	optedOut, err := h.optOuts.Contains(ctx, "example.com")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !optedOut {
		t.Error("domain not opted out after tool call")
	}

	entries, _ := h.journal.Recent(ctx, 1)
	if len(entries) != 1 || entries[0].Type != journal.TypeDomainOptOutEnabled {
		t.Errorf("latest entry = %+v, want domain_opt_out_enabled", entries)
	}
}

func TestServerRegistration(t *testing.T) {
	h, _ := testSetup(t)
	cfg := config.DefaultConfig()

	s := NewServer(h, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"mindful_state",
		"mindful_search",
		"mindful_links",
		"mindful_history",
		"mindful_start_timer",
		"mindful_forgive",
		"mindful_optout",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	h, _ := testSetup(t)
	cfg := config.DefaultConfig()
	cfg.DisabledTools = []string{"mindful_forgive", "mindful_optout"}

	s := NewServer(h, cfg, "test")
	tools := s.ListTools()

	if len(tools) != 5 {
		t.Errorf("registered tool count = %d, want 5", len(tools))
	}
	for _, name := range cfg.DisabledTools {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["mindful_state"]; !ok {
		t.Error("core tool mindful_state should be registered")
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	h, _ := testSetup(t)
	cfg := config.DefaultConfig()
	cfg.DisabledTools = AllToolNames()

	s := NewServer(h, cfg, "test")
	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{
			name:    "all valid",
			input:   []string{"mindful_forgive", "mindful_optout"},
			wantLen: 0,
		},
		{
			name:    "one unknown",
			input:   []string{"mindful_forgive", "fake_tool"},
			wantLen: 1,
		},
		{
			name:    "all unknown",
			input:   []string{"foo", "bar"},
			wantLen: 2,
		},
		{
			name:    "empty list",
			input:   []string{},
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()

	if len(names) != 7 {
		t.Errorf("AllToolNames() returned %d names, want 7", len(names))
	}
	if unknown := ValidateDisabledTools(names); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

func TestErrorResult_InternalOmitsDetails(t *testing.T) {
	internal := errors.NewInternal(fmt.Errorf("open /tmp/secret.db: permission denied"))
	internal.Details = map[string]any{"path": "/tmp/secret.db"}

	r := errorResult(internal)
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	payload := resultPayload(t, r)
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != "INTERNAL" {
		t.Errorf("code = %v, want INTERNAL", errObj["code"])
	}
	if _, ok := errObj["details"]; ok {
		t.Error("internal error result should not carry details")
	}
}

func TestErrorResult_NonMindfulError(t *testing.T) {
	r := errorResult(fmt.Errorf("plain failure"))

	payload := resultPayload(t, r)
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != "INTERNAL" {
		t.Errorf("code = %v, want INTERNAL", errObj["code"])
	}
	if errObj["message"] == "plain failure" {
		t.Error("raw error message leaked into the result")
	}
}
