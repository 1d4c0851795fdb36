package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tabshelf/internal/config"
	"github.com/hpungsan/tabshelf/internal/db"
	"github.com/hpungsan/tabshelf/internal/errors"
)

// testSetup creates a temporary database and config for testing.
func testSetup(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database, config.DefaultConfig()
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func mustCall(t *testing.T, fn func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]any) map[string]any {
	t.Helper()
	result, err := fn(context.Background(), makeRequest(name, args))
	if err != nil {
		t.Fatalf("%s returned error: %v", name, err)
	}
	return parseOutput(t, result)
}

func TestHandleWorkspaceCreate(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name:      "valid default workspace",
			args:      map[string]any{"id": "w1", "name": "Home", "isDefault": true},
			wantError: false,
		},
		{
			name:      "generated id",
			args:      map[string]any{"name": "Research"},
			wantError: false,
		},
		{
			name:      "missing name",
			args:      map[string]any{"id": "w2"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "duplicate id",
			args:      map[string]any{"id": "w1", "name": "Again"},
			wantError: true,
			errorCode: "DUPLICATE_KEY",
		},
		{
			name:      "wrong argument type",
			args:      map[string]any{"name": 42},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleWorkspaceCreate(ctx, makeRequest("workspace_create", tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
			} else if result.IsError {
				t.Errorf("expected success, got error: %v", extractErrorMessage(result))
			}
		})
	}
}

func TestHandleGroupCreate_DuplicatePosition(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg, nil)

	mustCall(t, h.HandleWorkspaceCreate, "workspace_create", map[string]any{"id": "w1", "name": "Home", "isDefault": true})
	out := mustCall(t, h.HandleGroupCreate, "group_create", map[string]any{"id": "g1", "workspaceId": "w1", "name": "Work", "position": 0})
	if out["position"] != float64(0) {
		t.Errorf("position = %v, want 0", out["position"])
	}

	result, err := h.HandleGroupCreate(context.Background(), makeRequest("group_create", map[string]any{
		"id": "g2", "workspaceId": "w1", "name": "Play", "position": 0,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "DUPLICATE_POSITION")

	details := errorDetails(t, result)
	if details["occupant_id"] != "g1" {
		t.Errorf("occupant_id = %v, want g1", details["occupant_id"])
	}

	out = mustCall(t, h.HandleGroupCreate, "group_create", map[string]any{"id": "g2", "workspaceId": "w1", "name": "Play", "position": 1})
	if out["id"] != "g2" {
		t.Errorf("id = %v, want g2", out["id"])
	}
}

func TestHandleTabDeleteAndRestore(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg, nil)

	mustCall(t, h.HandleWorkspaceCreate, "workspace_create", map[string]any{"id": "w1", "name": "Home"})
	mustCall(t, h.HandleGroupCreate, "group_create", map[string]any{"id": "g1", "workspaceId": "w1", "name": "Reading"})
	mustCall(t, h.HandleTabCreate, "tab_create", map[string]any{"id": "t1", "groupId": "g1", "url": "https://go.dev", "title": "Go"})
	mustCall(t, h.HandleTabCreate, "tab_create", map[string]any{"id": "t2", "groupId": "g1", "url": "https://pkg.go.dev"})

	count := mustCall(t, h.HandleCountGroupTabs, "count_group_tabs", map[string]any{"id": "g1"})
	if count["count"] != float64(2) {
		t.Errorf("count = %v, want 2", count["count"])
	}

	deleted := mustCall(t, h.HandleTabDelete, "tab_delete", map[string]any{"id": "t1"})
	deletedID, _ := deleted["deletedItemId"].(string)
	if deletedID == "" {
		t.Fatalf("deletedItemId missing: %v", deleted)
	}

	trash := mustCall(t, h.HandleTrashList, "trash_list", map[string]any{"type": "tab"})
	if trash["total"] != float64(1) {
		t.Errorf("trash total = %v, want 1", trash["total"])
	}

	restored := mustCall(t, h.HandleTrashRestore, "trash_restore", map[string]any{"id": deletedID})
	items, _ := restored["restored"].([]any)
	if len(items) != 1 {
		t.Fatalf("restored = %v", restored)
	}

	tab := mustCall(t, h.HandleTabGet, "tab_get", map[string]any{"id": "t1"})
	if tab["title"] != "Go" || tab["position"] != float64(0) {
		t.Errorf("restored tab = %v", tab)
	}

	list := mustCall(t, h.HandleTabList, "tab_list", map[string]any{"groupId": "g1"})
	if tabs, _ := list["items"].([]any); len(tabs) != 2 {
		t.Errorf("tab_list items = %v", list["items"])
	}
}

func TestHandleTabReorder(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg, nil)

	mustCall(t, h.HandleWorkspaceCreate, "workspace_create", map[string]any{"id": "w1", "name": "Home"})
	mustCall(t, h.HandleGroupCreate, "group_create", map[string]any{"id": "g1", "workspaceId": "w1", "name": "Reading"})
	mustCall(t, h.HandleTabCreate, "tab_create", map[string]any{"id": "t1", "groupId": "g1", "url": "https://a.example"})
	mustCall(t, h.HandleTabCreate, "tab_create", map[string]any{"id": "t2", "groupId": "g1", "url": "https://b.example"})

	out := mustCall(t, h.HandleTabReorder, "tab_reorder", map[string]any{"parentId": "g1", "ids": []any{"t2", "t1"}})
	items, _ := out["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %v", out["items"])
	}
	first := items[0].(map[string]any)
	if first["id"] != "t2" {
		t.Errorf("first = %v, want t2", first["id"])
	}

	at := mustCall(t, h.HandleTabAt, "tab_at", map[string]any{"parentId": "g1", "position": 1})
	if at["id"] != "t1" {
		t.Errorf("tab_at(1) = %v, want t1", at["id"])
	}
}

func TestHandleSearch(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg, nil)

	mustCall(t, h.HandleWorkspaceCreate, "workspace_create", map[string]any{"id": "w1", "name": "Golang"})

	out := mustCall(t, h.HandleSearch, "search", map[string]any{"query": "go"})
	if ws, _ := out["workspaces"].([]any); len(ws) != 1 {
		t.Errorf("workspaces = %v", out["workspaces"])
	}

	result, err := h.HandleSearch(context.Background(), makeRequest("search", map[string]any{}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleTrashPurge_Empty(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg, nil)

	out := mustCall(t, h.HandleTrashPurge, "trash_purge", nil)
	if out["message"] != "No deleted items to purge" {
		t.Errorf("message = %v", out["message"])
	}
}

func TestServerRegistration(t *testing.T) {
	database, cfg := testSetup(t)

	s := NewServer(database, cfg, nil, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	if len(tools) != len(toolRegistry) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry))
	}

	for _, name := range []string{"workspace_create", "group_reorder", "tab_delete", "trash_restore", "count_workspace_tabs", "search"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}

	// Definition names must match their registry keys.
	for name, entry := range toolRegistry {
		if entry.def.Name != name {
			t.Errorf("registry key %q has tool definition %q", name, entry.def.Name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	database, cfg := testSetup(t)

	cfg.DisabledTools = []string{"trash_empty", "trash_purge", "trash_empty"}
	s := NewServer(database, cfg, nil, "test")
	tools := s.ListTools()

	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range []string{"trash_empty", "trash_purge"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["trash_restore"]; !ok {
		t.Error("trash_restore should still be registered")
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	database, cfg := testSetup(t)

	cfg.DisabledTypes = []string{"trash"}
	s := NewServer(database, cfg, nil, "test")
	tools := s.ListTools()

	for name := range tools {
		if strings.HasPrefix(name, "trash_") {
			t.Errorf("tool %q belongs to a disabled type", name)
		}
	}
	if _, ok := tools["search"]; !ok {
		t.Error("search has no type and should stay registered")
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	database, cfg := testSetup(t)

	cfg.DisabledTools = AllToolNames()
	s := NewServer(database, cfg, nil, "test")

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
		{name: "all valid", input: []string{"trash_purge", "tab_delete"}, wantLen: 0},
		{name: "one unknown", input: []string{"trash_purge", "capsule_store"}, wantLen: 1},
		{name: "all unknown", input: []string{"foo", "bar", "baz"}, wantLen: 3},
		{name: "empty list", input: []string{}, wantLen: 0},
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

func TestValidateDisabledTypes(t *testing.T) {
	unknown := ValidateDisabledTypes([]string{"tab", "trash", "capsule"})
	if len(unknown) != 1 || unknown[0] != "capsule" {
		t.Errorf("ValidateDisabledTypes() = %v, want [capsule]", unknown)
	}
}

func TestGetTypeForTool(t *testing.T) {
	tests := map[string]string{
		"tab_create":              "tab",
		"count_workspace_summary": "count",
		"search":                  "",
	}
	for tool, want := range tests {
		if got := GetTypeForTool(tool); got != want {
			t.Errorf("GetTypeForTool(%q) = %q, want %q", tool, got, want)
		}
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Errorf("AllToolNames() returned %d names, want %d", len(names), len(toolRegistry))
	}
	if unknown := ValidateDisabledTools(names); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
	// Every typed tool belongs to a known type.
	for _, name := range names {
		if typ := GetTypeForTool(name); typ != "" {
			if unknown := ValidateDisabledTypes([]string{typ}); len(unknown) != 0 {
				t.Errorf("tool %q has unknown type %q", name, typ)
			}
		}
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrapped := fmt.Errorf("ids[2]: %w", errors.NewNotFound("tab", "t9"))

	errObj := errorObject(t, errorResult(wrapped))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	msg := errObj["message"].(string)
	if !strings.HasPrefix(msg, "ids[2]: ") || !strings.Contains(msg, "t9") {
		t.Errorf("message should keep wrapper context, got: %s", msg)
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != string(errors.ErrInternal) || errObj["message"] != "an internal error occurred" {
		t.Errorf("errObj = %v", errObj)
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload: %v", payload)
	}
	return errObj
}

func errorDetails(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	details, ok := errorObject(t, result)["details"].(map[string]any)
	if !ok {
		t.Fatal("no details in error object")
	}
	return details
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	if !result.IsError {
		t.Errorf("expected error result %s, got success", expectedCode)
		return
	}
	if code := errorObject(t, result)["code"]; code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}
