package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hpungsan/tabshelf/internal/config"
	"github.com/hpungsan/tabshelf/internal/db"
	"github.com/hpungsan/tabshelf/internal/ops"
)

// setupTest returns a router over a store holding w1 (default) > g1 > t1, t2.
func setupTest(t *testing.T) (http.Handler, *sql.DB) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	if _, err := ops.CreateWorkspace(ctx, database, ops.CreateWorkspaceInput{ID: "w1", Name: "Home", IsDefault: true}); err != nil {
		t.Fatalf("seed workspace: %v", err)
	}
	if _, err := ops.CreateGroup(ctx, database, ops.CreateGroupInput{ID: "g1", WorkspaceID: "w1", Name: "Reading"}); err != nil {
		t.Fatalf("seed group: %v", err)
	}
	for _, id := range []string{"t1", "t2"} {
		if _, err := ops.CreateTab(ctx, database, ops.CreateTabInput{ID: id, GroupID: "g1", URL: "https://" + id + ".example", Title: "Tab " + id}); err != nil {
			t.Fatalf("seed tab %s: %v", id, err)
		}
	}

	cfg := config.DefaultConfig()
	return NewRouter(database, cfg, nil, "test"), database
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := decodeResponse(t, rec)["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// --- Health ---

func TestHandleHealth(t *testing.T) {
	h, _ := setupTest(t)

	rec := doRequest(h, "GET", "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeResponse(t, rec)["version"]; got != "test" {
		t.Errorf("version = %v", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

// --- Workspaces ---

func TestCreateWorkspace(t *testing.T) {
	h, _ := setupTest(t)

	rec := doRequest(h, "POST", "/api/workspaces", `{"id":"w2","name":"Research","isDefault":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(h, "GET", "/api/workspaces/default", "")
	if got := decodeResponse(t, rec)["id"]; got != "w2" {
		t.Errorf("default = %v, want w2", got)
	}

	rec = doRequest(h, "GET", "/api/workspaces/w1", "")
	if got := decodeResponse(t, rec)["isDefault"]; got != false {
		t.Errorf("w1 isDefault = %v, want false", got)
	}
}

func TestCreateWorkspace_BadBody(t *testing.T) {
	h, _ := setupTest(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "malformed", body: `{"name":`},
		{name: "unknown field", body: `{"name":"x","colour":"red"}`},
		{name: "missing name", body: `{"id":"w9"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, "POST", "/api/workspaces", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if code := errorCode(t, rec); code != "INVALID_REQUEST" {
				t.Errorf("code = %s", code)
			}
		})
	}
}

func TestGetWorkspace_NotFound(t *testing.T) {
	h, _ := setupTest(t)

	rec := doRequest(h, "GET", "/api/workspaces/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if code := errorCode(t, rec); code != "NOT_FOUND" {
		t.Errorf("code = %s", code)
	}
}

func TestUpdateWorkspace(t *testing.T) {
	h, _ := setupTest(t)

	rec := doRequest(h, "PATCH", "/api/workspaces/w1", `{"name":"Main"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	out := decodeResponse(t, rec)
	if out["name"] != "Main" || out["isDefault"] != true {
		t.Errorf("updated = %v", out)
	}
}

// --- Groups ---

func TestCreateGroup_DuplicatePosition(t *testing.T) {
	h, _ := setupTest(t)

	rec := doRequest(h, "POST", "/api/groups", `{"workspaceId":"w1","name":"Play","position":0}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	out := decodeResponse(t, rec)
	errObj := out["error"].(map[string]any)
	if errObj["code"] != "DUPLICATE_POSITION" {
		t.Errorf("code = %v", errObj["code"])
	}
	details := errObj["details"].(map[string]any)
	if details["occupant_id"] != "g1" {
		t.Errorf("occupant_id = %v", details["occupant_id"])
	}

	rec = doRequest(h, "POST", "/api/groups", `{"id":"g2","workspaceId":"w1","name":"Play","position":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestWorkspaceGroups_ArchiveFilter(t *testing.T) {
	h, _ := setupTest(t)

	doRequest(h, "POST", "/api/groups", `{"id":"g2","workspaceId":"w1","name":"Later"}`)
	rec := doRequest(h, "POST", "/api/groups/g2/archive", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("archive status = %d", rec.Code)
	}

	rec = doRequest(h, "GET", "/api/workspaces/w1/groups", "")
	if got := decodeResponse(t, rec)["items"].([]any); len(got) != 1 {
		t.Errorf("active groups = %d, want 1", len(got))
	}
	rec = doRequest(h, "GET", "/api/workspaces/w1/groups?include_archived=true", "")
	if got := decodeResponse(t, rec)["items"].([]any); len(got) != 2 {
		t.Errorf("all groups = %d, want 2", len(got))
	}
}

func TestGroupAt(t *testing.T) {
	h, _ := setupTest(t)

	rec := doRequest(h, "GET", "/api/workspaces/w1/groups/at/0", "")
	if got := decodeResponse(t, rec)["id"]; got != "g1" {
		t.Errorf("group at 0 = %v", got)
	}

	rec = doRequest(h, "GET", "/api/workspaces/w1/groups/at/first", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// --- Tabs ---

func TestReorderTabs(t *testing.T) {
	h, _ := setupTest(t)

	rec := doRequest(h, "PUT", "/api/groups/g1/tabs/order", `{"ids":["t2","t1"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	items := decodeResponse(t, rec)["items"].([]any)
	if items[0].(map[string]any)["id"] != "t2" {
		t.Errorf("first = %v", items[0])
	}

	rec = doRequest(h, "PUT", "/api/groups/g1/tabs/order", `{"ids":["t2"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("partial reorder status = %d, want 400", rec.Code)
	}
}

func TestTabCounts(t *testing.T) {
	h, _ := setupTest(t)

	doRequest(h, "POST", "/api/tabs/t1/archive", "")

	rec := doRequest(h, "GET", "/api/groups/g1/tab-count", "")
	if got := decodeResponse(t, rec)["count"]; got != float64(1) {
		t.Errorf("group count = %v, want 1", got)
	}
	rec = doRequest(h, "GET", "/api/workspaces/w1/tab-count", "")
	if got := decodeResponse(t, rec)["count"]; got != float64(1) {
		t.Errorf("workspace count = %v, want 1", got)
	}
}

// --- Trash ---

func TestDeleteRestoreTab(t *testing.T) {
	h, _ := setupTest(t)

	rec := doRequest(h, "DELETE", "/api/tabs/t1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	deletedID := decodeResponse(t, rec)["deletedItemId"].(string)

	rec = doRequest(h, "GET", "/api/trash?type=tab", "")
	if got := decodeResponse(t, rec)["total"]; got != float64(1) {
		t.Errorf("trash total = %v, want 1", got)
	}

	rec = doRequest(h, "POST", "/api/trash/"+deletedID+"/restore", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(h, "GET", "/api/tabs/t1", "")
	if rec.Code != http.StatusOK {
		t.Errorf("restored tab status = %d", rec.Code)
	}
}

func TestRestore_OrphanedParent(t *testing.T) {
	h, _ := setupTest(t)

	rec := doRequest(h, "DELETE", "/api/tabs/t1", "")
	tabDeleted := decodeResponse(t, rec)["deletedItemId"].(string)
	doRequest(h, "DELETE", "/api/groups/g1?cascade=true", "")

	rec = doRequest(h, "POST", "/api/trash/"+tabDeleted+"/restore", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if code := errorCode(t, rec); code != "ORPHANED_PARENT" {
		t.Errorf("code = %s", code)
	}
}

func TestEmptyTrash(t *testing.T) {
	h, _ := setupTest(t)

	doRequest(h, "DELETE", "/api/tabs/t1", "")
	doRequest(h, "DELETE", "/api/tabs/t2", "")

	rec := doRequest(h, "DELETE", "/api/trash", "")
	if got := decodeResponse(t, rec)["purged"]; got != float64(2) {
		t.Errorf("purged = %v, want 2", got)
	}

	rec = doRequest(h, "POST", "/api/trash/purge", "")
	if got := decodeResponse(t, rec)["message"]; got != "No deleted items to purge" {
		t.Errorf("message = %v", got)
	}

	rec = doRequest(h, "DELETE", "/api/trash/missing", "")
	if rec.Code != http.StatusOK {
		t.Errorf("permanent delete of missing id status = %d, want 200", rec.Code)
	}
}

// --- Search ---

func TestSearch(t *testing.T) {
	h, _ := setupTest(t)

	rec := doRequest(h, "GET", "/api/search?q=t2.example", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	tabs := decodeResponse(t, rec)["tabs"].([]any)
	if len(tabs) != 1 {
		t.Errorf("tabs = %v", tabs)
	}

	rec = doRequest(h, "GET", "/api/search", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d, want 400", rec.Code)
	}
}

// --- Middleware ---

func TestCORS(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("OPTIONS", "/api/workspaces", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "chrome-extension://abcdef" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest("GET", "/api/workspaces", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestNewServer_Addr(t *testing.T) {
	_, database := setupTest(t)
	cfg := config.DefaultConfig()
	cfg.WebPort = 9999

	srv := NewServer(database, cfg, nil, "test")
	if srv.Addr != "127.0.0.1:9999" {
		t.Errorf("Addr = %q", srv.Addr)
	}
}
