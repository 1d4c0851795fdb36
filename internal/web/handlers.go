package web

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/tabshelf/internal/ops"
)

// Handlers contains the HTTP route handlers for the local API.
type Handlers struct {
	db      *sql.DB
	log     *slog.Logger
	version string
}

// items wraps list results so the top-level JSON value is always an object.
type items[T any] struct {
	Items []T `json:"items"`
}

func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, status int, data any, err error) {
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, status, data)
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "version": h.version})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": h.version})
}

// Workspaces

// HandleListWorkspaces handles GET /api/workspaces.
func (h *Handlers) HandleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := ops.ListWorkspaces(r.Context(), h.db)
	h.respond(w, r, http.StatusOK, listOf(list), err)
}

// HandleCreateWorkspace handles POST /api/workspaces.
func (h *Handlers) HandleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var input ops.CreateWorkspaceInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	ws, err := ops.CreateWorkspace(r.Context(), h.db, input)
	h.respond(w, r, http.StatusCreated, ws, err)
}

// HandleDefaultWorkspace handles GET /api/workspaces/default.
func (h *Handlers) HandleDefaultWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := ops.GetDefaultWorkspace(r.Context(), h.db)
	h.respond(w, r, http.StatusOK, ws, err)
}

// HandleEnsureDefaultWorkspace handles POST /api/workspaces/default.
func (h *Handlers) HandleEnsureDefaultWorkspace(w http.ResponseWriter, r *http.Request) {
	out, err := ops.EnsureDefaultWorkspace(r.Context(), h.db)
	h.respond(w, r, http.StatusOK, out, err)
}

// HandleGetWorkspace handles GET /api/workspaces/{id}.
func (h *Handlers) HandleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := ops.GetWorkspace(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, ws, err)
}

// HandleUpdateWorkspace handles PATCH /api/workspaces/{id}.
func (h *Handlers) HandleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	var input ops.UpdateWorkspaceInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	input.ID = chi.URLParam(r, "id")
	ws, err := ops.UpdateWorkspace(r.Context(), h.db, input)
	h.respond(w, r, http.StatusOK, ws, err)
}

// HandleTouchWorkspace handles POST /api/workspaces/{id}/touch.
func (h *Handlers) HandleTouchWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := ops.TouchWorkspace(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, ws, err)
}

// HandleDeleteWorkspace handles DELETE /api/workspaces/{id}?cascade=true.
func (h *Handlers) HandleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteWorkspace(r.Context(), h.db, ops.DeleteInput{
		ID:      chi.URLParam(r, "id"),
		Cascade: parseBoolParam(r, "cascade"),
	})
	h.respond(w, r, http.StatusOK, out, err)
}

// HandleWorkspaceGroups handles GET /api/workspaces/{id}/groups.
func (h *Handlers) HandleWorkspaceGroups(w http.ResponseWriter, r *http.Request) {
	list, err := ops.ListGroups(r.Context(), h.db, ops.ListGroupsInput{
		WorkspaceID:     chi.URLParam(r, "id"),
		IncludeArchived: parseBoolParam(r, "include_archived"),
	})
	h.respond(w, r, http.StatusOK, listOf(list), err)
}

// HandleGroupAt handles GET /api/workspaces/{id}/groups/at/{position}.
func (h *Handlers) HandleGroupAt(w http.ResponseWriter, r *http.Request) {
	pos, err := pathPosition(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	g, err := ops.GroupAtPosition(r.Context(), h.db, ops.PositionInput{ParentID: chi.URLParam(r, "id"), Position: pos})
	h.respond(w, r, http.StatusOK, g, err)
}

// HandleReorderGroups handles PUT /api/workspaces/{id}/groups/order.
func (h *Handlers) HandleReorderGroups(w http.ResponseWriter, r *http.Request) {
	var input ops.ReorderInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	input.ParentID = chi.URLParam(r, "id")
	list, err := ops.ReorderGroups(r.Context(), h.db, input)
	h.respond(w, r, http.StatusOK, listOf(list), err)
}

// HandleWorkspaceTabCount handles GET /api/workspaces/{id}/tab-count.
func (h *Handlers) HandleWorkspaceTabCount(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ActiveWorkspaceTabCount(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, out, err)
}

// HandleWorkspaceSummary handles GET /api/workspaces/{id}/summary.
func (h *Handlers) HandleWorkspaceSummary(w http.ResponseWriter, r *http.Request) {
	out, err := ops.WorkspaceSummary(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, out, err)
}

// Groups

// HandleListGroups handles GET /api/groups?workspace_id=&include_archived=.
func (h *Handlers) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	list, err := ops.ListGroups(r.Context(), h.db, ops.ListGroupsInput{
		WorkspaceID:     r.URL.Query().Get("workspace_id"),
		IncludeArchived: parseBoolParam(r, "include_archived"),
	})
	h.respond(w, r, http.StatusOK, listOf(list), err)
}

// HandleCreateGroup handles POST /api/groups.
func (h *Handlers) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var input ops.CreateGroupInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	g, err := ops.CreateGroup(r.Context(), h.db, input)
	h.respond(w, r, http.StatusCreated, g, err)
}

// HandleGetGroup handles GET /api/groups/{id}.
func (h *Handlers) HandleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := ops.GetGroup(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, g, err)
}

// HandleUpdateGroup handles PATCH /api/groups/{id}.
func (h *Handlers) HandleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var input ops.UpdateGroupInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	input.ID = chi.URLParam(r, "id")
	g, err := ops.UpdateGroup(r.Context(), h.db, input)
	h.respond(w, r, http.StatusOK, g, err)
}

// HandleArchiveGroup handles POST /api/groups/{id}/archive.
func (h *Handlers) HandleArchiveGroup(w http.ResponseWriter, r *http.Request) {
	g, err := ops.ArchiveGroup(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, g, err)
}

// HandleUnarchiveGroup handles POST /api/groups/{id}/unarchive.
func (h *Handlers) HandleUnarchiveGroup(w http.ResponseWriter, r *http.Request) {
	g, err := ops.UnarchiveGroup(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, g, err)
}

// HandleDeleteGroup handles DELETE /api/groups/{id}?cascade=true.
func (h *Handlers) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteGroup(r.Context(), h.db, ops.DeleteInput{
		ID:      chi.URLParam(r, "id"),
		Cascade: parseBoolParam(r, "cascade"),
	})
	h.respond(w, r, http.StatusOK, out, err)
}

// HandleGroupTabs handles GET /api/groups/{id}/tabs.
func (h *Handlers) HandleGroupTabs(w http.ResponseWriter, r *http.Request) {
	list, err := ops.ListTabs(r.Context(), h.db, ops.ListTabsInput{
		GroupID:         chi.URLParam(r, "id"),
		IncludeArchived: parseBoolParam(r, "include_archived"),
	})
	h.respond(w, r, http.StatusOK, listOf(list), err)
}

// HandleTabAt handles GET /api/groups/{id}/tabs/at/{position}.
func (h *Handlers) HandleTabAt(w http.ResponseWriter, r *http.Request) {
	pos, err := pathPosition(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	t, err := ops.TabAtPosition(r.Context(), h.db, ops.PositionInput{ParentID: chi.URLParam(r, "id"), Position: pos})
	h.respond(w, r, http.StatusOK, t, err)
}

// HandleReorderTabs handles PUT /api/groups/{id}/tabs/order.
func (h *Handlers) HandleReorderTabs(w http.ResponseWriter, r *http.Request) {
	var input ops.ReorderInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	input.ParentID = chi.URLParam(r, "id")
	list, err := ops.ReorderTabs(r.Context(), h.db, input)
	h.respond(w, r, http.StatusOK, listOf(list), err)
}

// HandleGroupTabCount handles GET /api/groups/{id}/tab-count.
func (h *Handlers) HandleGroupTabCount(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ActiveTabCount(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, out, err)
}

// Tabs

// HandleListTabs handles GET /api/tabs?group_id=&include_archived=.
func (h *Handlers) HandleListTabs(w http.ResponseWriter, r *http.Request) {
	list, err := ops.ListTabs(r.Context(), h.db, ops.ListTabsInput{
		GroupID:         r.URL.Query().Get("group_id"),
		IncludeArchived: parseBoolParam(r, "include_archived"),
	})
	h.respond(w, r, http.StatusOK, listOf(list), err)
}

// HandleCreateTab handles POST /api/tabs.
func (h *Handlers) HandleCreateTab(w http.ResponseWriter, r *http.Request) {
	var input ops.CreateTabInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	t, err := ops.CreateTab(r.Context(), h.db, input)
	h.respond(w, r, http.StatusCreated, t, err)
}

// HandleGetTab handles GET /api/tabs/{id}.
func (h *Handlers) HandleGetTab(w http.ResponseWriter, r *http.Request) {
	t, err := ops.GetTab(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, t, err)
}

// HandleUpdateTab handles PATCH /api/tabs/{id}.
func (h *Handlers) HandleUpdateTab(w http.ResponseWriter, r *http.Request) {
	var input ops.UpdateTabInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	input.ID = chi.URLParam(r, "id")
	t, err := ops.UpdateTab(r.Context(), h.db, input)
	h.respond(w, r, http.StatusOK, t, err)
}

// HandleArchiveTab handles POST /api/tabs/{id}/archive.
func (h *Handlers) HandleArchiveTab(w http.ResponseWriter, r *http.Request) {
	t, err := ops.ArchiveTab(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, t, err)
}

// HandleUnarchiveTab handles POST /api/tabs/{id}/unarchive.
func (h *Handlers) HandleUnarchiveTab(w http.ResponseWriter, r *http.Request) {
	t, err := ops.UnarchiveTab(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, t, err)
}

// HandleDeleteTab handles DELETE /api/tabs/{id}.
func (h *Handlers) HandleDeleteTab(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteTab(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, out, err)
}

// Trash

// HandleListTrash handles GET /api/trash?type=.
func (h *Handlers) HandleListTrash(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListTrash(r.Context(), h.db, ops.ListTrashInput{Type: r.URL.Query().Get("type")})
	h.respond(w, r, http.StatusOK, out, err)
}

// HandleListExpired handles GET /api/trash/expired.
func (h *Handlers) HandleListExpired(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListExpired(r.Context(), h.db)
	h.respond(w, r, http.StatusOK, out, err)
}

// HandleRestore handles POST /api/trash/{id}/restore?cascade=true.
func (h *Handlers) HandleRestore(w http.ResponseWriter, r *http.Request) {
	out, err := ops.RestoreDeletedItem(r.Context(), h.db, ops.RestoreInput{
		ID:      chi.URLParam(r, "id"),
		Cascade: parseBoolParam(r, "cascade"),
	})
	h.respond(w, r, http.StatusOK, out, err)
}

// HandlePermanentDelete handles DELETE /api/trash/{id}.
func (h *Handlers) HandlePermanentDelete(w http.ResponseWriter, r *http.Request) {
	out, err := ops.PermanentDelete(r.Context(), h.db, ops.IDInput{ID: chi.URLParam(r, "id")})
	h.respond(w, r, http.StatusOK, out, err)
}

// HandlePurge handles POST /api/trash/purge.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	out, err := ops.PurgeExpired(r.Context(), h.db, h.log)
	h.respond(w, r, http.StatusOK, out, err)
}

// HandleEmptyTrash handles DELETE /api/trash.
func (h *Handlers) HandleEmptyTrash(w http.ResponseWriter, r *http.Request) {
	out, err := ops.EmptyTrash(r.Context(), h.db)
	h.respond(w, r, http.StatusOK, out, err)
}

// HandleSearch handles GET /api/search?q=&workspace_id=&group_id=&limit=.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := ops.Search(r.Context(), h.db, ops.SearchInput{
		Query:       q.Get("q"),
		WorkspaceID: q.Get("workspace_id"),
		GroupID:     q.Get("group_id"),
		Limit:       parseIntParam(r, "limit", ops.DefaultSearchLimit),
	})
	h.respond(w, r, http.StatusOK, out, err)
}

// listOf wraps a slice for JSON output; nil encodes as an empty array.
func listOf[T any](list []T) items[T] {
	if list == nil {
		list = []T{}
	}
	return items[T]{Items: list}
}
