package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tabshelf/internal/config"
	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/logger"
	"github.com/hpungsan/tabshelf/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	log *slog.Logger
}

// NewHandlers creates a new Handlers instance. A nil logger discards.
func NewHandlers(db *sql.DB, cfg *config.Config, log *slog.Logger) *Handlers {
	if log == nil {
		log = logger.Discard()
	}
	return &Handlers{db: db, cfg: cfg, log: log}
}

// noArgs is decoded for tools that take no arguments; unknown keys are ignored.
type noArgs struct{}

// call decodes the request into In, runs fn, and wraps the outcome.
// Failures are reported in the result (IsError), never as a Go error, so
// the client sees the structured code.
func call[In, Out any](ctx context.Context, h *Handlers, req mcp.CallToolRequest, fn func(context.Context, In) (Out, error)) (*mcp.CallToolResult, error) {
	input, err := decode[In](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	out, err := fn(ctx, input)
	if err != nil {
		h.logFailure(req.Params.Name, err)
		return errorResult(err), nil
	}
	return successResult(out)
}

func (h *Handlers) logFailure(tool string, err error) {
	if sErr, ok := errors.As(err); ok && sErr.Status < 500 {
		h.log.Debug("tool call rejected", "tool", tool, "code", sErr.Code)
		return
	}
	h.log.Error("tool call failed", "tool", tool, "error", err)
}

// Workspace handlers

func (h *Handlers) HandleWorkspaceCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.CreateWorkspaceInput) (any, error) {
		return ops.CreateWorkspace(ctx, h.db, in)
	})
}

func (h *Handlers) HandleWorkspaceGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.GetWorkspace(ctx, h.db, in)
	})
}

func (h *Handlers) HandleWorkspaceList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, _ noArgs) (any, error) {
		items, err := ops.ListWorkspaces(ctx, h.db)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil
	})
}

func (h *Handlers) HandleWorkspaceDefault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, _ noArgs) (any, error) {
		return ops.GetDefaultWorkspace(ctx, h.db)
	})
}

func (h *Handlers) HandleWorkspaceEnsureDefault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, _ noArgs) (any, error) {
		return ops.EnsureDefaultWorkspace(ctx, h.db)
	})
}

func (h *Handlers) HandleWorkspaceUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.UpdateWorkspaceInput) (any, error) {
		return ops.UpdateWorkspace(ctx, h.db, in)
	})
}

func (h *Handlers) HandleWorkspaceTouch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.TouchWorkspace(ctx, h.db, in)
	})
}

func (h *Handlers) HandleWorkspaceDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.DeleteInput) (any, error) {
		return ops.DeleteWorkspace(ctx, h.db, in)
	})
}

// Group handlers

func (h *Handlers) HandleGroupCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.CreateGroupInput) (any, error) {
		return ops.CreateGroup(ctx, h.db, in)
	})
}

func (h *Handlers) HandleGroupGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.GetGroup(ctx, h.db, in)
	})
}

func (h *Handlers) HandleGroupList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.ListGroupsInput) (any, error) {
		items, err := ops.ListGroups(ctx, h.db, in)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil
	})
}

func (h *Handlers) HandleGroupAt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.PositionInput) (any, error) {
		return ops.GroupAtPosition(ctx, h.db, in)
	})
}

func (h *Handlers) HandleGroupUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.UpdateGroupInput) (any, error) {
		return ops.UpdateGroup(ctx, h.db, in)
	})
}

func (h *Handlers) HandleGroupArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.ArchiveGroup(ctx, h.db, in)
	})
}

func (h *Handlers) HandleGroupUnarchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.UnarchiveGroup(ctx, h.db, in)
	})
}

func (h *Handlers) HandleGroupReorder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.ReorderInput) (any, error) {
		items, err := ops.ReorderGroups(ctx, h.db, in)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil
	})
}

func (h *Handlers) HandleGroupDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.DeleteInput) (any, error) {
		return ops.DeleteGroup(ctx, h.db, in)
	})
}

// Tab handlers

func (h *Handlers) HandleTabCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.CreateTabInput) (any, error) {
		return ops.CreateTab(ctx, h.db, in)
	})
}

func (h *Handlers) HandleTabGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.GetTab(ctx, h.db, in)
	})
}

func (h *Handlers) HandleTabList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.ListTabsInput) (any, error) {
		items, err := ops.ListTabs(ctx, h.db, in)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil
	})
}

func (h *Handlers) HandleTabAt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.PositionInput) (any, error) {
		return ops.TabAtPosition(ctx, h.db, in)
	})
}

func (h *Handlers) HandleTabUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.UpdateTabInput) (any, error) {
		return ops.UpdateTab(ctx, h.db, in)
	})
}

func (h *Handlers) HandleTabArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.ArchiveTab(ctx, h.db, in)
	})
}

func (h *Handlers) HandleTabUnarchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.UnarchiveTab(ctx, h.db, in)
	})
}

func (h *Handlers) HandleTabReorder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.ReorderInput) (any, error) {
		items, err := ops.ReorderTabs(ctx, h.db, in)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil
	})
}

func (h *Handlers) HandleTabDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.DeleteTab(ctx, h.db, in)
	})
}

// Trash handlers

func (h *Handlers) HandleTrashList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.ListTrashInput) (any, error) {
		return ops.ListTrash(ctx, h.db, in)
	})
}

func (h *Handlers) HandleTrashExpired(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, _ noArgs) (any, error) {
		return ops.ListExpired(ctx, h.db)
	})
}

func (h *Handlers) HandleTrashRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.RestoreInput) (any, error) {
		return ops.RestoreDeletedItem(ctx, h.db, in)
	})
}

func (h *Handlers) HandleTrashDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.PermanentDelete(ctx, h.db, in)
	})
}

func (h *Handlers) HandleTrashPurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, _ noArgs) (any, error) {
		return ops.PurgeExpired(ctx, h.db, h.log)
	})
}

func (h *Handlers) HandleTrashEmpty(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, _ noArgs) (any, error) {
		return ops.EmptyTrash(ctx, h.db)
	})
}

// Count handlers

func (h *Handlers) HandleCountGroupTabs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.ActiveTabCount(ctx, h.db, in)
	})
}

func (h *Handlers) HandleCountWorkspaceTabs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.ActiveWorkspaceTabCount(ctx, h.db, in)
	})
}

func (h *Handlers) HandleCountWorkspaceSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.IDInput) (any, error) {
		return ops.WorkspaceSummary(ctx, h.db, in)
	})
}

// HandleSearch handles the search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, h, req, func(ctx context.Context, in ops.SearchInput) (any, error) {
		return ops.Search(ctx, h.db, in)
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed: they may carry file paths or SQL.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if sErr, ok := errors.As(err); ok {
		// Keep wrapper context such as "items[2]: " in front of the message.
		message := sErr.Message
		if prefix := strings.TrimSuffix(err.Error(), sErr.Error()); prefix != err.Error() {
			message = prefix + message
		}
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": message,
			"status":  sErr.Status,
		}
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
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
