package mcp

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/tabshelf/internal/config"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"workspace", "group", "tab", "trash", "count"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"workspace_create": {
		def:     workspaceCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceCreate },
	},
	"workspace_get": {
		def:     workspaceGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceGet },
	},
	"workspace_list": {
		def:     workspaceListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceList },
	},
	"workspace_default": {
		def:     workspaceDefaultToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceDefault },
	},
	"workspace_ensure_default": {
		def:     workspaceEnsureDefaultToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceEnsureDefault },
	},
	"workspace_update": {
		def:     workspaceUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceUpdate },
	},
	"workspace_touch": {
		def:     workspaceTouchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceTouch },
	},
	"workspace_delete": {
		def:     workspaceDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceDelete },
	},
	"group_create": {
		def:     groupCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupCreate },
	},
	"group_get": {
		def:     groupGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupGet },
	},
	"group_list": {
		def:     groupListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupList },
	},
	"group_at": {
		def:     groupAtToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupAt },
	},
	"group_update": {
		def:     groupUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupUpdate },
	},
	"group_archive": {
		def:     groupArchiveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupArchive },
	},
	"group_unarchive": {
		def:     groupUnarchiveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupUnarchive },
	},
	"group_reorder": {
		def:     groupReorderToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupReorder },
	},
	"group_delete": {
		def:     groupDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupDelete },
	},
	"tab_create": {
		def:     tabCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabCreate },
	},
	"tab_get": {
		def:     tabGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabGet },
	},
	"tab_list": {
		def:     tabListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabList },
	},
	"tab_at": {
		def:     tabAtToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabAt },
	},
	"tab_update": {
		def:     tabUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabUpdate },
	},
	"tab_archive": {
		def:     tabArchiveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabArchive },
	},
	"tab_unarchive": {
		def:     tabUnarchiveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabUnarchive },
	},
	"tab_reorder": {
		def:     tabReorderToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabReorder },
	},
	"tab_delete": {
		def:     tabDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabDelete },
	},
	"trash_list": {
		def:     trashListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTrashList },
	},
	"trash_expired": {
		def:     trashExpiredToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTrashExpired },
	},
	"trash_restore": {
		def:     trashRestoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTrashRestore },
	},
	"trash_delete": {
		def:     trashDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTrashDelete },
	},
	"trash_purge": {
		def:     trashPurgeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTrashPurge },
	},
	"trash_empty": {
		def:     trashEmptyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTrashEmpty },
	},
	"count_group_tabs": {
		def:     countGroupTabsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCountGroupTabs },
	},
	"count_workspace_tabs": {
		def:     countWorkspaceTabsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCountWorkspaceTabs },
	},
	"count_workspace_summary": {
		def:     countWorkspaceSummaryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCountWorkspaceSummary },
	},
	"search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},}

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

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "tab_create" → "tab").
// Tools without a prefix, like "search", belong to no type.
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with tabshelf tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, log *slog.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"tabshelf",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(db, cfg, log)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
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

// Run serves MCP over stdio until ctx is cancelled or stdin closes.
func Run(ctx context.Context, db *sql.DB, cfg *config.Config, log *slog.Logger, version string) error {
	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Warn("unknown types in disabled_types", "types", unknown)
	}

	s := NewServer(db, cfg, log, version)
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(log.Handler(), slog.LevelError))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}
