package mcp

import "github.com/mark3labs/mcp-go/mcp"

func idParam(what string) mcp.ToolOption {
	return mcp.WithString("id", mcp.Required(), mcp.Description(what))
}

func positionParam() mcp.ToolOption {
	return mcp.WithNumber("position", mcp.Min(0), mcp.Description("Zero-based slot among siblings. Omit to append after the last sibling."))
}

func cascadeParam(children string) mcp.ToolOption {
	return mcp.WithBoolean("cascade", mcp.Description("Also move "+children+" to the trash, batched with this item."))
}

// Workspace tools

var workspaceCreateToolDef = mcp.NewTool("workspace_create",
	mcp.WithDescription("Create a workspace. Setting isDefault clears the flag on every other workspace."),
	mcp.WithString("id", mcp.Description("Optional id; a ULID is generated when omitted.")),
	mcp.WithString("name", mcp.Required(), mcp.Description("Display name.")),
	mcp.WithBoolean("isDefault", mcp.Description("Make this the default workspace.")),
)

var workspaceGetToolDef = mcp.NewTool("workspace_get",
	mcp.WithDescription("Get a workspace by id."),
	mcp.WithReadOnlyHintAnnotation(true),
	idParam("Workspace id."),
)

var workspaceListToolDef = mcp.NewTool("workspace_list",
	mcp.WithDescription("List all workspaces, oldest first."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var workspaceDefaultToolDef = mcp.NewTool("workspace_default",
	mcp.WithDescription("Get the default workspace."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var workspaceEnsureDefaultToolDef = mcp.NewTool("workspace_ensure_default",
	mcp.WithDescription("Make sure a default workspace exists: promote the oldest workspace, or create \"Home\" in an empty store."),
)

var workspaceUpdateToolDef = mcp.NewTool("workspace_update",
	mcp.WithDescription("Update a workspace's name or default flag. Omitted fields are unchanged."),
	idParam("Workspace id."),
	mcp.WithString("name", mcp.Description("New name.")),
	mcp.WithBoolean("isDefault", mcp.Description("Set or clear the default flag.")),
)

var workspaceTouchToolDef = mcp.NewTool("workspace_touch",
	mcp.WithDescription("Record that a workspace was just opened."),
	idParam("Workspace id."),
)

var workspaceDeleteToolDef = mcp.NewTool("workspace_delete",
	mcp.WithDescription("Move a workspace to the trash. Restorable for 14 days."),
	mcp.WithDestructiveHintAnnotation(true),
	idParam("Workspace id."),
	cascadeParam("its groups and their tabs"),
)

// Group tools

var groupCreateToolDef = mcp.NewTool("group_create",
	mcp.WithDescription("Create a tab group in a workspace. Fails with DUPLICATE_POSITION when the slot is taken."),
	mcp.WithString("id", mcp.Description("Optional id; a ULID is generated when omitted.")),
	mcp.WithString("workspaceId", mcp.Required(), mcp.Description("Owning workspace.")),
	mcp.WithString("name", mcp.Required(), mcp.Description("Display name.")),
	mcp.WithString("icon", mcp.Description("Optional icon name or emoji.")),
	positionParam(),
)

var groupGetToolDef = mcp.NewTool("group_get",
	mcp.WithDescription("Get a tab group by id."),
	mcp.WithReadOnlyHintAnnotation(true),
	idParam("Group id."),
)

var groupListToolDef = mcp.NewTool("group_list",
	mcp.WithDescription("List tab groups in position order, optionally scoped to one workspace."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("workspaceId", mcp.Description("Only groups in this workspace.")),
	mcp.WithBoolean("includeArchived", mcp.Description("Include archived groups.")),
)

var groupAtToolDef = mcp.NewTool("group_at",
	mcp.WithDescription("Get the group occupying a position in a workspace."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("parentId", mcp.Required(), mcp.Description("Workspace id.")),
	mcp.WithNumber("position", mcp.Required(), mcp.Min(0), mcp.Description("Zero-based slot.")),
)

var groupUpdateToolDef = mcp.NewTool("group_update",
	mcp.WithDescription("Rename, move, or reposition a tab group. Moving without a position appends."),
	idParam("Group id."),
	mcp.WithString("workspaceId", mcp.Description("Move to this workspace.")),
	mcp.WithString("name", mcp.Description("New name.")),
	mcp.WithString("icon", mcp.Description("New icon.")),
	positionParam(),
)

var groupArchiveToolDef = mcp.NewTool("group_archive",
	mcp.WithDescription("Archive a tab group. Its tabs stop counting as active."),
	idParam("Group id."),
)

var groupUnarchiveToolDef = mcp.NewTool("group_unarchive",
	mcp.WithDescription("Unarchive a tab group."),
	idParam("Group id."),
)

var groupReorderToolDef = mcp.NewTool("group_reorder",
	mcp.WithDescription("Reorder every group in a workspace. ids must list each sibling exactly once."),
	mcp.WithString("parentId", mcp.Required(), mcp.Description("Workspace id.")),
	mcp.WithArray("ids", mcp.Required(), mcp.WithStringItems(), mcp.Description("Group ids in their new order.")),
)

var groupDeleteToolDef = mcp.NewTool("group_delete",
	mcp.WithDescription("Move a tab group to the trash. Restorable for 14 days."),
	mcp.WithDestructiveHintAnnotation(true),
	idParam("Group id."),
	cascadeParam("its tabs"),
)

// Tab tools

var tabCreateToolDef = mcp.NewTool("tab_create",
	mcp.WithDescription("Save a tab into a group. Fails with DUPLICATE_POSITION when the slot is taken."),
	mcp.WithString("id", mcp.Description("Optional id; a ULID is generated when omitted.")),
	mcp.WithString("groupId", mcp.Required(), mcp.Description("Owning group.")),
	mcp.WithString("url", mcp.Required(), mcp.Description("Page URL.")),
	mcp.WithString("title", mcp.Description("Page title.")),
	mcp.WithString("favicon", mcp.Description("Favicon URL.")),
	positionParam(),
)

var tabGetToolDef = mcp.NewTool("tab_get",
	mcp.WithDescription("Get a tab by id."),
	mcp.WithReadOnlyHintAnnotation(true),
	idParam("Tab id."),
)

var tabListToolDef = mcp.NewTool("tab_list",
	mcp.WithDescription("List tabs in position order, optionally scoped to one group."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("groupId", mcp.Description("Only tabs in this group.")),
	mcp.WithBoolean("includeArchived", mcp.Description("Include archived tabs.")),
)

var tabAtToolDef = mcp.NewTool("tab_at",
	mcp.WithDescription("Get the tab occupying a position in a group."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("parentId", mcp.Required(), mcp.Description("Group id.")),
	mcp.WithNumber("position", mcp.Required(), mcp.Min(0), mcp.Description("Zero-based slot.")),
)

var tabUpdateToolDef = mcp.NewTool("tab_update",
	mcp.WithDescription("Edit, move, or reposition a tab. Moving without a position appends."),
	idParam("Tab id."),
	mcp.WithString("groupId", mcp.Description("Move to this group.")),
	mcp.WithString("url", mcp.Description("New URL.")),
	mcp.WithString("title", mcp.Description("New title.")),
	mcp.WithString("favicon", mcp.Description("New favicon URL.")),
	positionParam(),
)

var tabArchiveToolDef = mcp.NewTool("tab_archive",
	mcp.WithDescription("Archive a tab."),
	idParam("Tab id."),
)

var tabUnarchiveToolDef = mcp.NewTool("tab_unarchive",
	mcp.WithDescription("Unarchive a tab."),
	idParam("Tab id."),
)

var tabReorderToolDef = mcp.NewTool("tab_reorder",
	mcp.WithDescription("Reorder every tab in a group. ids must list each sibling exactly once."),
	mcp.WithString("parentId", mcp.Required(), mcp.Description("Group id.")),
	mcp.WithArray("ids", mcp.Required(), mcp.WithStringItems(), mcp.Description("Tab ids in their new order.")),
)

var tabDeleteToolDef = mcp.NewTool("tab_delete",
	mcp.WithDescription("Move a tab to the trash. Restorable for 14 days."),
	mcp.WithDestructiveHintAnnotation(true),
	idParam("Tab id."),
)

// Trash tools

var trashListToolDef = mcp.NewTool("trash_list",
	mcp.WithDescription("List trashed items, newest first, with days left before expiry."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("type", mcp.Enum("workspace", "tabGroup", "tab"), mcp.Description("Only items of this type.")),
)

var trashExpiredToolDef = mcp.NewTool("trash_expired",
	mcp.WithDescription("List trashed items past the 14-day retention window."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var trashRestoreToolDef = mcp.NewTool("trash_restore",
	mcp.WithDescription("Restore a trashed item. Fails when expired, when the id is live again, or when the parent is gone."),
	idParam("Deleted item id."),
	mcp.WithBoolean("cascade", mcp.Description("Also restore items trashed in the same batch. All or nothing.")),
)

var trashDeleteToolDef = mcp.NewTool("trash_delete",
	mcp.WithDescription("Permanently remove one trashed item. Succeeds when it is already gone."),
	mcp.WithDestructiveHintAnnotation(true),
	idParam("Deleted item id."),
)

var trashPurgeToolDef = mcp.NewTool("trash_purge",
	mcp.WithDescription("Permanently remove every expired trashed item."),
	mcp.WithDestructiveHintAnnotation(true),
)

var trashEmptyToolDef = mcp.NewTool("trash_empty",
	mcp.WithDescription("Permanently remove everything in the trash."),
	mcp.WithDestructiveHintAnnotation(true),
)

// Count tools

var countGroupTabsToolDef = mcp.NewTool("count_group_tabs",
	mcp.WithDescription("Count non-archived tabs in a group."),
	mcp.WithReadOnlyHintAnnotation(true),
	idParam("Group id."),
)

var countWorkspaceTabsToolDef = mcp.NewTool("count_workspace_tabs",
	mcp.WithDescription("Count non-archived tabs across a workspace's non-archived groups."),
	mcp.WithReadOnlyHintAnnotation(true),
	idParam("Workspace id."),
)

var countWorkspaceSummaryToolDef = mcp.NewTool("count_workspace_summary",
	mcp.WithDescription("Per-group active and total tab counts for a workspace."),
	mcp.WithReadOnlyHintAnnotation(true),
	idParam("Workspace id."),
)

// Search

var searchToolDef = mcp.NewTool("search",
	mcp.WithDescription("Case-insensitive substring search over workspace names, group names, and tab titles and URLs."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for.")),
	mcp.WithString("workspaceId", mcp.Description("Only groups and tabs in this workspace.")),
	mcp.WithString("groupId", mcp.Description("Only tabs in this group.")),
	mcp.WithNumber("limit", mcp.Min(1), mcp.Max(100), mcp.Description("Max results per kind (default 20).")),
)
