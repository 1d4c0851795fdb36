package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/tabshelf/internal/db"
	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// SearchInput contains parameters for Search. WorkspaceID and GroupID narrow
// the scope; with GroupID set only tabs are searched.
type SearchInput struct {
	Query       string `json:"query"`
	WorkspaceID string `json:"workspaceId,omitempty"`
	GroupID     string `json:"groupId,omitempty"`
	Limit       int    `json:"limit,omitempty"` // per kind; default 20, max 100
}

// SearchOutput groups matches by kind.
type SearchOutput struct {
	Workspaces []tabs.Workspace `json:"workspaces"`
	Groups     []tabs.TabGroup  `json:"groups"`
	Tabs       []tabs.Tab       `json:"tabs"`
}

// Search matches workspace names, group names, and tab titles and urls by
// case-insensitive substring.
func Search(ctx context.Context, database *sql.DB, input SearchInput) (*SearchOutput, error) {
	needle := tabs.Normalize(input.Query)
	if needle == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	limit := clampLimit(input.Limit)
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	groupID := strings.TrimSpace(input.GroupID)

	out := &SearchOutput{
		Workspaces: []tabs.Workspace{},
		Groups:     []tabs.TabGroup{},
		Tabs:       []tabs.Tab{},
	}
	err := db.WithReadTx(ctx, database, func(tx *sql.Tx) error {
		if groupID != "" {
			found, err := db.SearchTabs(ctx, tx, needle, groupID, limit)
			out.Tabs = found
			return err
		}

		if workspaceID == "" {
			found, err := db.SearchWorkspaces(ctx, tx, needle, limit)
			if err != nil {
				return err
			}
			out.Workspaces = found
		}

		groups, err := db.SearchGroups(ctx, tx, needle, workspaceID, limit)
		if err != nil {
			return err
		}
		out.Groups = groups

		if workspaceID == "" {
			found, err := db.SearchTabs(ctx, tx, needle, "", limit)
			out.Tabs = found
			return err
		}

		// Scope tabs to the workspace's groups, one group at a time.
		scope, err := db.ListGroupsByWorkspace(ctx, tx, workspaceID, true)
		if err != nil {
			return err
		}
		for _, g := range scope {
			remaining := limit - len(out.Tabs)
			if remaining <= 0 {
				break
			}
			found, err := db.SearchTabs(ctx, tx, needle, g.ID, remaining)
			if err != nil {
				return err
			}
			out.Tabs = append(out.Tabs, found...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
