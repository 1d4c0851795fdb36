package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/tabshelf/internal/db"
	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// CreateGroupInput contains parameters for CreateGroup.
type CreateGroupInput struct {
	ID          string `json:"id,omitempty"` // optional; generated when blank
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Position    *int   `json:"position,omitempty"` // default: after the last sibling
}

// UpdateGroupInput is a partial update; nil fields are left alone.
// Changing WorkspaceID without Position appends the group to the new workspace.
type UpdateGroupInput struct {
	ID          string  `json:"id"`
	WorkspaceID *string `json:"workspaceId,omitempty"`
	Name        *string `json:"name,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

// ListGroupsInput filters ListGroups. An empty WorkspaceID lists every group.
type ListGroupsInput struct {
	WorkspaceID     string `json:"workspaceId,omitempty"`
	IncludeArchived bool   `json:"includeArchived,omitempty"`
}

// CreateGroup stores a new tab group in an existing workspace.
// Returns DUPLICATE_POSITION if the requested slot is taken.
func CreateGroup(ctx context.Context, database *sql.DB, input CreateGroupInput) (*tabs.TabGroup, error) {
	id, err := idOrNew(input.ID)
	if err != nil {
		return nil, err
	}
	g := &tabs.TabGroup{
		ID:          id,
		WorkspaceID: strings.TrimSpace(input.WorkspaceID),
		Name:        strings.TrimSpace(input.Name),
		Icon:        input.Icon,
		CreatedAt:   tabs.NowMillis(),
	}
	if input.Position != nil {
		g.Position = *input.Position
	}
	if err := tabs.Validate(g); err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		if exists, err := db.WorkspaceExists(ctx, tx, g.WorkspaceID); err != nil {
			return err
		} else if !exists {
			return errors.NewNotFound(string(tabs.TypeWorkspace), g.WorkspaceID)
		}
		if input.Position == nil {
			next, err := db.NextGroupPosition(ctx, tx, g.WorkspaceID)
			if err != nil {
				return err
			}
			g.Position = next
		}
		return db.InsertGroup(ctx, tx, g)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetGroup retrieves a tab group by id.
func GetGroup(ctx context.Context, database *sql.DB, input IDInput) (*tabs.TabGroup, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	return db.GetGroup(ctx, database, id)
}

// ListGroups returns groups in position order.
func ListGroups(ctx context.Context, database *sql.DB, input ListGroupsInput) ([]tabs.TabGroup, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	if workspaceID == "" {
		all, err := db.ListGroups(ctx, database)
		if err != nil || input.IncludeArchived {
			return all, err
		}
		active := make([]tabs.TabGroup, 0, len(all))
		for _, g := range all {
			if !g.IsArchived {
				active = append(active, g)
			}
		}
		return active, nil
	}
	return db.ListGroupsByWorkspace(ctx, database, workspaceID, input.IncludeArchived)
}

// GroupAtPosition returns the group occupying a slot in a workspace.
func GroupAtPosition(ctx context.Context, database *sql.DB, input PositionInput) (*tabs.TabGroup, error) {
	parentID, err := requireID("parentId", input.ParentID)
	if err != nil {
		return nil, err
	}
	return db.GroupAt(ctx, database, parentID, input.Position)
}

// UpdateGroup merges input into the stored group. A new slot is checked
// against its siblings first so the error names the occupant.
func UpdateGroup(ctx context.Context, database *sql.DB, input UpdateGroupInput) (*tabs.TabGroup, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	var updated *tabs.TabGroup
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		g, err := db.GetGroup(ctx, tx, id)
		if err != nil {
			return err
		}
		moved := input.WorkspaceID != nil && strings.TrimSpace(*input.WorkspaceID) != g.WorkspaceID
		if moved {
			g.WorkspaceID = strings.TrimSpace(*input.WorkspaceID)
			if exists, err := db.WorkspaceExists(ctx, tx, g.WorkspaceID); err != nil {
				return err
			} else if !exists {
				return errors.NewNotFound(string(tabs.TypeWorkspace), g.WorkspaceID)
			}
		}
		if input.Name != nil {
			g.Name = strings.TrimSpace(*input.Name)
		}
		if input.Icon != nil {
			g.Icon = *input.Icon
		}

		switch {
		case input.Position != nil:
			g.Position = *input.Position
		case moved:
			next, err := db.NextGroupPosition(ctx, tx, g.WorkspaceID)
			if err != nil {
				return err
			}
			g.Position = next
		}
		if err := tabs.Validate(g); err != nil {
			return err
		}

		if input.Position != nil || moved {
			occupant, err := db.GroupAt(ctx, tx, g.WorkspaceID, g.Position)
			if err == nil && occupant.ID != g.ID {
				return errors.NewDuplicatePosition(string(tabs.TypeTabGroup), "workspaceId", g.WorkspaceID, g.Position, occupant.ID)
			}
			if err != nil && !errors.Is(err, errors.ErrNotFound) {
				return err
			}
		}

		if err := db.UpdateGroup(ctx, tx, g); err != nil {
			return err
		}
		updated = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ArchiveGroup hides a group from active views without deleting it.
func ArchiveGroup(ctx context.Context, database *sql.DB, input IDInput) (*tabs.TabGroup, error) {
	return setGroupArchived(ctx, database, input.ID, true)
}

// UnarchiveGroup returns an archived group to active views.
func UnarchiveGroup(ctx context.Context, database *sql.DB, input IDInput) (*tabs.TabGroup, error) {
	return setGroupArchived(ctx, database, input.ID, false)
}

func setGroupArchived(ctx context.Context, database *sql.DB, rawID string, archived bool) (*tabs.TabGroup, error) {
	id, err := requireID("id", rawID)
	if err != nil {
		return nil, err
	}

	var updated *tabs.TabGroup
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		g, err := db.GetGroup(ctx, tx, id)
		if err != nil {
			return err
		}
		if g.IsArchived == archived {
			updated = g
			return nil
		}
		g.IsArchived = archived
		g.ArchivedAt = nil
		if archived {
			now := tabs.NowMillis()
			g.ArchivedAt = &now
		}
		if err := db.UpdateGroup(ctx, tx, g); err != nil {
			return err
		}
		updated = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReorderGroups renumbers every group of a workspace to 0..n-1 in the order
// given. IDs must be exactly the workspace's current groups.
func ReorderGroups(ctx context.Context, database *sql.DB, input ReorderInput) ([]tabs.TabGroup, error) {
	workspaceID, err := requireID("parentId", input.ParentID)
	if err != nil {
		return nil, err
	}

	var result []tabs.TabGroup
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		current, err := db.ListGroupsByWorkspace(ctx, tx, workspaceID, true)
		if err != nil {
			return err
		}
		ids := make([]string, len(current))
		for i, g := range current {
			ids[i] = g.ID
		}
		if err := checkReorder(input.IDs, ids); err != nil {
			return err
		}

		for i, id := range input.IDs {
			if err := db.SetGroupPosition(ctx, tx, id, tempPosition(i)); err != nil {
				return err
			}
		}
		for i, id := range input.IDs {
			if err := db.SetGroupPosition(ctx, tx, id, i); err != nil {
				return err
			}
		}

		result, err = db.ListGroupsByWorkspace(ctx, tx, workspaceID, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteGroup moves a group to the trash. Without Cascade its tabs stay in
// place; with Cascade they are trashed in the same batch.
func DeleteGroup(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	var out *DeleteOutput
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		g, err := db.GetGroup(ctx, tx, id)
		if err != nil {
			return err
		}
		rootID, err := tabs.NewID()
		if err != nil {
			return errors.NewInternal(err)
		}

		tr := &trasher{tx: tx, deletedAt: tabs.NowMillis()}
		if input.Cascade {
			if err := tr.groupChildren(ctx, g.ID, &rootID); err != nil {
				return err
			}
		}
		root, err := tr.group(ctx, g, rootID, nil)
		if err != nil {
			return err
		}
		out = deleteOutput(root, tr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
