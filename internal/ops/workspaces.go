package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/tabshelf/internal/db"
	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// DefaultWorkspaceName is the workspace seeded on first run.
const DefaultWorkspaceName = "Home"

// CreateWorkspaceInput contains parameters for CreateWorkspace.
type CreateWorkspaceInput struct {
	ID        string `json:"id,omitempty"` // optional; generated when blank
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// UpdateWorkspaceInput is a partial update; nil fields are left alone.
type UpdateWorkspaceInput struct {
	ID        string  `json:"id"`
	Name      *string `json:"name,omitempty"`
	IsDefault *bool   `json:"isDefault,omitempty"`
}

// EnsureDefaultOutput is returned by EnsureDefaultWorkspace.
type EnsureDefaultOutput struct {
	Workspace *tabs.Workspace `json:"workspace"`
	Created   bool            `json:"created"`
	Promoted  bool            `json:"promoted"`
}

// CreateWorkspace stores a new workspace. When IsDefault is set, any previous
// default is cleared in the same transaction.
func CreateWorkspace(ctx context.Context, database *sql.DB, input CreateWorkspaceInput) (*tabs.Workspace, error) {
	id, err := idOrNew(input.ID)
	if err != nil {
		return nil, err
	}
	now := tabs.NowMillis()
	w := &tabs.Workspace{
		ID:             id,
		Name:           strings.TrimSpace(input.Name),
		IsDefault:      input.IsDefault,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if err := tabs.Validate(w); err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		if w.IsDefault {
			if err := db.ClearDefaultWorkspace(ctx, tx, w.ID); err != nil {
				return err
			}
		}
		return db.InsertWorkspace(ctx, tx, w)
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetWorkspace retrieves a workspace by id.
func GetWorkspace(ctx context.Context, database *sql.DB, input IDInput) (*tabs.Workspace, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	return db.GetWorkspace(ctx, database, id)
}

// ListWorkspaces returns every workspace, oldest first.
func ListWorkspaces(ctx context.Context, database *sql.DB) ([]tabs.Workspace, error) {
	return db.ListWorkspaces(ctx, database)
}

// GetDefaultWorkspace returns the default workspace, or NOT_FOUND when none is flagged.
func GetDefaultWorkspace(ctx context.Context, database *sql.DB) (*tabs.Workspace, error) {
	return db.GetDefaultWorkspace(ctx, database)
}

// UpdateWorkspace merges input into the stored workspace. Setting IsDefault
// clears the previous default in the same transaction.
func UpdateWorkspace(ctx context.Context, database *sql.DB, input UpdateWorkspaceInput) (*tabs.Workspace, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	var updated *tabs.Workspace
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		w, err := db.GetWorkspace(ctx, tx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			w.Name = strings.TrimSpace(*input.Name)
		}
		if input.IsDefault != nil {
			w.IsDefault = *input.IsDefault
		}
		if err := tabs.Validate(w); err != nil {
			return err
		}
		if w.IsDefault {
			if err := db.ClearDefaultWorkspace(ctx, tx, w.ID); err != nil {
				return err
			}
		}
		if err := db.UpdateWorkspace(ctx, tx, w); err != nil {
			return err
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TouchWorkspace records that the workspace was opened now.
func TouchWorkspace(ctx context.Context, database *sql.DB, input IDInput) (*tabs.Workspace, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	var touched *tabs.Workspace
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		w, err := db.GetWorkspace(ctx, tx, id)
		if err != nil {
			return err
		}
		w.LastAccessedAt = tabs.NowMillis()
		if err := db.UpdateWorkspace(ctx, tx, w); err != nil {
			return err
		}
		touched = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return touched, nil
}

// EnsureDefaultWorkspace guarantees a default workspace exists. An empty store
// gets a fresh "Home" workspace; otherwise the oldest workspace is promoted.
func EnsureDefaultWorkspace(ctx context.Context, database *sql.DB) (*EnsureDefaultOutput, error) {
	out := &EnsureDefaultOutput{}
	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		current, err := db.GetDefaultWorkspace(ctx, tx)
		if err == nil {
			out.Workspace = current
			return nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return err
		}

		all, err := db.ListWorkspaces(ctx, tx)
		if err != nil {
			return err
		}
		if len(all) > 0 {
			oldest := all[0]
			oldest.IsDefault = true
			if err := db.UpdateWorkspace(ctx, tx, &oldest); err != nil {
				return err
			}
			out.Workspace = &oldest
			out.Promoted = true
			return nil
		}

		id, err := tabs.NewID()
		if err != nil {
			return errors.NewInternal(err)
		}
		now := tabs.NowMillis()
		w := &tabs.Workspace{ID: id, Name: DefaultWorkspaceName, IsDefault: true, CreatedAt: now, LastAccessedAt: now}
		if err := db.InsertWorkspace(ctx, tx, w); err != nil {
			return err
		}
		out.Workspace = w
		out.Created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteWorkspace moves a workspace to the trash. Without Cascade its groups
// stay in place; with Cascade every group and tab is trashed in the same batch.
// Deleting the default workspace does not promote another one.
func DeleteWorkspace(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	var out *DeleteOutput
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		w, err := db.GetWorkspace(ctx, tx, id)
		if err != nil {
			return err
		}
		rootID, err := tabs.NewID()
		if err != nil {
			return errors.NewInternal(err)
		}

		tr := &trasher{tx: tx, deletedAt: tabs.NowMillis()}
		if input.Cascade {
			if err := tr.workspaceChildren(ctx, w.ID, &rootID); err != nil {
				return err
			}
		}
		root, err := tr.workspace(ctx, w, rootID, nil)
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
