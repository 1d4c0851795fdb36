package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/tabshelf/internal/db"
	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// CreateTabInput contains parameters for CreateTab.
type CreateTabInput struct {
	ID       string `json:"id,omitempty"` // optional; generated when blank
	GroupID  string `json:"groupId"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Favicon  string `json:"favicon,omitempty"`
	Position *int   `json:"position,omitempty"` // default: after the last sibling
}

// UpdateTabInput is a partial update; nil fields are left alone.
// Changing GroupID without Position appends the tab to the new group.
type UpdateTabInput struct {
	ID       string  `json:"id"`
	GroupID  *string `json:"groupId,omitempty"`
	URL      *string `json:"url,omitempty"`
	Title    *string `json:"title,omitempty"`
	Favicon  *string `json:"favicon,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// ListTabsInput filters ListTabs. An empty GroupID lists every tab.
type ListTabsInput struct {
	GroupID         string `json:"groupId,omitempty"`
	IncludeArchived bool   `json:"includeArchived,omitempty"`
}

// CreateTab stores a new tab in an existing group.
// Returns DUPLICATE_POSITION if the requested slot is taken.
func CreateTab(ctx context.Context, database *sql.DB, input CreateTabInput) (*tabs.Tab, error) {
	id, err := idOrNew(input.ID)
	if err != nil {
		return nil, err
	}
	t := &tabs.Tab{
		ID:        id,
		GroupID:   strings.TrimSpace(input.GroupID),
		URL:       strings.TrimSpace(input.URL),
		Title:     input.Title,
		Favicon:   input.Favicon,
		CreatedAt: tabs.NowMillis(),
	}
	if input.Position != nil {
		t.Position = *input.Position
	}
	if err := tabs.Validate(t); err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		if exists, err := db.GroupExists(ctx, tx, t.GroupID); err != nil {
			return err
		} else if !exists {
			return errors.NewNotFound(string(tabs.TypeTabGroup), t.GroupID)
		}
		if input.Position == nil {
			next, err := db.NextTabPosition(ctx, tx, t.GroupID)
			if err != nil {
				return err
			}
			t.Position = next
		}
		return db.InsertTab(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTab retrieves a tab by id.
func GetTab(ctx context.Context, database *sql.DB, input IDInput) (*tabs.Tab, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	return db.GetTab(ctx, database, id)
}

// ListTabs returns tabs in position order. Archived tabs are excluded unless
// IncludeArchived is set.
func ListTabs(ctx context.Context, database *sql.DB, input ListTabsInput) ([]tabs.Tab, error) {
	var (
		all []tabs.Tab
		err error
	)
	if groupID := strings.TrimSpace(input.GroupID); groupID != "" {
		all, err = db.ListTabsByGroup(ctx, database, groupID)
	} else {
		all, err = db.ListTabs(ctx, database)
	}
	if err != nil || input.IncludeArchived {
		return all, err
	}
	return activeTabs(all), nil
}

func activeTabs(all []tabs.Tab) []tabs.Tab {
	active := make([]tabs.Tab, 0, len(all))
	for _, t := range all {
		if !t.IsArchived {
			active = append(active, t)
		}
	}
	return active
}

// TabAtPosition returns the tab occupying a slot in a group.
func TabAtPosition(ctx context.Context, database *sql.DB, input PositionInput) (*tabs.Tab, error) {
	parentID, err := requireID("parentId", input.ParentID)
	if err != nil {
		return nil, err
	}
	return db.TabAt(ctx, database, parentID, input.Position)
}

// UpdateTab merges input into the stored tab. A new slot is checked against
// its siblings first so the error names the occupant.
func UpdateTab(ctx context.Context, database *sql.DB, input UpdateTabInput) (*tabs.Tab, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	var updated *tabs.Tab
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		t, err := db.GetTab(ctx, tx, id)
		if err != nil {
			return err
		}
		moved := input.GroupID != nil && strings.TrimSpace(*input.GroupID) != t.GroupID
		if moved {
			t.GroupID = strings.TrimSpace(*input.GroupID)
			if exists, err := db.GroupExists(ctx, tx, t.GroupID); err != nil {
				return err
			} else if !exists {
				return errors.NewNotFound(string(tabs.TypeTabGroup), t.GroupID)
			}
		}
		if input.URL != nil {
			t.URL = strings.TrimSpace(*input.URL)
		}
		if input.Title != nil {
			t.Title = *input.Title
		}
		if input.Favicon != nil {
			t.Favicon = *input.Favicon
		}

		switch {
		case input.Position != nil:
			t.Position = *input.Position
		case moved:
			next, err := db.NextTabPosition(ctx, tx, t.GroupID)
			if err != nil {
				return err
			}
			t.Position = next
		}
		if err := tabs.Validate(t); err != nil {
			return err
		}

		if input.Position != nil || moved {
			occupant, err := db.TabAt(ctx, tx, t.GroupID, t.Position)
			if err == nil && occupant.ID != t.ID {
				return errors.NewDuplicatePosition(string(tabs.TypeTab), "groupId", t.GroupID, t.Position, occupant.ID)
			}
			if err != nil && !errors.Is(err, errors.ErrNotFound) {
				return err
			}
		}

		if err := db.UpdateTab(ctx, tx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ArchiveTab hides a tab from active views without deleting it.
func ArchiveTab(ctx context.Context, database *sql.DB, input IDInput) (*tabs.Tab, error) {
	return setTabArchived(ctx, database, input.ID, true)
}

// UnarchiveTab returns an archived tab to active views.
func UnarchiveTab(ctx context.Context, database *sql.DB, input IDInput) (*tabs.Tab, error) {
	return setTabArchived(ctx, database, input.ID, false)
}

func setTabArchived(ctx context.Context, database *sql.DB, rawID string, archived bool) (*tabs.Tab, error) {
	id, err := requireID("id", rawID)
	if err != nil {
		return nil, err
	}

	var updated *tabs.Tab
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		t, err := db.GetTab(ctx, tx, id)
		if err != nil {
			return err
		}
		if t.IsArchived == archived {
			updated = t
			return nil
		}
		t.IsArchived = archived
		t.ArchivedAt = nil
		if archived {
			now := tabs.NowMillis()
			t.ArchivedAt = &now
		}
		if err := db.UpdateTab(ctx, tx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReorderTabs renumbers every tab of a group to 0..n-1 in the order given.
// IDs must be exactly the group's current tabs.
func ReorderTabs(ctx context.Context, database *sql.DB, input ReorderInput) ([]tabs.Tab, error) {
	groupID, err := requireID("parentId", input.ParentID)
	if err != nil {
		return nil, err
	}

	var result []tabs.Tab
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		current, err := db.ListTabsByGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		ids := make([]string, len(current))
		for i, t := range current {
			ids[i] = t.ID
		}
		if err := checkReorder(input.IDs, ids); err != nil {
			return err
		}

		for i, id := range input.IDs {
			if err := db.SetTabPosition(ctx, tx, id, tempPosition(i)); err != nil {
				return err
			}
		}
		for i, id := range input.IDs {
			if err := db.SetTabPosition(ctx, tx, id, i); err != nil {
				return err
			}
		}

		result, err = db.ListTabsByGroup(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteTab moves a tab to the trash.
func DeleteTab(ctx context.Context, database *sql.DB, input IDInput) (*DeleteOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	var out *DeleteOutput
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		t, err := db.GetTab(ctx, tx, id)
		if err != nil {
			return err
		}
		tr := &trasher{tx: tx, deletedAt: tabs.NowMillis()}
		root, err := tr.tab(ctx, t, "", nil)
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
