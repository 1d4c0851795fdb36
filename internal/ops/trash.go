package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/tabshelf/internal/db"
	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// trasher moves records into deleted_items inside one transaction. Every
// tombstone it writes shares deletedAt.
type trasher struct {
	tx        *sql.Tx
	deletedAt int64
	count     int
}

// entry describes one record to bury. An empty id is generated; batch links
// a child to its root tombstone.
type entry struct {
	id       string
	entity   tabs.Entity
	location string
	batch    *string
	remove   func() error
}

// bury snapshots the entity, stores the tombstone, then removes the original row.
func (tr *trasher) bury(ctx context.Context, e entry) (*tabs.DeletedItem, error) {
	id := e.id
	if id == "" {
		var err error
		if id, err = tabs.NewID(); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	item, err := tabs.NewDeletedItem(id, e.entity, tr.deletedAt, e.location, e.batch)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := db.InsertDeletedItem(ctx, tr.tx, item); err != nil {
		return nil, err
	}
	if err := e.remove(); err != nil {
		return nil, err
	}
	tr.count++
	return item, nil
}

func (tr *trasher) workspace(ctx context.Context, w *tabs.Workspace, id string, batch *string) (*tabs.DeletedItem, error) {
	return tr.bury(ctx, entry{
		id:       id,
		entity:   w,
		location: tabs.Location(w.Name),
		batch:    batch,
		remove:   func() error { return db.DeleteWorkspace(ctx, tr.tx, w.ID) },
	})
}

func (tr *trasher) group(ctx context.Context, g *tabs.TabGroup, id string, batch *string) (*tabs.DeletedItem, error) {
	return tr.bury(ctx, entry{
		id:       id,
		entity:   g,
		location: tabs.Location(workspaceName(ctx, tr.tx, g.WorkspaceID), g.Name),
		batch:    batch,
		remove:   func() error { return db.DeleteGroup(ctx, tr.tx, g.ID) },
	})
}

func (tr *trasher) tab(ctx context.Context, t *tabs.Tab, id string, batch *string) (*tabs.DeletedItem, error) {
	return tr.bury(ctx, entry{
		id:       id,
		entity:   t,
		location: tabLocation(ctx, tr.tx, t),
		batch:    batch,
		remove:   func() error { return db.DeleteTab(ctx, tr.tx, t.ID) },
	})
}

// groupChildren trashes every tab of a group, archived included.
func (tr *trasher) groupChildren(ctx context.Context, groupID string, batch *string) error {
	children, err := db.ListTabsByGroup(ctx, tr.tx, groupID)
	if err != nil {
		return err
	}
	for i := range children {
		if _, err := tr.tab(ctx, &children[i], "", batch); err != nil {
			return err
		}
	}
	return nil
}

// workspaceChildren trashes every group of a workspace and their tabs.
func (tr *trasher) workspaceChildren(ctx context.Context, workspaceID string, batch *string) error {
	groups, err := db.ListGroupsByWorkspace(ctx, tr.tx, workspaceID, true)
	if err != nil {
		return err
	}
	for i := range groups {
		// Tabs first so their location still names the group.
		if err := tr.groupChildren(ctx, groups[i].ID, batch); err != nil {
			return err
		}
		if _, err := tr.group(ctx, &groups[i], "", batch); err != nil {
			return err
		}
	}
	return nil
}

// workspaceName returns "" when the workspace is gone; location is cosmetic.
func workspaceName(ctx context.Context, q db.Querier, id string) string {
	w, err := db.GetWorkspace(ctx, q, id)
	if err != nil {
		return ""
	}
	return w.Name
}

func tabLocation(ctx context.Context, q db.Querier, t *tabs.Tab) string {
	label := t.Title
	if label == "" {
		label = t.URL
	}
	g, err := db.GetGroup(ctx, q, t.GroupID)
	if err != nil {
		return tabs.Location(label)
	}
	return tabs.Location(workspaceName(ctx, q, g.WorkspaceID), g.Name, label)
}

// deleteOutput reports a root tombstone and how many children followed it.
func deleteOutput(root *tabs.DeletedItem, tr *trasher) *DeleteOutput {
	return &DeleteOutput{
		DeletedItemID:    root.ID,
		Type:             root.Type,
		OriginalLocation: root.OriginalLocation,
		Cascaded:         tr.count - 1,
	}
}
