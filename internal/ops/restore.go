package ops

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hpungsan/tabshelf/internal/db"
	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/logger"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// ListTrashInput filters ListTrash. Type is workspace, tabGroup or tab.
type ListTrashInput struct {
	Type string `json:"type,omitempty"`
}

// TrashEntry is a tombstone plus its retention state at query time.
type TrashEntry struct {
	tabs.DeletedItem
	ExpiresAt     int64 `json:"expiresAt"`
	DaysRemaining int   `json:"daysRemaining"`
	Expired       bool  `json:"expired"`
}

// ListTrashOutput contains the result of ListTrash and ListExpired.
type ListTrashOutput struct {
	Items []TrashEntry `json:"items"`
	Total int          `json:"total"`
}

// RestoreInput contains parameters for RestoreDeletedItem.
type RestoreInput struct {
	ID string `json:"id"`

	// Cascade also restores the children trashed in the same batch.
	Cascade bool `json:"cascade,omitempty"`
}

// RestoredItem names a record returned to its store.
type RestoredItem struct {
	DeletedItemID string        `json:"deletedItemId"`
	Type          tabs.ItemType `json:"type"`
	ID            string        `json:"id"`
}

// RestoreOutput contains the result of RestoreDeletedItem.
type RestoreOutput struct {
	Restored []RestoredItem `json:"restored"`
}

// PermanentDeleteOutput contains the result of PermanentDelete.
type PermanentDeleteOutput struct {
	ID      string `json:"id"`
	Removed bool   `json:"removed"`
}

// PurgeOutput contains the result of PurgeExpired and EmptyTrash.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Failed  int    `json:"failed"`
	Message string `json:"message"`
}

func toEntries(items []tabs.DeletedItem, now int64) []TrashEntry {
	entries := make([]TrashEntry, len(items))
	for i := range items {
		entries[i] = TrashEntry{
			DeletedItem:   items[i],
			ExpiresAt:     items[i].ExpiresAt(),
			DaysRemaining: items[i].DaysRemaining(now),
			Expired:       items[i].IsExpired(now),
		}
	}
	return entries
}

// ListTrash returns tombstones newest first.
func ListTrash(ctx context.Context, database *sql.DB, input ListTrashInput) (*ListTrashOutput, error) {
	var filter db.DeletedFilter
	if raw := strings.TrimSpace(input.Type); raw != "" {
		typ, ok := tabs.ParseItemType(raw)
		if !ok {
			return nil, errors.NewInvalidRequest("type must be one of: workspace, tabGroup, tab")
		}
		filter.Type = &typ
	}

	items, err := db.ListDeletedItems(ctx, database, filter)
	if err != nil {
		return nil, err
	}
	entries := toEntries(items, tabs.NowMillis())
	return &ListTrashOutput{Items: entries, Total: len(entries)}, nil
}

// ListExpired returns tombstones strictly older than the retention period.
func ListExpired(ctx context.Context, database *sql.DB) (*ListTrashOutput, error) {
	now := tabs.NowMillis()
	items, err := db.ListDeletedItems(ctx, database, db.DeletedFilter{ExpiredBefore: now - tabs.RetentionMillis})
	if err != nil {
		return nil, err
	}
	entries := toEntries(items, now)
	return &ListTrashOutput{Items: entries, Total: len(entries)}, nil
}

// RestoreDeletedItem returns a tombstone's snapshot to its store. Checks run
// in order and stop at the first failure: retention, id conflict, then parent
// existence. On any failure the tombstone stays in the trash.
//
// With Cascade, children trashed in the same batch are restored after the
// root, groups before tabs, in the same transaction.
func RestoreDeletedItem(ctx context.Context, database *sql.DB, input RestoreInput) (*RestoreOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	out := &RestoreOutput{Restored: []RestoredItem{}}
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		now := tabs.NowMillis()
		root, err := db.GetDeletedItem(ctx, tx, id)
		if err != nil {
			return err
		}
		restored, err := restoreOne(ctx, tx, root, now)
		if err != nil {
			return err
		}
		out.Restored = append(out.Restored, *restored)

		if !input.Cascade || root.Type == tabs.TypeTab {
			return nil
		}
		batch, err := db.ListBatch(ctx, tx, root.ID)
		if err != nil {
			return err
		}
		for i := range batch {
			restored, err := restoreOne(ctx, tx, &batch[i], now)
			if err != nil {
				return err
			}
			out.Restored = append(out.Restored, *restored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func restoreOne(ctx context.Context, tx *sql.Tx, item *tabs.DeletedItem, now int64) (*RestoredItem, error) {
	if item.IsExpired(now) {
		return nil, errors.NewRetentionExpired(item.ID, item.DeletedAt)
	}
	entity, err := item.Payload()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	switch e := entity.(type) {
	case *tabs.Workspace:
		err = restoreWorkspace(ctx, tx, e)
	case *tabs.TabGroup:
		err = restoreGroup(ctx, tx, e)
	case *tabs.Tab:
		err = restoreTab(ctx, tx, e)
	default:
		err = errors.NewInternal(fmt.Errorf("unhandled entity %T", entity))
	}
	if err != nil {
		return nil, err
	}

	if _, err := db.DeleteDeletedItem(ctx, tx, item.ID); err != nil {
		return nil, err
	}
	return &RestoredItem{DeletedItemID: item.ID, Type: item.Type, ID: entity.EntityID()}, nil
}

// restoreWorkspace keeps the default flag only while no other workspace holds it.
func restoreWorkspace(ctx context.Context, tx *sql.Tx, w *tabs.Workspace) error {
	if exists, err := db.WorkspaceExists(ctx, tx, w.ID); err != nil {
		return err
	} else if exists {
		return errors.NewIDConflict(string(tabs.TypeWorkspace), w.ID)
	}
	if w.IsDefault {
		_, err := db.GetDefaultWorkspace(ctx, tx)
		switch {
		case err == nil:
			w.IsDefault = false
		case !errors.Is(err, errors.ErrNotFound):
			return err
		}
	}
	return db.InsertWorkspace(ctx, tx, w)
}

func restoreGroup(ctx context.Context, tx *sql.Tx, g *tabs.TabGroup) error {
	if exists, err := db.GroupExists(ctx, tx, g.ID); err != nil {
		return err
	} else if exists {
		return errors.NewIDConflict(string(tabs.TypeTabGroup), g.ID)
	}
	if exists, err := db.WorkspaceExists(ctx, tx, g.WorkspaceID); err != nil {
		return err
	} else if !exists {
		return errors.NewOrphanedParent(string(tabs.TypeTabGroup), g.ID, string(tabs.TypeWorkspace), g.WorkspaceID)
	}
	return db.InsertGroup(ctx, tx, g)
}

func restoreTab(ctx context.Context, tx *sql.Tx, t *tabs.Tab) error {
	if exists, err := db.TabExists(ctx, tx, t.ID); err != nil {
		return err
	} else if exists {
		return errors.NewIDConflict(string(tabs.TypeTab), t.ID)
	}
	if exists, err := db.GroupExists(ctx, tx, t.GroupID); err != nil {
		return err
	} else if !exists {
		return errors.NewOrphanedParent(string(tabs.TypeTab), t.ID, string(tabs.TypeTabGroup), t.GroupID)
	}
	return db.InsertTab(ctx, tx, t)
}

// PermanentDelete removes a tombstone without checks. A missing id is not an
// error; Removed reports whether anything was deleted.
func PermanentDelete(ctx context.Context, database *sql.DB, input IDInput) (*PermanentDeleteOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	removed, err := db.DeleteDeletedItem(ctx, database, id)
	if err != nil {
		return nil, err
	}
	return &PermanentDeleteOutput{ID: id, Removed: removed}, nil
}

// PurgeExpired removes every expired tombstone one at a time. A failure on
// one item is logged and counted; the sweep continues with the rest. Items
// that vanish before their turn are not counted.
func PurgeExpired(ctx context.Context, database *sql.DB, log *slog.Logger) (*PurgeOutput, error) {
	if log == nil {
		log = logger.Discard()
	}
	expired, err := ListExpired(ctx, database)
	if err != nil {
		return nil, err
	}

	out := &PurgeOutput{}
	for _, item := range expired.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		removed, err := db.DeleteDeletedItem(ctx, database, item.ID)
		if err != nil {
			out.Failed++
			log.Warn("purge expired item failed", "id", item.ID, "type", item.Type, "error", err)
			continue
		}
		if !removed {
			// Gone since the listing, e.g. permanently deleted meanwhile.
			log.Debug("expired item already removed", "id", item.ID)
			continue
		}
		out.Purged++
	}
	out.Message = formatPurgeMessage(out.Purged, out.Failed)
	if out.Purged > 0 || out.Failed > 0 {
		log.Info("purged expired trash", "purged", out.Purged, "failed", out.Failed)
	}
	return out, nil
}

// EmptyTrash removes every tombstone, expired or not.
func EmptyTrash(ctx context.Context, database *sql.DB) (*PurgeOutput, error) {
	n, err := db.DeleteAllDeletedItems(ctx, database)
	if err != nil {
		return nil, err
	}
	return &PurgeOutput{Purged: n, Message: formatPurgeMessage(n, 0)}, nil
}

func formatPurgeMessage(purged, failed int) string {
	if purged == 0 && failed == 0 {
		return "No deleted items to purge"
	}
	word := "item"
	if purged != 1 {
		word = "items"
	}
	msg := fmt.Sprintf("Permanently deleted %d %s", purged, word)
	if failed > 0 {
		msg += fmt.Sprintf(" (%d failed)", failed)
	}
	return msg
}
