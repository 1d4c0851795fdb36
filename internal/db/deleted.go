package db

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// deletedColumns must match the scan order in scanDeletedItem.
const deletedColumns = `id, type, data, deleted_at, original_location, parent_id, batch_id`

// DeletedFilter narrows ListDeletedItems.
type DeletedFilter struct {
	Type *tabs.ItemType

	// ExpiredBefore keeps only items with deleted_at < ExpiredBefore when non-zero.
	ExpiredBefore int64
}

func scanDeletedItem(scanner interface{ Scan(dest ...any) error }) (*tabs.DeletedItem, error) {
	var (
		d        tabs.DeletedItem
		typ      string
		data     string
		parentID sql.NullString
		batchID  sql.NullString
	)
	if err := scanner.Scan(&d.ID, &typ, &data, &d.DeletedAt, &d.OriginalLocation, &parentID, &batchID); err != nil {
		return nil, err
	}
	d.Type = tabs.ItemType(typ)
	d.Data = []byte(data)
	d.ParentID = fromNullString(parentID)
	d.BatchID = fromNullString(batchID)
	return &d, nil
}

func queryDeletedItems(ctx context.Context, q Querier, query string, args ...any) ([]tabs.DeletedItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := make([]tabs.DeletedItem, 0)
	for rows.Next() {
		d, err := scanDeletedItem(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// InsertDeletedItem stores a tombstone.
// Returns DUPLICATE_KEY if the id is taken.
func InsertDeletedItem(ctx context.Context, q Querier, d *tabs.DeletedItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO deleted_items (id, type, data, deleted_at, original_location, parent_id, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, string(d.Type), string(d.Data), d.DeletedAt, d.OriginalLocation,
		toNullString(d.ParentID), toNullString(d.BatchID),
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return errors.NewDuplicateKey("deletedItem", d.ID)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetDeletedItem retrieves a tombstone by id.
func GetDeletedItem(ctx context.Context, q Querier, id string) (*tabs.DeletedItem, error) {
	row := q.QueryRowContext(ctx, `SELECT `+deletedColumns+` FROM deleted_items WHERE id = ?`, id)
	d, err := scanDeletedItem(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("deletedItem", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return d, nil
}

// ListDeletedItems returns tombstones newest first.
func ListDeletedItems(ctx context.Context, q Querier, f DeletedFilter) ([]tabs.DeletedItem, error) {
	query := `SELECT ` + deletedColumns + ` FROM deleted_items WHERE 1=1`
	var args []any
	if f.Type != nil {
		query += " AND type = ?"
		args = append(args, string(*f.Type))
	}
	if f.ExpiredBefore > 0 {
		query += " AND deleted_at < ?"
		args = append(args, f.ExpiredBefore)
	}
	query += " ORDER BY deleted_at DESC, id DESC"
	return queryDeletedItems(ctx, q, query, args...)
}

// ListBatch returns the tombstones trashed together with the root batchID,
// workspaces first, then groups, then tabs.
func ListBatch(ctx context.Context, q Querier, batchID string) ([]tabs.DeletedItem, error) {
	return queryDeletedItems(ctx, q, `
		SELECT `+deletedColumns+` FROM deleted_items
		WHERE batch_id = ?
		ORDER BY CASE type WHEN 'workspace' THEN 0 WHEN 'tabGroup' THEN 1 ELSE 2 END, id`,
		batchID,
	)
}

// DeleteDeletedItem removes a tombstone and reports whether one was removed.
func DeleteDeletedItem(ctx context.Context, q Querier, id string) (bool, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM deleted_items WHERE id = ?`, id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// DeleteAllDeletedItems empties the trash and returns the number removed.
func DeleteAllDeletedItems(ctx context.Context, q Querier) (int, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM deleted_items`)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// CountDeletedItems returns the number of tombstones, optionally of one type.
func CountDeletedItems(ctx context.Context, q Querier, typ *tabs.ItemType) (int, error) {
	query := `SELECT COUNT(*) FROM deleted_items`
	var args []any
	if typ != nil {
		query += " WHERE type = ?"
		args = append(args, string(*typ))
	}
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}
