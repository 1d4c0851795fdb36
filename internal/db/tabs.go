package db

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// tabColumns must match the scan order in scanTab.
const tabColumns = `id, group_id, url, title, favicon, position, is_archived, archived_at, created_at`

func scanTab(scanner interface{ Scan(dest ...any) error }) (*tabs.Tab, error) {
	var (
		t          tabs.Tab
		isArchived int
		archivedAt sql.NullInt64
	)
	err := scanner.Scan(&t.ID, &t.GroupID, &t.URL, &t.Title, &t.Favicon, &t.Position, &isArchived, &archivedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.IsArchived = isArchived != 0
	t.ArchivedAt = fromNullInt64(archivedAt)
	return &t, nil
}

func queryTabs(ctx context.Context, q Querier, query string, args ...any) ([]tabs.Tab, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := make([]tabs.Tab, 0)
	for rows.Next() {
		t, err := scanTab(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// tabWriteError maps a failed insert or update to a constraint-specific error.
func tabWriteError(ctx context.Context, q Querier, t *tabs.Tab, err error) error {
	cols, ok := uniqueViolation(err)
	if !ok {
		return errors.NewInternal(err)
	}
	if isPositionViolation(cols, "tabs", "group_id") {
		occupant := ""
		if other, lookupErr := TabAt(ctx, q, t.GroupID, t.Position); lookupErr == nil {
			occupant = other.ID
		}
		return errors.NewDuplicatePosition(string(tabs.TypeTab), "groupId", t.GroupID, t.Position, occupant)
	}
	return errors.NewDuplicateKey(string(tabs.TypeTab), t.ID)
}

// InsertTab stores a new tab.
// Returns DUPLICATE_KEY on id collision or DUPLICATE_POSITION when
// (group_id, position) is taken.
func InsertTab(ctx context.Context, q Querier, t *tabs.Tab) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tabs (id, group_id, url, title, favicon, search_norm, position, is_archived, archived_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.GroupID, t.URL, t.Title, t.Favicon, tabs.TabSearchText(t), t.Position,
		boolToInt(t.IsArchived), nullInt64(t.ArchivedAt), t.CreatedAt,
	)
	if err != nil {
		return tabWriteError(ctx, q, t, err)
	}
	return nil
}

// GetTab retrieves a tab by id.
func GetTab(ctx context.Context, q Querier, id string) (*tabs.Tab, error) {
	row := q.QueryRowContext(ctx, `SELECT `+tabColumns+` FROM tabs WHERE id = ?`, id)
	t, err := scanTab(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(string(tabs.TypeTab), id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return t, nil
}

// TabExists reports whether a tab with id is stored.
func TabExists(ctx context.Context, q Querier, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM tabs WHERE id = ?`, id).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// TabAt resolves the tab occupying position in a group through the
// (group_id, position) index.
func TabAt(ctx context.Context, q Querier, groupID string, position int) (*tabs.Tab, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+tabColumns+` FROM tabs WHERE group_id = ? AND position = ?`,
		groupID, position)
	t, err := scanTab(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(string(tabs.TypeTab), positionRef(groupID, position))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return t, nil
}

// NextTabPosition returns one past the highest tab position in a group.
func NextTabPosition(ctx context.Context, q Querier, groupID string) (int, error) {
	var next int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM tabs WHERE group_id = ?`,
		groupID).Scan(&next)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return next, nil
}

// ListTabs returns every tab across all groups.
func ListTabs(ctx context.Context, q Querier) ([]tabs.Tab, error) {
	return queryTabs(ctx, q, `SELECT `+tabColumns+` FROM tabs ORDER BY group_id, position`)
}

// ListTabsByGroup returns all tabs of a group, archived included, in position order.
func ListTabsByGroup(ctx context.Context, q Querier, groupID string) ([]tabs.Tab, error) {
	return queryTabs(ctx, q, `SELECT `+tabColumns+` FROM tabs WHERE group_id = ? ORDER BY position`, groupID)
}

// ListActiveTabs returns every non-archived tab through the is_archived index.
func ListActiveTabs(ctx context.Context, q Querier) ([]tabs.Tab, error) {
	return queryTabs(ctx, q, `SELECT `+tabColumns+` FROM tabs WHERE is_archived = 0 ORDER BY group_id, position`)
}

// UpdateTab writes every mutable field of t.
// Returns NOT_FOUND if the row does not exist, DUPLICATE_POSITION on a
// sibling position collision.
func UpdateTab(ctx context.Context, q Querier, t *tabs.Tab) error {
	result, err := q.ExecContext(ctx, `
		UPDATE tabs
		SET group_id = ?, url = ?, title = ?, favicon = ?, search_norm = ?, position = ?,
			is_archived = ?, archived_at = ?
		WHERE id = ?`,
		t.GroupID, t.URL, t.Title, t.Favicon, tabs.TabSearchText(t), t.Position,
		boolToInt(t.IsArchived), nullInt64(t.ArchivedAt), t.ID,
	)
	if err != nil {
		return tabWriteError(ctx, q, t, err)
	}
	return requireAffected(result, tabs.TypeTab, t.ID)
}

// SetTabPosition moves a single tab without touching other fields.
func SetTabPosition(ctx context.Context, q Querier, id string, position int) error {
	result, err := q.ExecContext(ctx, `UPDATE tabs SET position = ? WHERE id = ?`, position, id)
	if err != nil {
		if cols, ok := uniqueViolation(err); ok && isPositionViolation(cols, "tabs", "group_id") {
			return errors.NewDuplicatePosition(string(tabs.TypeTab), "groupId", "", position, "")
		}
		return errors.NewInternal(err)
	}
	return requireAffected(result, tabs.TypeTab, id)
}

// DeleteTab removes a tab row.
func DeleteTab(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM tabs WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireAffected(result, tabs.TypeTab, id)
}

// SearchTabs returns tabs whose title or url contains needle, optionally
// within one group. needle must already be normalized.
func SearchTabs(ctx context.Context, q Querier, needle, groupID string, limit int) ([]tabs.Tab, error) {
	query := `SELECT ` + tabColumns + ` FROM tabs WHERE search_norm LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(needle) + "%"}
	if groupID != "" {
		query += " AND group_id = ?"
		args = append(args, groupID)
	}
	query += " ORDER BY group_id, position LIMIT ?"
	args = append(args, limit)
	return queryTabs(ctx, q, query, args...)
}
