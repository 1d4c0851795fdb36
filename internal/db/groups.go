package db

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// groupColumns must match the scan order in scanGroup.
const groupColumns = `id, workspace_id, name, icon, position, is_archived, archived_at, created_at`

func scanGroup(scanner interface{ Scan(dest ...any) error }) (*tabs.TabGroup, error) {
	var (
		g          tabs.TabGroup
		isArchived int
		archivedAt sql.NullInt64
	)
	err := scanner.Scan(&g.ID, &g.WorkspaceID, &g.Name, &g.Icon, &g.Position, &isArchived, &archivedAt, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	g.IsArchived = isArchived != 0
	g.ArchivedAt = fromNullInt64(archivedAt)
	return &g, nil
}

func queryGroups(ctx context.Context, q Querier, query string, args ...any) ([]tabs.TabGroup, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := make([]tabs.TabGroup, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// groupWriteError maps a failed insert or update to a constraint-specific error.
func groupWriteError(ctx context.Context, q Querier, g *tabs.TabGroup, err error) error {
	cols, ok := uniqueViolation(err)
	if !ok {
		return errors.NewInternal(err)
	}
	if isPositionViolation(cols, "tab_groups", "workspace_id") {
		occupant := ""
		if other, lookupErr := GroupAt(ctx, q, g.WorkspaceID, g.Position); lookupErr == nil {
			occupant = other.ID
		}
		return errors.NewDuplicatePosition(string(tabs.TypeTabGroup), "workspaceId", g.WorkspaceID, g.Position, occupant)
	}
	return errors.NewDuplicateKey(string(tabs.TypeTabGroup), g.ID)
}

// InsertGroup stores a new tab group.
// Returns DUPLICATE_KEY on id collision or DUPLICATE_POSITION when
// (workspace_id, position) is taken.
func InsertGroup(ctx context.Context, q Querier, g *tabs.TabGroup) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tab_groups (id, workspace_id, name, name_norm, icon, position, is_archived, archived_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.WorkspaceID, g.Name, tabs.Normalize(g.Name), g.Icon, g.Position,
		boolToInt(g.IsArchived), nullInt64(g.ArchivedAt), g.CreatedAt,
	)
	if err != nil {
		return groupWriteError(ctx, q, g, err)
	}
	return nil
}

// GetGroup retrieves a tab group by id.
func GetGroup(ctx context.Context, q Querier, id string) (*tabs.TabGroup, error) {
	row := q.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM tab_groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(string(tabs.TypeTabGroup), id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return g, nil
}

// GroupExists reports whether a tab group with id is stored.
func GroupExists(ctx context.Context, q Querier, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM tab_groups WHERE id = ?`, id).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// GroupAt resolves the group occupying position in a workspace through the
// (workspace_id, position) index.
func GroupAt(ctx context.Context, q Querier, workspaceID string, position int) (*tabs.TabGroup, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM tab_groups WHERE workspace_id = ? AND position = ?`,
		workspaceID, position)
	g, err := scanGroup(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(string(tabs.TypeTabGroup), positionRef(workspaceID, position))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return g, nil
}

// NextGroupPosition returns one past the highest group position in a workspace.
func NextGroupPosition(ctx context.Context, q Querier, workspaceID string) (int, error) {
	var next int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM tab_groups WHERE workspace_id = ?`,
		workspaceID).Scan(&next)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return next, nil
}

// ListGroups returns every tab group across all workspaces.
func ListGroups(ctx context.Context, q Querier) ([]tabs.TabGroup, error) {
	return queryGroups(ctx, q, `SELECT `+groupColumns+` FROM tab_groups ORDER BY workspace_id, position`)
}

// ListGroupsByWorkspace returns the groups of one workspace in position order.
func ListGroupsByWorkspace(ctx context.Context, q Querier, workspaceID string, includeArchived bool) ([]tabs.TabGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM tab_groups WHERE workspace_id = ?`
	if !includeArchived {
		query += " AND is_archived = 0"
	}
	query += " ORDER BY position"
	return queryGroups(ctx, q, query, workspaceID)
}

// UpdateGroup writes every mutable field of g.
// Returns NOT_FOUND if the row does not exist, DUPLICATE_POSITION on a
// sibling position collision.
func UpdateGroup(ctx context.Context, q Querier, g *tabs.TabGroup) error {
	result, err := q.ExecContext(ctx, `
		UPDATE tab_groups
		SET workspace_id = ?, name = ?, name_norm = ?, icon = ?, position = ?,
			is_archived = ?, archived_at = ?
		WHERE id = ?`,
		g.WorkspaceID, g.Name, tabs.Normalize(g.Name), g.Icon, g.Position,
		boolToInt(g.IsArchived), nullInt64(g.ArchivedAt), g.ID,
	)
	if err != nil {
		return groupWriteError(ctx, q, g, err)
	}
	return requireAffected(result, tabs.TypeTabGroup, g.ID)
}

// SetGroupPosition moves a single group without touching other fields.
func SetGroupPosition(ctx context.Context, q Querier, id string, position int) error {
	result, err := q.ExecContext(ctx, `UPDATE tab_groups SET position = ? WHERE id = ?`, position, id)
	if err != nil {
		if cols, ok := uniqueViolation(err); ok && isPositionViolation(cols, "tab_groups", "workspace_id") {
			return errors.NewDuplicatePosition(string(tabs.TypeTabGroup), "workspaceId", "", position, "")
		}
		return errors.NewInternal(err)
	}
	return requireAffected(result, tabs.TypeTabGroup, id)
}

// DeleteGroup removes a tab group row. Its tabs are not touched.
func DeleteGroup(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM tab_groups WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireAffected(result, tabs.TypeTabGroup, id)
}

// SearchGroups returns groups whose name contains needle, optionally within
// one workspace. needle must already be normalized.
func SearchGroups(ctx context.Context, q Querier, needle, workspaceID string, limit int) ([]tabs.TabGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM tab_groups WHERE name_norm LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(needle) + "%"}
	if workspaceID != "" {
		query += " AND workspace_id = ?"
		args = append(args, workspaceID)
	}
	query += " ORDER BY workspace_id, position LIMIT ?"
	args = append(args, limit)
	return queryGroups(ctx, q, query, args...)
}
