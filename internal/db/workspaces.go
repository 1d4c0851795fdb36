package db

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// workspaceColumns must match the scan order in scanWorkspace.
const workspaceColumns = `id, name, is_default, created_at, last_accessed_at`

func scanWorkspace(scanner interface{ Scan(dest ...any) error }) (*tabs.Workspace, error) {
	var (
		w         tabs.Workspace
		isDefault int
	)
	if err := scanner.Scan(&w.ID, &w.Name, &isDefault, &w.CreatedAt, &w.LastAccessedAt); err != nil {
		return nil, err
	}
	w.IsDefault = isDefault != 0
	return &w, nil
}

func queryWorkspaces(ctx context.Context, q Querier, query string, args ...any) ([]tabs.Workspace, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := make([]tabs.Workspace, 0)
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// InsertWorkspace stores a new workspace.
// Returns DUPLICATE_KEY if the id is taken.
func InsertWorkspace(ctx context.Context, q Querier, w *tabs.Workspace) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, name_norm, is_default, created_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, tabs.Normalize(w.Name), boolToInt(w.IsDefault), w.CreatedAt, w.LastAccessedAt,
	)
	if err != nil {
		if cols, ok := uniqueViolation(err); ok {
			if len(cols) == 1 && cols[0] == "workspaces.is_default" {
				return errors.NewConflict("another workspace is already the default")
			}
			return errors.NewDuplicateKey(string(tabs.TypeWorkspace), w.ID)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetWorkspace retrieves a workspace by id.
func GetWorkspace(ctx context.Context, q Querier, id string) (*tabs.Workspace, error) {
	row := q.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id)
	w, err := scanWorkspace(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(string(tabs.TypeWorkspace), id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return w, nil
}

// WorkspaceExists reports whether a workspace with id is stored.
func WorkspaceExists(ctx context.Context, q Querier, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM workspaces WHERE id = ?`, id).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ListWorkspaces returns every workspace, oldest first.
func ListWorkspaces(ctx context.Context, q Querier) ([]tabs.Workspace, error) {
	return queryWorkspaces(ctx, q, `SELECT `+workspaceColumns+` FROM workspaces ORDER BY created_at, id`)
}

// GetDefaultWorkspace returns the workspace flagged as default.
func GetDefaultWorkspace(ctx context.Context, q Querier) (*tabs.Workspace, error) {
	row := q.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE is_default = 1`)
	w, err := scanWorkspace(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(string(tabs.TypeWorkspace), "default")
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return w, nil
}

// ClearDefaultWorkspace unsets the default flag on every workspace except keepID.
func ClearDefaultWorkspace(ctx context.Context, q Querier, keepID string) error {
	_, err := q.ExecContext(ctx, `UPDATE workspaces SET is_default = 0 WHERE is_default = 1 AND id <> ?`, keepID)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// UpdateWorkspace writes every mutable field of w.
// Returns NOT_FOUND if the row does not exist.
func UpdateWorkspace(ctx context.Context, q Querier, w *tabs.Workspace) error {
	result, err := q.ExecContext(ctx, `
		UPDATE workspaces
		SET name = ?, name_norm = ?, is_default = ?, last_accessed_at = ?
		WHERE id = ?`,
		w.Name, tabs.Normalize(w.Name), boolToInt(w.IsDefault), w.LastAccessedAt, w.ID,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return errors.NewConflict("another workspace is already the default")
		}
		return errors.NewInternal(err)
	}
	return requireAffected(result, tabs.TypeWorkspace, w.ID)
}

// DeleteWorkspace removes a workspace row. Children are not touched.
func DeleteWorkspace(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireAffected(result, tabs.TypeWorkspace, id)
}

// SearchWorkspaces returns workspaces whose name contains needle.
// needle must already be normalized.
func SearchWorkspaces(ctx context.Context, q Querier, needle string, limit int) ([]tabs.Workspace, error) {
	return queryWorkspaces(ctx, q, `
		SELECT `+workspaceColumns+` FROM workspaces
		WHERE name_norm LIKE ? ESCAPE '\'
		ORDER BY last_accessed_at DESC, id
		LIMIT ?`,
		"%"+escapeLike(needle)+"%", limit,
	)
}

// requireAffected maps a zero-row write to NOT_FOUND.
func requireAffected(result sql.Result, kind tabs.ItemType, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(string(kind), id)
	}
	return nil
}
