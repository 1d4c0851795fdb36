package db

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one schema step. apply runs inside the step's transaction,
// which also records the new user_version.
type migration struct {
	version     int
	description string
	apply       func(ctx context.Context, tx *sql.Tx, opts Options) error
}

var migrations = []migration{
	{1, "initial workspaces, tab_groups, tabs", migrateV1},
	{2, "deleted_items trash collection", migrateV2},
	{3, "scope tab group positions to their workspace", migrateV3},
	{4, "scope tab positions to their group; single default workspace; trash batches", migrateV4},
}

// migrate applies every step above the stored user_version up to target.
func migrate(ctx context.Context, db *sql.DB, target int, opts Options) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= version || m.version > target {
			continue
		}
		if err := runMigration(ctx, db, m, opts); err != nil {
			return err
		}
		opts.Logger.Info("applied schema migration", "version", m.version, "description", m.description)
	}
	return nil
}

func runMigration(ctx context.Context, db *sql.DB, m migration, opts Options) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.version, err)
	}
	defer tx.Rollback()

	if err := m.apply(ctx, tx, opts); err != nil {
		return fmt.Errorf("migration %d failed: %w", m.version, err)
	}
	if err := SetUserVersion(ctx, tx, m.version); err != nil {
		return fmt.Errorf("migration %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.version, err)
	}
	return nil
}

// Migration 0 -> 1: positions were globally unique in the first release.
func migrateV1(ctx context.Context, tx *sql.Tx, _ Options) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS workspaces (
	  id               TEXT PRIMARY KEY,
	  name             TEXT NOT NULL,
	  name_norm        TEXT NOT NULL,
	  is_default       INTEGER NOT NULL DEFAULT 0,
	  created_at       INTEGER NOT NULL,
	  last_accessed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workspaces_is_default
	ON workspaces(is_default);

	CREATE TABLE IF NOT EXISTS tab_groups (
	  id           TEXT PRIMARY KEY,
	  workspace_id TEXT NOT NULL,
	  name         TEXT NOT NULL,
	  name_norm    TEXT NOT NULL,
	  icon         TEXT NOT NULL DEFAULT '',
	  position     INTEGER NOT NULL,
	  is_archived  INTEGER NOT NULL DEFAULT 0,
	  archived_at  INTEGER,
	  created_at   INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_tab_groups_position
	ON tab_groups(position);

	CREATE INDEX IF NOT EXISTS idx_tab_groups_workspace
	ON tab_groups(workspace_id);

	CREATE TABLE IF NOT EXISTS tabs (
	  id          TEXT PRIMARY KEY,
	  group_id    TEXT NOT NULL,
	  url         TEXT NOT NULL,
	  title       TEXT NOT NULL DEFAULT '',
	  favicon     TEXT NOT NULL DEFAULT '',
	  search_norm TEXT NOT NULL DEFAULT '',
	  position    INTEGER NOT NULL,
	  is_archived INTEGER NOT NULL DEFAULT 0,
	  archived_at INTEGER,
	  created_at  INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_tabs_position
	ON tabs(position);

	CREATE INDEX IF NOT EXISTS idx_tabs_group
	ON tabs(group_id);
	`)
	return err
}

// Migration 1 -> 2: recently deleted items.
func migrateV2(ctx context.Context, tx *sql.Tx, _ Options) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS deleted_items (
	  id                TEXT PRIMARY KEY,
	  type              TEXT NOT NULL CHECK (type IN ('workspace', 'tabGroup', 'tab')),
	  data              TEXT NOT NULL,
	  deleted_at        INTEGER NOT NULL,
	  original_location TEXT NOT NULL DEFAULT '',
	  parent_id         TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_deleted_items_deleted_at
	ON deleted_items(deleted_at);

	CREATE INDEX IF NOT EXISTS idx_deleted_items_type
	ON deleted_items(type);
	`)
	return err
}

// Migration 2 -> 3: the global position index becomes (workspace_id, position).
// SQLite cannot drop a constraint in place, so the table is rebuilt.
func migrateV3(ctx context.Context, tx *sql.Tx, opts Options) error {
	return rebuildTable(ctx, tx, opts, rebuild{
		table: "tab_groups",
		create: `
		CREATE TABLE tab_groups_rebuild (
		  id           TEXT PRIMARY KEY,
		  workspace_id TEXT NOT NULL,
		  name         TEXT NOT NULL,
		  name_norm    TEXT NOT NULL,
		  icon         TEXT NOT NULL DEFAULT '',
		  position     INTEGER NOT NULL,
		  is_archived  INTEGER NOT NULL DEFAULT 0,
		  archived_at  INTEGER,
		  created_at   INTEGER NOT NULL
		)`,
		columns: "id, workspace_id, name, name_norm, icon, position, is_archived, archived_at, created_at",
		indexes: `
		CREATE UNIQUE INDEX idx_tab_groups_workspace_position
		ON tab_groups(workspace_id, position);

		CREATE INDEX idx_tab_groups_archived
		ON tab_groups(is_archived);
		`,
	})
}

// Migration 3 -> 4: the global tab position index becomes (group_id, position).
// Also enforces a single default workspace and records trash batches.
func migrateV4(ctx context.Context, tx *sql.Tx, opts Options) error {
	err := rebuildTable(ctx, tx, opts, rebuild{
		table: "tabs",
		create: `
		CREATE TABLE tabs_rebuild (
		  id          TEXT PRIMARY KEY,
		  group_id    TEXT NOT NULL,
		  url         TEXT NOT NULL,
		  title       TEXT NOT NULL DEFAULT '',
		  favicon     TEXT NOT NULL DEFAULT '',
		  search_norm TEXT NOT NULL DEFAULT '',
		  position    INTEGER NOT NULL,
		  is_archived INTEGER NOT NULL DEFAULT 0,
		  archived_at INTEGER,
		  created_at  INTEGER NOT NULL
		)`,
		columns: "id, group_id, url, title, favicon, search_norm, position, is_archived, archived_at, created_at",
		indexes: `
		CREATE UNIQUE INDEX idx_tabs_group_position
		ON tabs(group_id, position);

		CREATE INDEX idx_tabs_archived
		ON tabs(is_archived);
		`,
	})
	if err != nil {
		return err
	}

	// Keep the oldest default if earlier versions let several accumulate.
	_, err = tx.ExecContext(ctx, `
	UPDATE workspaces SET is_default = 0
	WHERE is_default = 1 AND id <> (
	  SELECT id FROM workspaces WHERE is_default = 1
	  ORDER BY created_at, id LIMIT 1
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_workspaces_single_default
	ON workspaces(is_default) WHERE is_default = 1;

	ALTER TABLE deleted_items ADD COLUMN batch_id TEXT;

	CREATE INDEX IF NOT EXISTS idx_deleted_items_batch
	ON deleted_items(batch_id) WHERE batch_id IS NOT NULL;
	`)
	return err
}

// rebuild describes a copy-out, recreate, copy-in table rebuild.
type rebuild struct {
	table   string
	create  string // creates <table>_rebuild
	columns string // shared column list
	indexes string // created after the rename
}

func rebuildTable(ctx context.Context, tx *sql.Tx, opts Options, r rebuild) error {
	tmp := r.table + "_rebuild"

	if _, err := tx.ExecContext(ctx, r.create); err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if opts.DiscardOnRebuild {
		var dropped int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+r.table).Scan(&dropped); err != nil {
			return fmt.Errorf("count %s: %w", r.table, err)
		}
		if dropped > 0 {
			opts.Logger.Warn("discarding rows during table rebuild", "table", r.table, "rows", dropped)
		}
	} else {
		copyIn := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tmp, r.columns, r.columns, r.table)
		if _, err := tx.ExecContext(ctx, copyIn); err != nil {
			return fmt.Errorf("copy %s: %w", r.table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+r.table); err != nil {
		return fmt.Errorf("drop %s: %w", r.table, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tmp, r.table)); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	if _, err := tx.ExecContext(ctx, r.indexes); err != nil {
		return fmt.Errorf("index %s: %w", r.table, err)
	}
	return nil
}
