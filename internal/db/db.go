package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hpungsan/tabshelf/internal/config"
	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/logger"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 4

// FileName is the database file created inside the base directory.
const FileName = "tabshelf.db"

// Options tunes how the database is opened.
type Options struct {
	// DiscardOnRebuild drops existing rows when a migration rebuilds a table
	// to change its index shape. The default copies rows into the rebuilt table.
	DiscardOnRebuild bool

	// Logger receives migration progress. Nil discards.
	Logger *slog.Logger
}

// Init opens the database at baseDir/tabshelf.db with default options.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.tabshelf.
func Init(baseDir string) (*sql.DB, error) {
	return Open(baseDir, Options{})
}

// Open creates baseDir if needed, opens the SQLite database, and applies any
// pending migrations before returning. Failures are CONNECTION errors.
func Open(baseDir string, opts Options) (*sql.DB, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, errors.NewConnection(fmt.Errorf("failed to create base directory: %w", err))
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the connection string apply to every pooled connection.
	// _txlock=immediate makes write transactions take the lock at BEGIN;
	// read-only transactions (WithReadTx) begin deferred.
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewConnection(fmt.Errorf("failed to open database: %w", err))
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, errors.NewConnection(err)
	}

	if err := migrate(context.Background(), db, CurrentSchemaVersion, opts); err != nil {
		db.Close()
		return nil, errors.NewConnection(err)
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(ctx context.Context, q Querier, version int) error {
	_, err := q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
