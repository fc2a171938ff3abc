// ABOUTME: Schema version detection and the guarded upgrade to version 4
// ABOUTME: Upgrades run behind a verified file backup and restore on failure

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// backupFreshness is how stale the backup file's mtime may be before the
// upgrade refuses to proceed. A stale mtime means the copy did not happen.
const backupFreshness = 2 * time.Second

// migrate brings the database to the current schema version. Fresh files
// get the full schema directly; legacy versions are upgraded inside one
// transaction behind a file backup.
func (s *SQLiteStore) migrate() error {
	db, release, err := s.handle.acquire()
	if err != nil {
		return err
	}
	defer release()

	version, fresh, err := detectVersion(db)
	if err != nil {
		return err
	}
	if fresh {
		return s.createSchema(db)
	}
	if version < schemaVersion {
		s.logger.Info("upgrading settings database",
			"from", version, "to", schemaVersion)
		if err := s.upgrade(db, version); err != nil {
			return err
		}
	}
	// idempotent: fills in any table a partial legacy file lacks
	return s.createSchema(db)
}

// detectVersion reads the stored schema version. A file with no settings
// table at all is fresh; a settings table without the map table is the
// pre-flag layout, version 1.
func detectVersion(db *sql.DB) (version int, fresh bool, err error) {
	hasSettings, err := tableExists(db, "settings")
	if err != nil {
		return 0, false, err
	}
	if !hasSettings {
		return 0, true, nil
	}
	hasMap, err := tableExists(db, "map")
	if err != nil {
		return 0, false, err
	}
	if !hasMap {
		return 1, false, nil
	}
	var raw string
	err = db.QueryRow(`SELECT value FROM map WHERE name = ?`, SettingDBVersion).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading stored version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parsing stored version %q: %w", raw, err)
	}
	return v, false, nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspecting schema: %w", err)
	}
	return n > 0, nil
}

// upgrade migrates a legacy database in place. The database file is copied
// aside first and the copy's mtime verified; a failed upgrade puts the
// backup back.
func (s *SQLiteStore) upgrade(db *sql.DB, from int) error {
	// flush the WAL so the file copy is the whole database
	if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpointing before backup: %w", err)
	}

	backup := s.path + ".bak"
	if err := copyFile(s.path, backup); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	info, err := os.Stat(backup)
	if err != nil {
		return fmt.Errorf("verifying backup: %w", err)
	}
	if age := time.Since(info.ModTime()); age > backupFreshness {
		return fmt.Errorf("backup file is stale (age %s), refusing to upgrade", age)
	}

	if err := s.applyUpgrade(db, from); err != nil {
		s.logger.Error("upgrade failed, restoring backup", "error", err)
		if restoreErr := copyFile(backup, s.path); restoreErr != nil {
			return fmt.Errorf("restoring backup after failed upgrade: %w (upgrade error: %v)",
				restoreErr, err)
		}
		return fmt.Errorf("upgrading schema: %w", err)
	}

	s.logger.Info("settings database upgraded", "version", schemaVersion)
	return nil
}

func (s *SQLiteStore) applyUpgrade(db *sql.DB, from int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning upgrade transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		// pre-v4 files carried a one-row version table
		`DROP TABLE IF EXISTS version`,
		`CREATE TABLE IF NOT EXISTS allowed_contacts (
			settings_id INTEGER NOT NULL,
			contact_id INTEGER NOT NULL,
			PRIMARY KEY (settings_id, contact_id)
		)`,
		`CREATE TABLE IF NOT EXISTS map (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("applying upgrade statement: %w", err)
		}
	}
	seed := `INSERT OR IGNORE INTO map (name, value) VALUES (?, ?)`
	for _, kv := range [][2]string{
		{SettingEnabled, ValueTrue},
		{SettingNotificationsEnabled, ValueTrue},
	} {
		if _, err := tx.Exec(seed, kv[0], kv[1]); err != nil {
			return fmt.Errorf("seeding flag %s: %w", kv[0], err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO map (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		SettingDBVersion, strconv.Itoa(schemaVersion)); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}

	if err := s.flattenLegacyMirror(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upgrade: %w", err)
	}
	return nil
}

// flattenLegacyMirror rewrites the old <mirror>/<pkg>/<uid>/<file> layout
// to <mirror>/<pkg>/<file>. UIDs change across reinstalls; package names
// don't.
func (s *SQLiteStore) flattenLegacyMirror() error {
	pkgs, err := os.ReadDir(s.mirrorDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading mirror root: %w", err)
	}
	for _, pkg := range pkgs {
		if !pkg.IsDir() {
			continue
		}
		pkgDir := filepath.Join(s.mirrorDir, pkg.Name())
		children, err := os.ReadDir(pkgDir)
		if err != nil {
			return fmt.Errorf("reading mirror package dir: %w", err)
		}
		for _, child := range children {
			if !child.IsDir() {
				continue
			}
			uidDir := filepath.Join(pkgDir, child.Name())
			files, err := os.ReadDir(uidDir)
			if err != nil {
				return fmt.Errorf("reading legacy uid dir: %w", err)
			}
			for _, f := range files {
				src := filepath.Join(uidDir, f.Name())
				dst := filepath.Join(pkgDir, f.Name())
				if err := os.Rename(src, dst); err != nil {
					return fmt.Errorf("flattening mirror file: %w", err)
				}
			}
			if err := os.Remove(uidDir); err != nil {
				return fmt.Errorf("removing legacy uid dir: %w", err)
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
