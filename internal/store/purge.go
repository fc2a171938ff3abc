// ABOUTME: Purge reconciliation between the store, the mirror tree, and
// ABOUTME: the set of installed packages

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PurgeSettings reconciles persisted state against the installed-package
// set: records for uninstalled packages are deleted, duplicate rows for one
// package are collapsed to a single canonical copy (first row wins), and
// mirror directories with no backing row are pruned.
func (s *SQLiteStore) PurgeSettings(ctx context.Context, installed []string) error {
	installedSet := make(map[string]bool, len(installed))
	for _, pkg := range installed {
		installedSet[pkg] = true
	}

	var stored []string
	dupes := map[string]int{}
	err := s.retry.run(s.handle, func(db *sql.DB) error {
		stored = stored[:0]
		clear(dupes)
		rows, err := db.QueryContext(ctx,
			`SELECT package_name, COUNT(*) FROM settings GROUP BY package_name`)
		if err != nil {
			return fmt.Errorf("listing stored packages: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var pkg string
			var n int
			if err := rows.Scan(&pkg, &n); err != nil {
				return fmt.Errorf("scanning package row: %w", err)
			}
			stored = append(stored, pkg)
			if n > 1 {
				dupes[pkg] = n
			}
		}
		return rows.Err()
	})
	if err != nil {
		return err
	}

	for _, pkg := range stored {
		if !installedSet[pkg] {
			if _, err := s.DeleteSettings(ctx, pkg); err != nil {
				return fmt.Errorf("purging uninstalled package %s: %w", pkg, err)
			}
			s.logger.Info("purged settings for uninstalled package", "package", pkg)
			continue
		}
		if n, ok := dupes[pkg]; ok {
			if err := s.collapseDuplicates(ctx, pkg); err != nil {
				return fmt.Errorf("collapsing duplicates for %s: %w", pkg, err)
			}
			s.logger.Warn("collapsed duplicate settings rows",
				"package", pkg, "rows", n)
		}
	}

	// prune mirror dirs with no surviving row
	mirrored, err := s.mirrorPackages()
	if err != nil {
		s.logger.Warn("skipping mirror prune", "error", err)
		return nil
	}
	for _, pkg := range mirrored {
		rec, err := s.GetSettings(ctx, pkg)
		if err != nil {
			return err
		}
		if rec == nil {
			s.removeMirror(pkg)
			s.logger.Info("pruned orphaned mirror directory", "package", pkg)
		}
	}
	return nil
}

// collapseDuplicates re-reads the package (first row wins), deletes every
// row, and re-saves the canonical copy.
func (s *SQLiteStore) collapseDuplicates(ctx context.Context, packageName string) error {
	canonical, err := s.GetSettings(ctx, packageName)
	if err != nil {
		return err
	}
	if canonical == nil {
		return nil
	}
	if _, err := s.DeleteSettings(ctx, packageName); err != nil {
		return err
	}
	canonical.ID = nil
	return s.SaveSettings(ctx, canonical)
}
