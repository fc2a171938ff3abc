// ABOUTME: Authorized-application registry rows (key fingerprints and
// ABOUTME: signature digests per management package)

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuthorizeApp records a credential for a management application.
// Re-authorizing the same credential is a no-op.
func (s *SQLiteStore) AuthorizeApp(ctx context.Context, app AuthorizedApp) error {
	if app.PackageName == "" || app.Fingerprint == "" {
		return fmt.Errorf("registry row needs package and fingerprint: %w", ErrMalformedInput)
	}
	if app.Kind != KindKey && app.Kind != KindSignature {
		return fmt.Errorf("unknown credential kind %q: %w", app.Kind, ErrMalformedInput)
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	unlock := s.lockWrite()
	defer unlock()

	return s.retry.run(s.handle, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO authorized_apps
				(package_name, kind, fingerprint, created_at)
			 VALUES (?, ?, ?, ?)`,
			app.PackageName, app.Kind, app.Fingerprint, app.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting registry row: %w", err)
		}
		return nil
	})
}

// DeauthorizeApp removes every credential of one kind for a package.
func (s *SQLiteStore) DeauthorizeApp(ctx context.Context, packageName, kind string) error {
	unlock := s.lockWrite()
	defer unlock()

	return s.retry.run(s.handle, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`DELETE FROM authorized_apps WHERE package_name = ? AND kind = ?`,
			packageName, kind)
		if err != nil {
			return fmt.Errorf("deleting registry rows: %w", err)
		}
		return nil
	})
}

// IsAppAuthorized reports whether the exact credential is registered.
func (s *SQLiteStore) IsAppAuthorized(ctx context.Context, packageName, kind, fingerprint string) (bool, error) {
	var n int
	err := s.retry.run(s.handle, func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM authorized_apps
			 WHERE package_name = ? AND kind = ? AND fingerprint = ?`,
			packageName, kind, fingerprint).Scan(&n)
	})
	if err != nil {
		return false, fmt.Errorf("checking registry: %w", err)
	}
	return n > 0, nil
}

// ListAuthorizedApps returns the whole registry, oldest first.
func (s *SQLiteStore) ListAuthorizedApps(ctx context.Context) ([]AuthorizedApp, error) {
	var apps []AuthorizedApp
	err := s.retry.run(s.handle, func(db *sql.DB) error {
		apps = nil
		rows, err := db.QueryContext(ctx,
			`SELECT package_name, kind, fingerprint, created_at
			 FROM authorized_apps ORDER BY created_at, package_name`)
		if err != nil {
			return fmt.Errorf("listing registry: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var app AuthorizedApp
			if err := rows.Scan(&app.PackageName, &app.Kind,
				&app.Fingerprint, &app.CreatedAt); err != nil {
				return fmt.Errorf("scanning registry row: %w", err)
			}
			apps = append(apps, app)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return apps, nil
}
