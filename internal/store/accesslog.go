// ABOUTME: Persisted audit trail of data-access decisions
// ABOUTME: Appends are best effort by contract; reads feed the admin CLI

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendAccess persists one audit entry. Callers treat failures as
// best-effort (log and continue); the decision itself already happened.
func (s *SQLiteStore) AppendAccess(ctx context.Context, entry AccessEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return s.retry.run(s.handle, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO access_log (id, package_name, uid, data_tag, mode, output, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.PackageName, entry.UID,
			entry.DataTag, entry.Mode, entry.Output, entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("appending access entry: %w", err)
		}
		return nil
	})
}

// RecentAccess returns up to limit entries, newest first.
func (s *SQLiteStore) RecentAccess(ctx context.Context, limit int) ([]AccessEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []AccessEntry
	err := s.retry.run(s.handle, func(db *sql.DB) error {
		entries = nil
		rows, err := db.QueryContext(ctx,
			`SELECT id, package_name, uid, data_tag, mode, output, created_at
			 FROM access_log ORDER BY created_at DESC, id LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("querying access log: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var e AccessEntry
			if err := rows.Scan(&e.ID, &e.PackageName, &e.UID,
				&e.DataTag, &e.Mode, &e.Output, &e.CreatedAt); err != nil {
				return fmt.Errorf("scanning access entry: %w", err)
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
