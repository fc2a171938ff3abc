// ABOUTME: Package doc for the persistence engine
// ABOUTME: SQLite rows plus a world-readable mirror tree, kept in lockstep

// Package store persists privacy settings in SQLite and mirrors a small
// subset of them as plaintext files for consumers that run before the
// database is available. Saves are transactional across the row, its
// allowed-contacts child rows, and the mirror files. The database handle
// is refcounted and operations retry a bounded number of times when the
// handle is closed underneath them.
package store
