// ABOUTME: Refcounted database handle with scoped acquire/release
// ABOUTME: Reopens on demand; closes only when the last holder releases

package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// handleRef owns the *sql.DB lifecycle. Every operation acquires the handle
// for its duration and releases it via the returned func; the connection is
// closed only when the refcount reaches zero after a close request, and a
// later acquire reopens it unless the store has been shut down.
type handleRef struct {
	path string

	mu       sync.Mutex
	db       *sql.DB
	refs     int
	closing  bool
	shutdown bool
}

func newHandleRef(path string) *handleRef {
	return &handleRef{path: path}
}

// acquire returns an open database and a release func. The release func is
// safe to call exactly once, typically via defer.
func (h *handleRef) acquire() (*sql.DB, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shutdown {
		return nil, nil, fmt.Errorf("acquiring database handle: %w", ErrStoreUnavailable)
	}
	if h.db == nil {
		db, err := openDatabase(h.path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		h.db = db
		h.closing = false
	}
	h.refs++
	db := h.db
	var once sync.Once
	release := func() {
		once.Do(func() { h.release() })
	}
	return db, release, nil
}

func (h *handleRef) release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.refs--
	if h.refs == 0 && (h.closing || h.shutdown) && h.db != nil {
		h.db.Close()
		h.db = nil
	}
}

// requestClose marks the handle for closing. The connection is torn down as
// soon as the refcount drains; in-flight holders are unaffected.
func (h *handleRef) requestClose() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closing = true
	if h.refs == 0 && h.db != nil {
		h.db.Close()
		h.db = nil
	}
}

// close shuts the handle down for good; further acquires fail.
func (h *handleRef) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.shutdown = true
	if h.refs == 0 && h.db != nil {
		err := h.db.Close()
		h.db = nil
		return err
	}
	return nil
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return db, nil
}
