// ABOUTME: Tests for the refcounted handle lifecycle
// ABOUTME: Covers deferred close, reopen on demand, and final shutdown

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestHandleReopensAfterRequestClose(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveSettings(ctx, testRecord("com.handle")); err != nil {
		t.Fatalf("saving: %v", err)
	}

	// close the idle handle, next operation must reopen transparently
	s.handle.requestClose()
	got, err := s.GetSettings(ctx, "com.handle")
	if err != nil {
		t.Fatalf("get after close: %v", err)
	}
	if got == nil {
		t.Fatal("record lost across handle reopen")
	}
}

func TestHandleClosesOnlyWhenDrained(t *testing.T) {
	h := newHandleRef(filepath.Join(t.TempDir(), "drain.db"))

	db1, release1, err := h.acquire()
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	_, release2, err := h.acquire()
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	h.requestClose()

	// still usable while a holder remains
	release2()
	if err := db1.Ping(); err != nil {
		t.Errorf("handle closed with a live holder: %v", err)
	}
	release1()

	// last release tore it down; a new acquire reopens
	db2, release3, err := h.acquire()
	if err != nil {
		t.Fatalf("acquire after drain: %v", err)
	}
	defer release3()
	if err := db2.Ping(); err != nil {
		t.Errorf("reopened handle unusable: %v", err)
	}
}

func TestHandleShutdownRefusesAcquire(t *testing.T) {
	h := newHandleRef(filepath.Join(t.TempDir(), "shut.db"))
	_, release, err := h.acquire()
	if err != nil {
		t.Fatal(err)
	}
	release()

	if err := h.close(); err != nil {
		t.Fatalf("closing: %v", err)
	}
	_, _, err = h.acquire()
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("acquire after shutdown: %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	h := newHandleRef(filepath.Join(t.TempDir(), "idem.db"))
	_, release, err := h.acquire()
	if err != nil {
		t.Fatal(err)
	}
	release()
	release() // second call must not double-decrement

	db, release2, err := h.acquire()
	if err != nil {
		t.Fatalf("acquire after double release: %v", err)
	}
	defer release2()
	if err := db.Ping(); err != nil {
		t.Errorf("handle broken after double release: %v", err)
	}
}
