// ABOUTME: Tests for purge reconciliation against the installed-package set
// ABOUTME: Covers uninstalled cleanup, duplicate collapse, and mirror pruning

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestPurgeRemovesUninstalled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, pkg := range []string{"com.keep", "com.gone"} {
		if err := s.SaveSettings(ctx, testRecord(pkg)); err != nil {
			t.Fatalf("saving %s: %v", pkg, err)
		}
	}

	if err := s.PurgeSettings(ctx, []string{"com.keep"}); err != nil {
		t.Fatalf("purging: %v", err)
	}

	kept, _ := s.GetSettings(ctx, "com.keep")
	if kept == nil {
		t.Error("installed package purged")
	}
	gone, _ := s.GetSettings(ctx, "com.gone")
	if gone != nil {
		t.Error("uninstalled package survived purge")
	}
	if _, err := os.Stat(filepath.Join(s.mirrorDir, "com.gone")); !os.IsNotExist(err) {
		t.Errorf("mirror dir for purged package survived: %v", err)
	}
}

func TestPurgeCollapsesDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("com.dup")
	rec.UID = 500
	if err := s.SaveSettings(ctx, rec); err != nil {
		t.Fatalf("saving: %v", err)
	}
	insertDuplicateRow(t, s, "com.dup")
	insertDuplicateRow(t, s, "com.dup")

	if err := s.PurgeSettings(ctx, []string{"com.dup"}); err != nil {
		t.Fatalf("purging: %v", err)
	}

	all, err := s.GetSettingsAll(ctx)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 row after collapse, got %d", len(all))
	}
	// first row's content is the canonical copy
	if all[0].UID != 500 {
		t.Errorf("canonical copy lost: uid %d", all[0].UID)
	}

	// save works again after the repair
	if err := s.SaveSettings(ctx, testRecord("com.dup")); err != nil {
		t.Errorf("save after collapse: %v", err)
	}
}

func TestPurgePrunesOrphanedMirrorDirs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	orphan := filepath.Join(s.mirrorDir, "com.orphan")
	if err := os.MkdirAll(orphan, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(orphan, MirrorSystemLogs), []byte("0"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.PurgeSettings(ctx, []string{"com.orphan"}); err != nil {
		t.Fatalf("purging: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Errorf("orphaned mirror dir survived: %v", err)
	}
}

func TestPurgeEmptyStoreIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.PurgeSettings(context.Background(), nil); err != nil {
		t.Fatalf("purging empty store: %v", err)
	}
}
