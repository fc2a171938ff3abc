// ABOUTME: Tests for schema version detection, the backup-guarded upgrade,
// ABOUTME: and legacy mirror layout flattening

package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

// makeLegacy rewinds a freshly created database to the pre-flag layout:
// drops the map and allowed_contacts tables and plants the one-row version
// table the old schema carried.
func makeLegacy(t *testing.T, dbPath string) {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening raw db: %v", err)
	}
	defer db.Close()
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS map`,
		`DROP TABLE IF EXISTS allowed_contacts`,
		`CREATE TABLE version (_id INTEGER PRIMARY KEY, version INTEGER)`,
		`INSERT INTO version (version) VALUES (1)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("rewinding schema: %v", err)
		}
	}
}

func TestMigrateUpgradesLegacyDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "privacy.db")
	mirror := filepath.Join(dir, "mirror")

	s, err := NewSQLiteStore(dbPath, mirror, nil)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	if err := s.SaveSettings(context.Background(), testRecord("com.example.old")); err != nil {
		t.Fatalf("seeding record: %v", err)
	}
	s.Close()
	makeLegacy(t, dbPath)

	// legacy mirror layout: <mirror>/<pkg>/<uid>/<file>
	uidDir := filepath.Join(mirror, "com.example.old", "10042")
	if err := os.MkdirAll(uidDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(uidDir, MirrorSystemLogs), []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}

	s2, err := NewSQLiteStore(dbPath, mirror, nil)
	if err != nil {
		t.Fatalf("reopening legacy db: %v", err)
	}
	defer s2.Close()
	ctx := context.Background()

	// version table replaced by flags
	v, err := s2.GetValue(ctx, SettingDBVersion)
	if err != nil || v != "4" {
		t.Errorf("db version after upgrade = %q (err %v)", v, err)
	}
	for _, name := range []string{SettingEnabled, SettingNotificationsEnabled} {
		v, err := s2.GetValue(ctx, name)
		if err != nil || v != ValueTrue {
			t.Errorf("flag %s = %q (err %v)", name, v, err)
		}
	}

	// settings rows survive the upgrade
	rec, err := s2.GetSettings(ctx, "com.example.old")
	if err != nil || rec == nil {
		t.Fatalf("record lost in upgrade (err %v)", err)
	}

	// backup file exists
	if _, err := os.Stat(dbPath + ".bak"); err != nil {
		t.Errorf("no backup file after upgrade: %v", err)
	}

	// mirror flattened to <mirror>/<pkg>/<file>
	if _, err := os.Stat(filepath.Join(mirror, "com.example.old", MirrorSystemLogs)); err != nil {
		t.Errorf("mirror file not flattened: %v", err)
	}
	if _, err := os.Stat(uidDir); !os.IsNotExist(err) {
		t.Errorf("legacy uid dir survived: %v", err)
	}
}

func TestDetectVersionFresh(t *testing.T) {
	dir := t.TempDir()
	db, err := sql.Open("sqlite", filepath.Join(dir, "empty.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	_, fresh, err := detectVersion(db)
	if err != nil {
		t.Fatalf("detecting: %v", err)
	}
	if !fresh {
		t.Error("empty file not detected as fresh")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "privacy.db")
	mirror := filepath.Join(dir, "mirror")

	s, err := NewSQLiteStore(dbPath, mirror, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// reopening a current-version database must not create a backup
	s2, err := NewSQLiteStore(dbPath, mirror, nil)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s2.Close()
	if _, err := os.Stat(dbPath + ".bak"); !os.IsNotExist(err) {
		t.Errorf("reopen of current version produced a backup: %v", err)
	}
}
