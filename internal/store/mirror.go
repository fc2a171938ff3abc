// ABOUTME: Plaintext mirror tree under <mirror>/<package>/<setting>
// ABOUTME: Early-boot consumers read these files before the database is up

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/pdguard/pdguard/internal/settings"
)

// Mirror file names. Only these two settings are mirrored; they are needed
// before the database is available.
const (
	MirrorSystemLogs     = "systemLogsSetting"
	MirrorIPTableProtect = "ipTableProtectSetting"
)

type mirrorEntry struct {
	name  string
	value string
}

// MirrorValues reports the mirror file contents a record implies, keyed by
// file name. The watcher compares these against what is on disk.
func MirrorValues(rec *settings.Record) map[string]string {
	return map[string]string{
		MirrorSystemLogs:     strconv.Itoa(int(rec.SystemLogsMode)),
		MirrorIPTableProtect: strconv.Itoa(int(rec.IPTableProtectMode)),
	}
}

// mirroredSettings lists the mirror files a record produces.
func mirroredSettings(rec *settings.Record) []mirrorEntry {
	return []mirrorEntry{
		{MirrorSystemLogs, strconv.Itoa(int(rec.SystemLogsMode))},
		{MirrorIPTableProtect, strconv.Itoa(int(rec.IPTableProtectMode))},
	}
}

// writeMirrorSetting runs the full mirror write sequence for one file:
// ensure the package directory, open world-readable permissions, write the
// scalar, flush. Every step is idempotent; any failure aborts the caller's
// enclosing save transaction.
func (s *SQLiteStore) writeMirrorSetting(packageName, name, value string) error {
	dir := filepath.Join(s.mirrorDir, packageName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating mirror directory: %w", err)
	}
	if err := os.Chmod(dir, 0o755); err != nil {
		return fmt.Errorf("setting mirror directory mode: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening mirror file: %w", err)
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return fmt.Errorf("setting mirror file mode: %w", err)
	}
	if _, err := fmt.Fprint(f, value); err != nil {
		f.Close()
		return fmt.Errorf("writing mirror value: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("flushing mirror file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing mirror file: %w", err)
	}
	return nil
}

// removeMirror deletes a package's mirror files and then the directory,
// which only goes away when nothing else is left in it. Best effort: mirror
// cleanup never fails a committed delete, it only logs.
func (s *SQLiteStore) removeMirror(packageName string) {
	dir := filepath.Join(s.mirrorDir, packageName)
	for _, name := range []string{MirrorSystemLogs, MirrorIPTableProtect} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("removing mirror file failed",
				"package", packageName, "file", name, "error", err)
		}
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) &&
		!errors.Is(err, syscall.ENOTEMPTY) {
		s.logger.Warn("removing mirror directory failed",
			"package", packageName, "error", err)
	}
}

// clearMirrorTree removes every package directory under the mirror root.
func (s *SQLiteStore) clearMirrorTree() {
	entries, err := os.ReadDir(s.mirrorDir)
	if err != nil {
		s.logger.Warn("reading mirror root failed", "error", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.mirrorDir, e.Name())); err != nil {
			s.logger.Warn("removing mirror directory failed",
				"package", e.Name(), "error", err)
		}
	}
}

// mirrorPackages lists package names that currently have mirror dirs.
func (s *SQLiteStore) mirrorPackages() ([]string, error) {
	entries, err := os.ReadDir(s.mirrorDir)
	if err != nil {
		return nil, fmt.Errorf("reading mirror root: %w", err)
	}
	var pkgs []string
	for _, e := range entries {
		if e.IsDir() {
			pkgs = append(pkgs, e.Name())
		}
	}
	return pkgs, nil
}
