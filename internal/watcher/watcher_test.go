// ABOUTME: Watcher tests tampering with mirror files and asserting repair
// ABOUTME: Uses a real store so re-saves rewrite the mirror tree

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdguard/pdguard/internal/settings"
	"github.com/pdguard/pdguard/internal/store"
)

func newWatcherEnv(t *testing.T) (*store.SQLiteStore, string) {
	t.Helper()
	dir := t.TempDir()
	mirror := filepath.Join(dir, "mirror")
	st, err := store.NewSQLiteStore(filepath.Join(dir, "privacy.db"), mirror, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, mirror
}

func saveRecord(t *testing.T, st *store.SQLiteStore, pkg string) {
	t.Helper()
	rec := &settings.Record{
		PackageName:    pkg,
		UID:            10010,
		SystemLogsMode: settings.ModeEmpty,
	}
	require.NoError(t, st.SaveSettings(context.Background(), rec))
}

func mirrorFile(mirror, pkg string) string {
	return filepath.Join(mirror, pkg, store.MirrorSystemLogs)
}

func TestTamperedMirrorFileIsRepaired(t *testing.T) {
	st, mirror := newWatcherEnv(t)
	saveRecord(t, st, "com.example.app")

	w := New(mirror, st, nil)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { w.Close() })

	path := mirrorFile(mirror, "com.example.app")
	require.NoError(t, os.WriteFile(path, []byte("0"), 0o644))

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "1"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRemovedMirrorFileIsRestored(t *testing.T) {
	st, mirror := newWatcherEnv(t)
	saveRecord(t, st, "com.example.app")

	w := New(mirror, st, nil)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { w.Close() })

	path := mirrorFile(mirror, "com.example.app")
	require.NoError(t, os.Remove(path))

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "1"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestDriftOnlyFlaggedWhenRepairDisabled(t *testing.T) {
	st, mirror := newWatcherEnv(t)
	saveRecord(t, st, "com.example.app")

	w := New(mirror, st, nil)
	w.Repair = false
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { w.Close() })

	path := mirrorFile(mirror, "com.example.app")
	require.NoError(t, os.WriteFile(path, []byte("0"), 0o644))

	time.Sleep(300 * time.Millisecond)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0", string(data))
}

func TestNewPackageDirectoryIsArmed(t *testing.T) {
	st, mirror := newWatcherEnv(t)

	w := New(mirror, st, nil)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { w.Close() })

	// save after the watcher is running: the new directory must be armed
	saveRecord(t, st, "com.late.app")
	path := mirrorFile(mirror, "com.late.app")
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)

	// give the watcher a beat to arm the directory watch
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("2"), 0o644))

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "1"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestOrphanDirectoryIsLeftAlone(t *testing.T) {
	st, mirror := newWatcherEnv(t)

	orphan := filepath.Join(mirror, "com.orphan")
	require.NoError(t, os.MkdirAll(orphan, 0o755))
	path := filepath.Join(orphan, store.MirrorSystemLogs)
	require.NoError(t, os.WriteFile(path, []byte("9"), 0o644))

	w := New(mirror, st, nil)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { w.Close() })

	require.NoError(t, os.WriteFile(path, []byte("8"), 0o644))
	time.Sleep(300 * time.Millisecond)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "8", string(data))
}
