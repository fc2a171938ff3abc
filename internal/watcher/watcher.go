// ABOUTME: fsnotify watcher guarding the mirror tree against tampering
// ABOUTME: Out-of-band edits are flagged, counted, and optionally repaired

package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/pdguard/pdguard/internal/metrics"
	"github.com/pdguard/pdguard/internal/settings"
	"github.com/pdguard/pdguard/internal/store"
)

// SettingsSource is the slice of the store the watcher needs: reading the
// authoritative record and re-saving it, which rewrites the mirror files.
type SettingsSource interface {
	GetSettings(ctx context.Context, packageName string) (*settings.Record, error)
	SaveSettings(ctx context.Context, rec *settings.Record) error
}

// Watcher observes the mirror tree for modifications that did not come
// through the store. fsnotify does not recurse, so each package directory
// gets its own watch, armed when the directory appears.
type Watcher struct {
	root   string
	src    SettingsSource
	logger *slog.Logger

	// Repair controls whether drift is corrected by re-saving the record
	// (which rewrites the mirror) or only flagged.
	Repair bool

	fw   *fsnotify.Watcher
	wg   sync.WaitGroup
	stop context.CancelFunc
}

// New creates a watcher over the mirror root. Call Start to begin.
func New(root string, src SettingsSource, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		root:   root,
		src:    src,
		logger: logger.With("component", "watcher"),
		Repair: true,
	}
}

// Start arms watches on the root and every existing package directory,
// sweeps once for pre-existing drift, and begins the event loop.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w.fw = fw

	if err := fw.Add(w.root); err != nil {
		fw.Close()
		return fmt.Errorf("watching mirror root: %w", err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		fw.Close()
		return fmt.Errorf("reading mirror root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(w.root, e.Name())
		if err := fw.Add(dir); err != nil {
			w.logger.Warn("arming package watch failed", "dir", dir, "error", err)
			continue
		}
		w.sweep(ctx, e.Name())
	}

	ctx, cancel := context.WithCancel(ctx)
	w.stop = cancel
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Close stops the event loop and releases the watches.
func (w *Watcher) Close() error {
	if w.stop != nil {
		w.stop()
	}
	var err error
	if w.fw != nil {
		err = w.fw.Close()
	}
	w.wg.Wait()
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(rel, string(filepath.Separator))

	switch len(parts) {
	case 1:
		// a package directory appeared or vanished under the root
		if event.Op.Has(fsnotify.Create) {
			info, err := os.Stat(event.Name)
			if err != nil || !info.IsDir() {
				return
			}
			if err := w.fw.Add(event.Name); err != nil {
				w.logger.Warn("arming package watch failed",
					"dir", event.Name, "error", err)
				return
			}
			w.sweep(ctx, parts[0])
		}
	case 2:
		// a mirror file changed inside a package directory
		if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) ||
			event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
			w.check(ctx, parts[0], parts[1])
		}
	}
}

// sweep verifies every mirror file of one package.
func (w *Watcher) sweep(ctx context.Context, pkg string) {
	w.check(ctx, pkg, store.MirrorSystemLogs)
	w.check(ctx, pkg, store.MirrorIPTableProtect)
}

// check compares one mirror file against the authoritative record and
// flags (or repairs) drift.
func (w *Watcher) check(ctx context.Context, pkg, name string) {
	rec, err := w.src.GetSettings(ctx, pkg)
	if err != nil {
		w.logger.Warn("reading record for drift check failed",
			"package", pkg, "error", err)
		return
	}
	if rec == nil {
		// no record: the directory is an orphan, purge handles it
		return
	}
	want, ok := store.MirrorValues(rec)[name]
	if !ok {
		return
	}

	data, err := os.ReadFile(filepath.Join(w.root, pkg, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("reading mirror file failed",
			"package", pkg, "file", name, "error", err)
		return
	}
	got := string(data)
	if got == want {
		return
	}

	metrics.MirrorDrift.Inc()
	w.logger.Warn("mirror file modified out of band",
		"package", pkg, "file", name, "want", want, "got", got)

	if !w.Repair {
		return
	}
	if err := w.src.SaveSettings(ctx, rec); err != nil {
		w.logger.Error("repairing mirror failed", "package", pkg, "error", err)
	}
}
