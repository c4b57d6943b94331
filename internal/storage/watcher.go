package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Invalidator drops cached definitions. FileStore implements it.
type Invalidator interface {
	Invalidate(folder, templateID string)
	InvalidateAll()
}

// Watcher invalidates cached definitions when files under the widgets directory change.
type Watcher struct {
	root    string
	store   Invalidator
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher watches root and each widget folder directly beneath it.
func NewWatcher(root string, store Invalidator, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{root: root, store: store, logger: logger, watcher: fw}

	if err := fw.Add(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to read widgets directory %s: %w", root, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := w.add(filepath.Join(root, entry.Name())); err != nil {
				fw.Close()
				return nil, err
			}
		}
	}
	return w, nil
}

func (w *Watcher) add(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Debug("Watching widget folder", "path", dir)
	return nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Widget watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	if rel == "." {
		// The widgets directory itself was removed or renamed.
		w.logger.Warn("Widgets directory changed", "path", w.root, "op", event.Op.String())
		w.store.InvalidateAll()
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")

	switch len(parts) {
	case 1:
		// A widget folder was created, removed or renamed.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.add(event.Name); err != nil {
					w.logger.Error("Failed to watch new widget folder", "path", event.Name, "error", err)
				}
			}
		}
		w.store.Invalidate(parts[0], "")
	case 2:
		ext := filepath.Ext(parts[1])
		if !isDefinitionExt(ext) {
			return
		}
		templateID := strings.TrimSuffix(parts[1], ext)
		w.logger.Info("Widget definition changed", "folder", parts[0], "templateId", templateID, "op", event.Op.String())
		w.store.Invalidate(parts[0], templateID)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
