package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"

	"github.com/lexandro/sandboxfs-mcp/ignore"
	"github.com/lexandro/sandboxfs-mcp/vpath"
)

// DefaultDebounce is the quiet period before a batch of events is applied.
const DefaultDebounce = 100 * time.Millisecond

// IgnoreChecker is used by the watcher to check if a path should be ignored.
type IgnoreChecker interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
	Reload()
}

// Invalidator drops cached state that covers a changed host path.
type Invalidator interface {
	InvalidatePath(absolutePath string) int
}

// Root is one watched mount directory.
type Root struct {
	Path   string
	Ignore IgnoreChecker
}

// Watcher watches every mount root recursively and invalidates cached
// indexes after a debounced batch of changes.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	roots       []Root
	invalidator Invalidator
	logger      *slog.Logger
}

// NewWatcher registers all non-ignored directories below each root.
func NewWatcher(roots []Root, invalidator Invalidator, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	w := &Watcher{
		fsWatcher:   fsWatcher,
		debouncer:   NewDebouncer(DefaultDebounce),
		roots:       roots,
		invalidator: invalidator,
		logger:      logger,
	}
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			fsWatcher.Close()
			return nil, err
		}
	}
	return w, nil
}

// addTree walks a directory tree concurrently and watches every directory
// that is not ignored. Symlinked directories are not followed.
func (w *Watcher) addTree(root Root) error {
	conf := fastwalk.Config{Follow: false}
	start := time.Now()
	err := fastwalk.Walk(&conf, root.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries that can't be read
		}
		if !d.IsDir() {
			return nil
		}
		if path != root.Path && root.Ignore.ShouldIgnoreDir(path) {
			return fastwalk.SkipDir
		}
		if watchErr := w.fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", watchErr)
		}
		return nil
	})
	w.logger.Debug("watching mount", "root", root.Path, "directories", len(w.fsWatcher.WatchList()), "elapsed", time.Since(start))
	return err
}

// Run processes file system events until ctx is cancelled or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case batch := <-w.debouncer.Output():
			w.apply(batch)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// handleEvent processes a single fsnotify event, converting it to a debounced event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	root, ok := w.rootFor(path)
	if !ok {
		return
	}

	// ignore files are hidden, so they are checked before the ignore rules
	if slices.Contains(ignore.IgnoreFileNames, filepath.Base(path)) {
		root.Ignore.Reload()
		w.debouncer.Add(path, opFor(event))
		return
	}

	if event.Has(fsnotify.Create) {
		info, err := os.Lstat(path)
		if err == nil && info.IsDir() {
			if root.Ignore.ShouldIgnoreDir(path) {
				return
			}
			if err := w.addTree(root.subtree(path)); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			w.debouncer.Add(path, OpCreate)
			return
		}
	}

	if root.Ignore.ShouldIgnore(path) {
		return
	}
	w.debouncer.Add(path, opFor(event))
}

func opFor(event fsnotify.Event) EventOp {
	switch {
	case event.Has(fsnotify.Create):
		return OpCreate
	case event.Has(fsnotify.Remove):
		return OpRemove
	case event.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpWrite
	}
}

// apply invalidates the cached indexes covering each changed path.
func (w *Watcher) apply(batch []DebouncedEvent) {
	dropped := 0
	for _, event := range batch {
		dropped += w.invalidator.InvalidatePath(event.Path)
	}
	w.logger.Debug("applied file changes", "events", len(batch), "invalidated", dropped)
}

// rootFor returns the innermost watched root containing path.
func (w *Watcher) rootFor(path string) (Root, bool) {
	var best Root
	found := false
	for _, root := range w.roots {
		if vpath.Within(root.Path, path) && (!found || len(root.Path) > len(best.Path)) {
			best, found = root, true
		}
	}
	return best, found
}

func (r Root) subtree(path string) Root {
	return Root{Path: path, Ignore: r.Ignore}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}
