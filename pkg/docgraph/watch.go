package docgraph

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// filePath extracts the local filesystem path from a `file:` URI or bare
// path, matching DefaultFetcher's own scheme handling.
func filePath(uri string) (string, bool) {
	switch {
	case strings.HasPrefix(uri, "file://"):
		return strings.TrimPrefix(uri, "file://"), true
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return "", false
	default:
		return uri, true
	}
}

// Watcher keeps an Analyzer's `file:`-backed documents in sync with their
// on-disk source, removing the need for an external LSP client to push
// every edit: a document Watch'd once re-triggers NotifyChange on every
// subsequent save.
type Watcher struct {
	analyzer *Analyzer
	logger   *slog.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	byPath  map[string]string // watched directory -> the first URI that caused it to be added to fsw
	watched map[string]string // absolute file path -> the URI it was added under

	// OnChange, if set, is called after a successful NotifyChange for uri
	// with the document's source immediately before and after the change.
	OnChange func(uri string, oldSource, newSource []byte)
}

// NewWatcher creates a Watcher over analyzer. Call Close when done.
func NewWatcher(analyzer *Analyzer, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		analyzer: analyzer,
		logger:   logger,
		fsw:      fsw,
		byPath:   make(map[string]string),
		watched:  make(map[string]string),
	}, nil
}

// Watch adds uri's backing file to the watch set. Only `file:`/bare-path
// URIs are watchable; http(s) URIs are silently ignored since there is no
// filesystem event to observe.
func (w *Watcher) Watch(uri string) error {
	path, ok := filePath(uri)
	if !ok {
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, already := w.watched[abs]; already {
		return nil
	}

	dir := filepath.Dir(abs)
	if _, alreadyWatchingDir := w.byPath[dir]; !alreadyWatchingDir {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}

		w.byPath[dir] = uri
	}

	w.watched[abs] = uri

	return nil
}

// Run consumes filesystem events until ctx is done or Close is called,
// calling NotifyChange for every write to a watched file.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			w.handleEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	uri, watching := w.watched[abs]
	w.mu.Unlock()

	if !watching {
		return
	}

	source, err := os.ReadFile(abs)
	if err != nil {
		w.logger.Warn("watch read failed", "path", abs, "error", err)
		return
	}

	var oldSource []byte
	if doc, ok := w.analyzer.Document(uri); ok {
		oldSource = doc.Source
	}

	if err := w.analyzer.NotifyChange(ctx, uri, source); err != nil {
		w.logger.Warn("notify change failed", "uri", uri, "error", err)
		return
	}

	if w.OnChange != nil {
		w.OnChange(uri, oldSource, source)
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
