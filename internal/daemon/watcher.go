package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blogsmith/blogsmith/internal/logfields"
)

// ContentWatcher monitors the content, static, and layout directories and
// fires a callback after a debounce window so editor save bursts collapse
// into one rebuild.
type ContentWatcher struct {
	dirs     []string
	watcher  *fsnotify.Watcher
	onChange func()
	debounce time.Duration

	mu       sync.Mutex
	stopChan chan struct{}
	fireChan chan struct{}
}

// NewContentWatcher creates a watcher over the given directories. Missing
// directories are skipped; at least one must exist.
func NewContentWatcher(dirs []string, debounce time.Duration, onChange func()) (*ContentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	cw := &ContentWatcher{
		dirs:     dirs,
		watcher:  watcher,
		onChange: onChange,
		debounce: debounce,
		stopChan: make(chan struct{}),
		fireChan: make(chan struct{}, 1),
	}

	watched := 0
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if _, serr := os.Stat(dir); serr != nil {
			continue
		}
		if aerr := cw.addRecursive(dir); aerr != nil {
			watcher.Close()
			return nil, aerr
		}
		watched++
	}
	if watched == 0 {
		watcher.Close()
		return nil, fmt.Errorf("no watchable directories among %v", dirs)
	}

	return cw, nil
}

// addRecursive watches dir and every subdirectory beneath it.
func (cw *ContentWatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		if werr := cw.watcher.Add(path); werr != nil {
			return fmt.Errorf("watch %s: %w", path, werr)
		}
		return nil
	})
}

// Start begins monitoring. It returns immediately; events are handled in
// background goroutines until Stop or context cancellation.
func (cw *ContentWatcher) Start(ctx context.Context) {
	slog.Info("starting content watcher",
		slog.Any("dirs", cw.dirs),
		slog.Duration("debounce", cw.debounce))
	go cw.watchLoop(ctx)
	go cw.fireLoop(ctx)
}

// Stop stops the watcher and releases its resources.
func (cw *ContentWatcher) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	select {
	case <-cw.stopChan:
		return
	default:
	}
	close(cw.stopChan)
	if err := cw.watcher.Close(); err != nil {
		slog.Error("error closing file watcher", logfields.Error(err))
	}
}

func (cw *ContentWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if !cw.relevant(event) {
				continue
			}
			// New subdirectories must be picked up for future events.
			if event.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if aerr := cw.addRecursive(event.Name); aerr != nil {
						slog.Warn("failed to watch new directory",
							logfields.Path(event.Name), logfields.Error(aerr))
					}
				}
			}
			slog.Debug("content change detected",
				logfields.Path(event.Name), slog.String("op", event.Op.String()))
			cw.queueFire()
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("content watcher error", logfields.Error(err))
		}
	}
}

// relevant filters noise: hidden files and editor temp artifacts.
func (cw *ContentWatcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".tmp") {
		return false
	}
	return true
}

// fireLoop handles debounced change notifications.
func (cw *ContentWatcher) fireLoop(ctx context.Context) {
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-cw.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-cw.fireChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(cw.debounce, cw.onChange)
		}
	}
}

func (cw *ContentWatcher) queueFire() {
	select {
	case cw.fireChan <- struct{}{}:
	default:
		// A fire is already pending.
	}
}
