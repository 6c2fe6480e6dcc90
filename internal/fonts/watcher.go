package fonts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/sjc5/kit/pkg/typed"
	"github.com/sjc5/tessera/internal/common"
	"github.com/sjc5/tessera/internal/util"
)

const debounceInterval = 30 * time.Millisecond

// Refresher is implemented by *Builder.
type Refresher interface {
	Refresh(ctx context.Context, src common.StyleSource)
}

type WatchOptions struct {
	// Dirs are watched non-recursively.
	Dirs []string

	// Patterns are doublestar globs relative to each dir, e.g. "*.css" or
	// "theme-*.css". Defaults to "*.css".
	Patterns []string

	Logger common.Logger
}

/*
Watcher re-reads the theme's stylesheet files whenever one of them changes
and hands their concatenated contents to a Refresher as inline styles. Bursts
of events are batched.
*/
type Watcher struct {
	refresher    Refresher
	logger       common.Logger
	dirs         []string
	patterns     []string
	watcher      *fsnotify.Watcher
	matchResults typed.SyncMap[string, bool]
	done         chan struct{}
	closeOnce    sync.Once
}

// Watch starts watching and returns once every dir is registered.
func Watch(ctx context.Context, refresher Refresher, opts WatchOptions) (*Watcher, error) {
	if len(opts.Dirs) == 0 {
		return nil, fmt.Errorf("at least one directory to watch is required")
	}
	if len(opts.Patterns) == 0 {
		opts.Patterns = []string{"*.css"}
	}
	if opts.Logger == nil {
		opts.Logger = util.NopLogger{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		refresher: refresher,
		logger:    opts.Logger,
		watcher:   fsw,
		done:      make(chan struct{}),
	}
	for _, dir := range opts.Dirs {
		cleanDir := filepath.Clean(dir)
		if err := fsw.Add(cleanDir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to add directory %s to watcher: %w", cleanDir, err)
		}
		w.dirs = append(w.dirs, cleanDir)
		for _, p := range opts.Patterns {
			w.patterns = append(w.patterns, filepath.ToSlash(filepath.Join(cleanDir, p)))
		}
	}

	go w.handleEmissions(ctx)
	return w, nil
}

func (w *Watcher) handleEmissions(ctx context.Context) {
	debouncer := newDebouncer(debounceInterval, func(events []fsnotify.Event) {
		w.processBatchedEvents(ctx, events)
	})
	defer debouncer.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.getIsRelevant(evt) {
				debouncer.addEvent(evt)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) getIsRelevant(evt fsnotify.Event) bool {
	isSolelyCHMOD := !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Remove) && !evt.Has(fsnotify.Rename)
	if isSolelyCHMOD {
		return false
	}
	return w.getIsMatch(evt.Name)
}

func (w *Watcher) getIsMatch(path string) bool {
	normalizedPath := filepath.ToSlash(path)
	if hit, isCached := w.matchResults.Load(normalizedPath); isCached {
		return hit
	}

	matches := false
	for _, pattern := range w.patterns {
		isMatch, err := doublestar.Match(pattern, normalizedPath)
		if err != nil {
			w.logger.Errorf("failed to match file: %v", err)
			continue
		}
		if isMatch {
			matches = true
			break
		}
	}

	actualValue, _ := w.matchResults.LoadOrStore(normalizedPath, matches)
	return actualValue
}

func (w *Watcher) processBatchedEvents(ctx context.Context, events []fsnotify.Event) {
	w.logger.Debugf("%d theme style change(s) detected", len(events))
	cssText, err := w.readStyles()
	if err != nil {
		w.logger.Errorf("error reading theme styles: %v", err)
		return
	}
	if strings.TrimSpace(cssText) == "" {
		return
	}
	w.refresher.Refresh(ctx, common.StyleSource{Inline: cssText})
}

// readStyles concatenates every matching file, in path order.
func (w *Watcher) readStyles() (string, error) {
	var paths []string
	for _, dir := range w.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", err
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if !entry.IsDir() && w.getIsMatch(path) {
				paths = append(paths, path)
			}
		}
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		sb.Write(content)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

type debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
	events   []fsnotify.Event
	fn       func([]fsnotify.Event)
}

func newDebouncer(interval time.Duration, fn func([]fsnotify.Event)) *debouncer {
	return &debouncer{interval: interval, fn: fn}
}

func (d *debouncer) addEvent(evt fsnotify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	events := d.events
	d.events = nil
	d.mu.Unlock()
	if len(events) > 0 {
		d.fn(events)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
