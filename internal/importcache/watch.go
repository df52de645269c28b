// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package importcache

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// statIsDir reports whether path currently exists and is a directory.
func statIsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// defaultIgnorePatterns mirrors the defaults a project-wide file watcher
// needs regardless of language: VCS metadata and common dependency/build
// directories that never contain meaningful import graph changes.
var defaultIgnorePatterns = []string{".git", "node_modules", "target", "dist", "build", "vendor", "__pycache__"}

// Invalidator watches a project root and drops stale Cache entries as
// files change, debouncing bursts of events (editors routinely emit
// several write events per keystroke-triggered save).
//
// # Thread Safety
//
// Safe for concurrent use. The cache is only ever touched from the
// debounce goroutine after Start.
type Invalidator struct {
	root     string
	cache    *Cache
	watcher  *fsnotify.Watcher
	debounce time.Duration
	ignore   []string

	pending  chan string
	done     chan struct{}
	stopOnce sync.Once
}

// InvalidatorOption configures an Invalidator at construction.
type InvalidatorOption func(*Invalidator)

// WithDebounce overrides the default 100ms debounce window.
func WithDebounce(d time.Duration) InvalidatorOption {
	return func(inv *Invalidator) { inv.debounce = d }
}

// WithIgnorePatterns replaces the default ignore pattern list.
func WithIgnorePatterns(patterns []string) InvalidatorOption {
	return func(inv *Invalidator) { inv.ignore = patterns }
}

// NewInvalidator creates an Invalidator over cache rooted at root. Call
// Start to begin watching.
func NewInvalidator(root string, cache *Cache, opts ...InvalidatorOption) (*Invalidator, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	inv := &Invalidator{
		root:     root,
		cache:    cache,
		watcher:  watcher,
		debounce: 100 * time.Millisecond,
		ignore:   defaultIgnorePatterns,
		pending:  make(chan string, 1000),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv, nil
}

// Start recursively watches root and invalidates cache entries as changes
// are observed, until ctx is cancelled or Stop is called.
func (inv *Invalidator) Start(ctx context.Context) error {
	if err := inv.addRecursive(inv.root); err != nil {
		return err
	}
	go inv.processEvents(ctx)
	go inv.debounceLoop(ctx)
	return nil
}

// Stop releases the underlying fsnotify watcher.
func (inv *Invalidator) Stop() {
	inv.stopOnce.Do(func() {
		close(inv.done)
		inv.watcher.Close()
	})
}

func (inv *Invalidator) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if inv.shouldIgnore(path) {
			return filepath.SkipDir
		}
		return inv.watcher.Add(path)
	})
}

func (inv *Invalidator) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range inv.ignore {
		if base == pattern || strings.Contains(path, string(filepath.Separator)+pattern+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (inv *Invalidator) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-inv.done:
			return
		case event, ok := <-inv.watcher.Events:
			if !ok {
				return
			}
			if inv.shouldIgnore(event.Name) {
				continue
			}

			select {
			case inv.pending <- event.Name:
			default:
			}

			if event.Has(fsnotify.Create) {
				if st, err := statIsDir(event.Name); err == nil && st {
					inv.watcher.Add(event.Name)
				}
			}

		case err, ok := <-inv.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("import cache watcher error", "error", err)
		}
	}
}

func (inv *Invalidator) debounceLoop(ctx context.Context) {
	pendingSet := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		for path := range pendingSet {
			inv.cache.Remove(path)
		}
		pendingSet = make(map[string]bool)
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-inv.done:
			flush()
			return
		case path := <-inv.pending:
			pendingSet[path] = true
			if timer == nil {
				timer = time.NewTimer(inv.debounce)
				timerC = timer.C
			} else {
				timer.Reset(inv.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}
