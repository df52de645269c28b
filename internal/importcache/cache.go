// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package importcache implements the Import Cache: a bidirectional index
// of file -> imports and path -> importers, invalidated by mtime, with
// optional disk persistence and fsnotify-driven invalidation (spec §4.4).
//
// # Design Principles
//
// The cache is a performance optimisation over re-parsing every file on
// every reference-update request, never a source of truth: a stale or
// missing entry is always safe to rebuild from the file on disk.
//
// # Thread Safety
//
// Cache is safe for concurrent use.
package importcache

import (
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// entry is the forward-direction record for one file.
type entry struct {
	Imports []string
	Mtime   time.Time
}

// Cache is the two-level bidirectional import index.
type Cache struct {
	mu sync.RWMutex

	forward map[string]entry           // path -> its imports + scan mtime
	reverse map[string]map[string]bool // imported path -> set of importer paths
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		forward: make(map[string]entry),
		reverse: make(map[string]map[string]bool),
	}
}

// SetImports replaces the entry for file atomically, updating the reverse
// index symmetrically: every path previously imported by file but no
// longer present loses file from its importer set, and every newly
// imported path gains it (spec §4.4, bug-regression invariant: the full
// import set must be stored, never a partial one).
func (c *Cache) SetImports(file string, imports []string, mtime time.Time) {
	file = filepath.Clean(file)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.forward[file]; ok {
		for _, imported := range old.Imports {
			c.removeImporterLocked(filepath.Clean(imported), file)
		}
	}

	cleaned := make([]string, len(imports))
	for i, imp := range imports {
		cleaned[i] = filepath.Clean(imp)
	}

	c.forward[file] = entry{Imports: cleaned, Mtime: mtime}
	for _, imported := range cleaned {
		set, ok := c.reverse[imported]
		if !ok {
			set = make(map[string]bool)
			c.reverse[imported] = set
		}
		set[file] = true
	}
}

// removeImporterLocked removes importer from imported's reverse set,
// pruning the set entirely once empty. Caller must hold c.mu.
func (c *Cache) removeImporterLocked(imported, importer string) {
	set, ok := c.reverse[imported]
	if !ok {
		return
	}
	delete(set, importer)
	if len(set) == 0 {
		delete(c.reverse, imported)
	}
}

// GetImports returns the cached import list for file and whether an entry
// exists at all (regardless of staleness — callers check IsStale
// separately, since "not present" and "present but stale" call for
// different handling upstream).
func (c *Cache) GetImports(file string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.forward[filepath.Clean(file)]
	if !ok {
		return nil, false
	}
	out := make([]string, len(e.Imports))
	copy(out, e.Imports)
	return out, true
}

// IsStale reports whether file's current mtime differs from the mtime
// recorded at scan time. A file with no entry is considered stale (it
// has never been scanned).
func (c *Cache) IsStale(file string, currentMtime time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.forward[filepath.Clean(file)]
	if !ok {
		return true
	}
	return !e.Mtime.Equal(currentMtime)
}

// GetImporters returns every path known to import target, as a fresh
// slice copied from the importer set (linear in the number of importers).
func (c *Cache) GetImporters(target string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set, ok := c.reverse[filepath.Clean(target)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for importer := range set {
		out = append(out, importer)
	}
	return out
}

// GetImportersForDirectory returns the union of importers of any entry
// whose path falls under dir.
func (c *Cache) GetImportersForDirectory(dir string) []string {
	dir = filepath.Clean(dir)
	prefix := dir + string(filepath.Separator)

	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	for imported, importers := range c.reverse {
		if imported != dir && !strings.HasPrefix(imported, prefix) {
			continue
		}
		for importer := range importers {
			seen[importer] = true
		}
	}

	out := make([]string, 0, len(seen))
	for importer := range seen {
		out = append(out, importer)
	}
	return out
}

// Remove drops file's forward entry and prunes it from every reverse set
// it appears in. Used when a file is deleted.
func (c *Cache) Remove(file string) {
	file = filepath.Clean(file)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.forward[file]; ok {
		for _, imported := range old.Imports {
			c.removeImporterLocked(filepath.Clean(imported), file)
		}
		delete(c.forward, file)
	}
	delete(c.reverse, file)
}

// Len returns the number of files with a forward entry.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.forward)
}

// Populated reports whether the cache has at least one entry — the
// Reference Updater (internal/refupdate) uses this to decide between its
// cache-first method and a full project traversal (spec §4.6).
func (c *Cache) Populated() bool {
	return c.Len() > 0
}
