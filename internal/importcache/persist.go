// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package importcache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// cacheVersion is bumped whenever the on-disk schema changes incompatibly.
// A file written by a different version is discarded, never partially
// trusted.
const cacheVersion = 1

// snapshotEntry is the serialisable form of one forward entry.
type snapshotEntry struct {
	Imports []string  `json:"imports"`
	Mtime   time.Time `json:"mtime"`
}

type snapshot struct {
	Version int                      `json:"version"`
	Forward map[string]snapshotEntry `json:"forward"`
}

// DefaultFileName is the conventional cache file name under a project
// root.
const DefaultFileName = ".refactorcore-import-cache.json"

// SaveToDir writes the cache to DefaultFileName under dir.
func (c *Cache) SaveToDir(dir string) error {
	return c.Save(filepath.Join(dir, DefaultFileName))
}

// Save serialises the cache to path.
func (c *Cache) Save(path string) error {
	c.mu.RLock()
	snap := snapshot{
		Version: cacheVersion,
		Forward: make(map[string]snapshotEntry, len(c.forward)),
	}
	for file, e := range c.forward {
		snap.Forward[file] = snapshotEntry{Imports: e.Imports, Mtime: e.Mtime}
	}
	c.mu.RUnlock()

	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// LoadFromDir reads DefaultFileName under dir, returning an empty Cache
// (never an error) if the file is missing, corrupted, or from an
// incompatible version — spec §4.4: "corrupted or version-mismatched
// caches are discarded silently."
func LoadFromDir(dir string) *Cache {
	return Load(filepath.Join(dir, DefaultFileName))
}

// Load reads path the same way LoadFromDir does.
func Load(path string) *Cache {
	c := New()

	raw, err := os.ReadFile(path)
	if err != nil {
		return c
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		slog.Debug("discarding corrupted import cache", "path", path, "error", err)
		return c
	}
	if snap.Version != cacheVersion {
		slog.Debug("discarding import cache from incompatible version",
			"path", path, "found_version", snap.Version, "want_version", cacheVersion)
		return c
	}

	for file, e := range snap.Forward {
		c.SetImports(file, e.Imports, e.Mtime)
	}
	return c
}
