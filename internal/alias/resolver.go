// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package alias implements the Path-Alias Resolver: bidirectional mapping
// between import specifiers (e.g. "$lib/x", "@/y") and absolute filesystem
// paths, driven by a project's nearest alias configuration file.
package alias

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

// commonSourceExtensions are tried, in order, against an unresolved
// candidate path before falling back to directory-style index files.
var commonSourceExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".py", ".go", ".rs"}

// Loader parses an alias configuration file into its alias entries. The
// default implementation understands a generic {"paths": {pattern:
// [replacements]}} JSON document; a language plugin with the
// path_alias_resolver capability (internal/langreg) may supply a loader
// that understands its own native format (tsconfig.json, pyproject.toml,
// ...).
type Loader interface {
	Load(configPath string) ([]workspace.AliasEntry, error)
}

// LoaderFunc adapts a plain function to Loader.
type LoaderFunc func(configPath string) ([]workspace.AliasEntry, error)

func (f LoaderFunc) Load(configPath string) ([]workspace.AliasEntry, error) { return f(configPath) }

type jsonPathsDoc struct {
	Paths map[string][]string `json:"paths"`
}

// JSONPathsLoader is the default Loader: a flat JSON document with a
// top-level "paths" object, one entry per alias pattern, mirroring the
// shape of a tsconfig "compilerOptions.paths" block without requiring a
// full tsconfig parse.
var JSONPathsLoader Loader = LoaderFunc(func(configPath string) ([]workspace.AliasEntry, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var doc jsonPathsDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	entries := make([]workspace.AliasEntry, 0, len(doc.Paths))
	for pattern, replacements := range doc.Paths {
		entries = append(entries, workspace.AliasEntry{Pattern: pattern, Replacements: replacements})
	}
	return entries, nil
})

// Resolver locates, parses, and caches per-directory alias configuration,
// and resolves import specifiers against it (spec §4.3).
//
// # Thread Safety
//
// Safe for concurrent use.
type Resolver struct {
	configFileNames []string
	loader          Loader

	mu        sync.RWMutex
	dirConfig map[string]string                 // directory -> nearest config path ("" = none found)
	byConfig  map[string][]workspace.AliasEntry // config path -> parsed entries
}

// New returns a Resolver that looks for any of configFileNames (tried in
// order, e.g. "tsconfig.json", "jsconfig.json") walking upward from an
// importing file, parsing matches with loader.
func New(loader Loader, configFileNames ...string) *Resolver {
	if loader == nil {
		loader = JSONPathsLoader
	}
	if len(configFileNames) == 0 {
		configFileNames = []string{"tsconfig.json", "jsconfig.json", "aliases.json"}
	}
	return &Resolver{
		configFileNames: configFileNames,
		loader:          loader,
		dirConfig:       make(map[string]string),
		byConfig:        make(map[string][]workspace.AliasEntry),
	}
}

// FindConfig walks upward from filepath.Dir(importingFile), stopping once it
// passes above projectRoot, looking for the nearest alias configuration
// file. The result is cached per directory.
func (r *Resolver) FindConfig(importingFile, projectRoot string) (configPath string, ok bool) {
	dir := filepath.Dir(importingFile)
	root := filepath.Clean(projectRoot)

	visited := make([]string, 0, 8)
	for {
		r.mu.RLock()
		cached, hit := r.dirConfig[dir]
		r.mu.RUnlock()
		if hit {
			r.fillCache(visited, cached)
			return cached, cached != ""
		}
		visited = append(visited, dir)

		for _, name := range r.configFileNames {
			candidate := filepath.Join(dir, name)
			if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
				r.fillCache(visited, candidate)
				return candidate, true
			}
		}

		if dir == root || !strings.HasPrefix(dir, root) {
			r.fillCache(visited, "")
			return "", false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			r.fillCache(visited, "")
			return "", false
		}
		dir = parent
	}
}

func (r *Resolver) fillCache(dirs []string, configPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range dirs {
		r.dirConfig[d] = configPath
	}
}

// entriesFor loads and caches the alias entries for configPath.
func (r *Resolver) entriesFor(configPath string) ([]workspace.AliasEntry, error) {
	r.mu.RLock()
	entries, ok := r.byConfig[configPath]
	r.mu.RUnlock()
	if ok {
		return entries, nil
	}

	entries, err := r.loader.Load(configPath)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.byConfig[configPath] = entries
	r.mu.Unlock()
	return entries, nil
}

// splitWildcard splits pattern on its first "*" into prefix and suffix. ok
// is false if pattern has no wildcard.
func splitWildcard(pattern string) (prefix, suffix string, ok bool) {
	idx := strings.IndexByte(pattern, '*')
	if idx < 0 {
		return "", "", false
	}
	return pattern[:idx], pattern[idx+1:], true
}

// Resolve maps specifier, imported from importingFile within projectRoot,
// to an absolute filesystem path using the nearest alias configuration
// (spec §4.3 "Resolution rules").
//
// # Outputs
//
//   - string: the resolved absolute path, or the unresolved first
//     replacement candidate if nothing on disk matched.
//   - bool: true if a pattern matched at all (regardless of whether the
//     result exists on disk).
func (r *Resolver) Resolve(specifier, importingFile, projectRoot string) (string, bool) {
	return r.resolveAgainst(nil, specifier, importingFile, projectRoot)
}

// ResolveWithEntries behaves like Resolve but uses a caller-supplied alias
// list instead of walking for a configuration file — used when the
// project's configuration was already loaded eagerly (workspace.Project.Aliases).
func (r *Resolver) ResolveWithEntries(entries []workspace.AliasEntry, specifier, importingFile, projectRoot string) (string, bool) {
	return r.resolveAgainst(entries, specifier, importingFile, projectRoot)
}

func (r *Resolver) resolveAgainst(entries []workspace.AliasEntry, specifier, importingFile, projectRoot string) (string, bool) {
	baseDir := projectRoot
	if entries == nil {
		configPath, ok := r.FindConfig(importingFile, projectRoot)
		if !ok {
			return "", false
		}
		var err error
		entries, err = r.entriesFor(configPath)
		if err != nil {
			return "", false
		}
		baseDir = filepath.Dir(configPath)
	}

	for _, entry := range entries {
		prefix, suffix, hasWildcard := splitWildcard(entry.Pattern)
		var captured string
		if hasWildcard {
			if !strings.HasPrefix(specifier, prefix) || !strings.HasSuffix(specifier, suffix) {
				continue
			}
			if len(specifier) < len(prefix)+len(suffix) {
				continue
			}
			captured = specifier[len(prefix) : len(specifier)-len(suffix)]
		} else if specifier != entry.Pattern {
			continue
		}

		var first string
		for i, replacement := range entry.Replacements {
			candidate := replacement
			if hasWildcard {
				candidate = strings.Replace(replacement, "*", captured, 1)
			}
			candidate = filepath.Join(baseDir, filepath.FromSlash(candidate))
			if i == 0 {
				first = candidate
			}
			if resolved, ok := resolveOnDisk(candidate); ok {
				return resolved, true
			}
		}
		return first, true
	}
	return "", false
}

// resolveOnDisk tries candidate as-is, then candidate+ext for each common
// source extension, then candidate as a directory containing an index file.
func resolveOnDisk(candidate string) (string, bool) {
	if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
		return candidate, true
	}
	for _, ext := range commonSourceExtensions {
		withExt := candidate + ext
		if st, err := os.Stat(withExt); err == nil && !st.IsDir() {
			return withExt, true
		}
	}
	if st, err := os.Stat(candidate); err == nil && st.IsDir() {
		for _, ext := range commonSourceExtensions {
			index := filepath.Join(candidate, "index"+ext)
			if st, err := os.Stat(index); err == nil && !st.IsDir() {
				return index, true
			}
		}
	}
	return "", false
}

// PathToAlias is the reverse mapping: given an absolute path, try to
// rewrite it back to an alias specifier using the nearest configuration
// (spec §4.3 "Reverse mapping").
func (r *Resolver) PathToAlias(absolutePath, importingFile, projectRoot string) (string, bool) {
	configPath, ok := r.FindConfig(importingFile, projectRoot)
	if !ok {
		return "", false
	}
	entries, err := r.entriesFor(configPath)
	if err != nil {
		return "", false
	}
	baseDir := filepath.Dir(configPath)

	slashPath := filepath.ToSlash(absolutePath)
	for _, entry := range entries {
		for _, replacement := range entry.Replacements {
			replPrefix, replSuffix, hasWildcard := splitWildcard(replacement)
			absReplPrefix := strings.TrimSuffix(filepath.ToSlash(baseDir), "/") + "/" + strings.TrimPrefix(replPrefix, "/")

			if !hasWildcard {
				if slashPath == absReplPrefix {
					return entry.Pattern, true
				}
				continue
			}

			if !strings.HasPrefix(slashPath, absReplPrefix) || !strings.HasSuffix(slashPath, replSuffix) {
				continue
			}
			if len(slashPath) < len(absReplPrefix)+len(replSuffix) {
				continue
			}
			captured := slashPath[len(absReplPrefix) : len(slashPath)-len(replSuffix)]

			patPrefix, patSuffix, patHasWildcard := splitWildcard(entry.Pattern)
			if !patHasWildcard {
				continue
			}
			return patPrefix + captured + patSuffix, true
		}
	}
	return "", false
}

// IsPotentialAlias reports whether specifier looks like it could be an
// alias import rather than a relative or absolute path (spec §4.3
// "Potential-alias heuristic").
func IsPotentialAlias(specifier string) bool {
	if specifier == "" {
		return false
	}
	switch specifier[0] {
	case '$', '@', '~':
		return true
	case '.', '/':
		return false
	default:
		return true
	}
}
