// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package refupdate

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polyglot-tools/refactorcore/internal/langreg"
)

// clampParallelism returns 2x the available parallelism, clamped to
// [4, 64] (spec §4.6 Method 1).
func clampParallelism() int {
	n := 2 * runtime.GOMAXPROCS(0)
	if n < 4 {
		return 4
	}
	if n > 64 {
		return 64
	}
	return n
}

// detectAffected runs Method 1 (import-based detection) and returns the
// set of files known or discovered to import opts.OldPath, plus the
// candidate pool Method 2 should still examine.
func detectAffected(ctx context.Context, opts Options) (affected map[string]bool, method2Candidates []string, failed []FailedFile) {
	affected = make(map[string]bool)

	if opts.Cache != nil && opts.Cache.Populated() {
		importers := opts.Cache.GetImporters(opts.OldPath)
		if opts.Rename.IsDirectory {
			importers = append(importers, opts.Cache.GetImportersForDirectory(opts.OldPath)...)
		}
		for _, importer := range importers {
			affected[importer] = true
		}

		for _, f := range opts.ProjectFiles {
			if affected[f] {
				continue
			}
			if isMethod2Candidate(f, opts.Scope) {
				method2Candidates = append(method2Candidates, f)
			}
		}
		return affected, method2Candidates, nil
	}

	// Cache not populated: traverse every project file with bounded
	// parallelism, recording the full import set for each as we go.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(clampParallelism())

	for _, f := range opts.ProjectFiles {
		f := f
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}

			imports, mtime, err := scanImports(f, opts.Registry)
			if err != nil {
				mu.Lock()
				failed = append(failed, FailedFile{Path: f, Error: err.Error()})
				mu.Unlock()
				return nil
			}

			resolved := make([]string, len(imports))
			for i, spec := range imports {
				resolved[i] = resolveSpecifier(spec, f)
			}

			if opts.Cache != nil {
				opts.Cache.SetImports(f, resolved, mtime)
			}

			marked := false
			for _, r := range resolved {
				if isDescendantOrEqual(r, opts.OldPath) {
					marked = true
					break
				}
			}

			mu.Lock()
			if marked {
				affected[f] = true
			} else if isMethod2Candidate(f, opts.Scope) {
				method2Candidates = append(method2Candidates, f)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return affected, method2Candidates, failed
}

// scanImports extracts the full import list for f using the registered
// plugin's import parser when available, falling back to a regex scan.
func scanImports(f string, registry *langreg.Registry) ([]string, time.Time, error) {
	info, err := os.Stat(f)
	if err != nil {
		return nil, time.Time{}, err
	}
	content, err := os.ReadFile(f)
	if err != nil {
		return nil, time.Time{}, err
	}

	ext := filepath.Ext(f)
	if registry != nil {
		if lang, ok := registry.ForExtension(ext); ok && lang.Category == langreg.CategoryFull && lang.Capabilities.ImportParser != nil {
			imports, err := lang.Capabilities.ImportParser(content)
			if err != nil {
				return nil, time.Time{}, err
			}
			return imports, info.ModTime(), nil
		}
	}

	return fallbackImports(content), info.ModTime(), nil
}

// isMethod2Candidate reports whether f's extension is one Method 2
// should still examine: documentation/manifest files only under ScopeAll,
// and a file with any other extension under every scope (spec §4.6 "files
// not covered ... within an extension class that may carry rewritable
// string references").
func isMethod2Candidate(f string, scope ScanScope) bool {
	ext := filepath.Ext(f)
	if docAndManifestExtensions[ext] {
		return scope == ScopeAll
	}
	return true
}
