// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package refupdate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/polyglot-tools/refactorcore/internal/langreg"
)

// webLanguageExtensions is used only for the directory-rename skip rule
// in Method 2 (spec §4.6: "Skip web-language files on directory renames
// unless their content syntactically could contain alias imports").
var webLanguageExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
}

// Update runs the full Reference Updater pipeline: Method 1 detection,
// Method 2 detection over the remaining candidates, and — unless
// opts.DryRun — writes rewritten content to disk and refreshes the
// cache entry for each affected file (spec §4.6).
func Update(ctx context.Context, opts Options, compatTable map[string][]string) (*Result, error) {
	affected, candidates, failed := detectAffected(ctx, opts)

	result := &Result{
		RewrittenContent: make(map[string][]byte),
		ChangeCounts:     make(map[string]int),
		Failed:           failed,
	}

	renamedExt := filepath.Ext(opts.OldPath)
	var compatible map[string]bool
	if opts.Registry != nil {
		list, err := opts.Registry.CompatibleExtensions(renamedExt, compatTable)
		if err == nil {
			compatible = make(map[string]bool, len(list))
			for _, ext := range list {
				compatible[ext] = true
			}
		}
	}

	for _, f := range candidates {
		ext := filepath.Ext(f)

		if compatible != nil && !compatible[ext] {
			continue
		}

		if opts.Rename.IsDirectory && webLanguageExtensions[ext] {
			content, err := os.ReadFile(f)
			if err != nil {
				result.Failed = append(result.Failed, FailedFile{Path: f, Error: err.Error()})
				continue
			}
			if !mightContainAliasImport(content) {
				continue
			}
		}

		rewritten, count, err := rewriteFile(f, opts)
		if err != nil {
			result.Failed = append(result.Failed, FailedFile{Path: f, Error: err.Error()})
			continue
		}
		if count == 0 {
			continue
		}
		affected[f] = true
		result.RewrittenContent[f] = rewritten
		result.ChangeCounts[f] = count
	}

	// Re-rewrite Method 1 affected files too, so their written content is
	// available in the result regardless of which method found them.
	for f := range affected {
		if _, already := result.RewrittenContent[f]; already {
			continue
		}
		rewritten, count, err := rewriteFile(f, opts)
		if err != nil {
			result.Failed = append(result.Failed, FailedFile{Path: f, Error: err.Error()})
			delete(affected, f)
			continue
		}
		result.RewrittenContent[f] = rewritten
		result.ChangeCounts[f] = count
	}

	for f := range affected {
		result.AffectedFiles = append(result.AffectedFiles, f)
	}

	if opts.DryRun {
		return result, nil
	}

	for _, f := range result.AffectedFiles {
		content, ok := result.RewrittenContent[f]
		if !ok {
			continue
		}
		if err := os.WriteFile(f, content, 0o644); err != nil {
			result.Failed = append(result.Failed, FailedFile{Path: f, Error: err.Error()})
			continue
		}
		if opts.Cache != nil {
			if info, err := os.Stat(f); err == nil {
				imports, _, scanErr := scanImports(f, opts.Registry)
				if scanErr == nil {
					resolved := make([]string, len(imports))
					for i, spec := range imports {
						resolved[i] = resolveSpecifier(spec, f)
					}
					opts.Cache.SetImports(f, resolved, info.ModTime())
				}
			}
		}
	}

	return result, nil
}

// rewriteFile invokes the registered plugin's RewriteFileReferences hook
// for f. A file whose language has no such hook is left untouched
// (count 0), never written.
func rewriteFile(f string, opts Options) ([]byte, int, error) {
	ext := filepath.Ext(f)
	if opts.Registry == nil {
		return nil, 0, nil
	}
	lang, ok := opts.Registry.ForExtension(ext)
	if !ok || lang.Category != langreg.CategoryFull || lang.Capabilities.RewriteFileReferences == nil {
		return nil, 0, nil
	}

	content, err := os.ReadFile(f)
	if err != nil {
		return nil, 0, err
	}

	rewritten, count, err := lang.Capabilities.RewriteFileReferences(content, opts.OldPath, opts.NewPath, f, opts.ProjectRoot, opts.Rename)
	if err != nil {
		return nil, 0, err
	}
	if count == 0 || string(rewritten) == string(content) {
		return content, 0, nil
	}
	return rewritten, count, nil
}
