// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package consolidate implements the Consolidation Post-Processor: the
// fixed-order steps that run after a consolidation plan's structural move
// succeeds — flatten a nested source tree, rename the entry file, inject
// a module declaration, merge manifest dependencies (rejecting cycles),
// and rewrite self-imports and workspace imports (spec §4.9).
//
// # Description
//
// Every step is independently best-effort: an I/O failure in one step is
// logged and recorded as a plan.Warning rather than aborting the
// remaining steps (spec §4.9: "A step that reads or writes a file with
// an I/O failure is logged but does not abort subsequent steps").
//
// # Thread Safety
//
// Run is not safe to call concurrently against the same project. The
// executor calls Run after the plan's edits are applied and their path
// locks released; Run itself takes no lock.
package consolidate

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/polyglot-tools/refactorcore/internal/manifest"
	"github.com/polyglot-tools/refactorcore/internal/plan"
)

// Options configures one consolidation run.
type Options struct {
	// Meta is the consolidation structure extracted by
	// internal/planconv.DetectConsolidation.
	Meta *plan.ConsolidationMetadata

	// Ext is the language's source file extension, including the dot
	// (e.g. ".rs").
	Ext string

	// ManifestName is the build manifest's filename within a package
	// root (e.g. "Cargo.toml").
	ManifestName string

	// EntryFileName is the language's crate/package entry file basename
	// without extension (e.g. "lib" for lib.rs, "mod" for mod.rs).
	EntryFileName    string
	ModuleFileName   string
	ExcludedDirNames []string // e.g. "target", "node_modules", ".git", "dist"
}

// DefaultOptions returns Options for a Rust-style workspace: lib.rs /
// mod.rs entry files, Cargo.toml manifests, `pub mod x;` declarations.
func DefaultOptions(meta *plan.ConsolidationMetadata) Options {
	return Options{
		Meta:             meta,
		Ext:              ".rs",
		ManifestName:     "Cargo.toml",
		EntryFileName:    "lib",
		ModuleFileName:   "mod",
		ExcludedDirNames: []string{"target", "node_modules", ".git", "dist"},
	}
}

// Result tallies what each step changed, for the envelope's summary, plus
// any non-fatal warnings collected along the way.
type Result struct {
	Warnings         []plan.Warning
	FilesChanged     int
	ReplacementCount int
}

func (r *Result) warn(code, message string) {
	r.Warnings = append(r.Warnings, plan.Warning{Code: code, Message: message})
}

// Run executes the six consolidation steps in spec order against
// workspaceRoot, using opts.Meta's already-computed source/target paths.
// It assumes the structural move (source package root -> target module
// path) has already happened: the source package's contents now live at
// opts.Meta.TargetModulePath, including its own manifest, which step 1
// deletes once flattened. The source manifest's dependency table is
// therefore snapshotted from that landed-but-not-yet-flattened location
// before step 1 runs, so step 4 still has it to merge.
func Run(workspaceRoot string, opts Options) *Result {
	res := &Result{}

	sourceDeps := snapshotSourceManifest(opts)

	flattenSourceTree(opts, res)
	renameEntryFile(opts, res)
	injectModuleDeclaration(opts, res)
	mergeManifestDependencies(opts, sourceDeps, res)
	fixSelfImports(opts, res)
	updateWorkspaceImports(workspaceRoot, opts, res)

	return res
}

// snapshotSourceManifest reads the moved-but-not-yet-flattened source
// manifest so its dependency table survives into step 4 even after step
// 1 deletes the file itself. A missing or unparseable manifest yields a
// nil snapshot; mergeManifestDependencies treats that as "nothing to
// merge", not an error.
func snapshotSourceManifest(opts Options) *manifest.Document {
	if opts.ManifestName == "" {
		return nil
	}
	landedManifestPath := filepath.Join(opts.Meta.TargetModulePath, opts.ManifestName)
	doc, err := manifest.Load(landedManifestPath)
	if err != nil {
		return nil
	}
	return doc
}

// flattenSourceTree is step 1: if the moved directory contains a "src"
// subdirectory, move each of its entries one level up, then remove the
// now-empty src/ and any leftover package manifest inside the moved
// directory (the source package's own manifest, now superseded by the
// target package's).
func flattenSourceTree(opts Options, res *Result) {
	moved := opts.Meta.TargetModulePath
	srcDir := filepath.Join(moved, "src")

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("consolidate: reading nested src directory", "path", srcDir, "error", err)
			res.warn("flatten-read-failed", "could not read nested src directory: "+err.Error())
		}
		return
	}

	for _, entry := range entries {
		oldPath := filepath.Join(srcDir, entry.Name())
		newPath := filepath.Join(moved, entry.Name())
		if err := os.Rename(oldPath, newPath); err != nil {
			slog.Warn("consolidate: flattening nested source entry", "from", oldPath, "to", newPath, "error", err)
			res.warn("flatten-move-failed", "could not move "+oldPath+" to "+newPath+": "+err.Error())
			continue
		}
		res.FilesChanged++
	}

	if err := os.Remove(srcDir); err != nil {
		slog.Warn("consolidate: removing emptied src directory", "path", srcDir, "error", err)
	}

	if opts.ManifestName != "" {
		leftoverManifest := filepath.Join(moved, opts.ManifestName)
		if _, err := os.Stat(leftoverManifest); err == nil {
			if err := os.Remove(leftoverManifest); err != nil {
				slog.Warn("consolidate: removing leftover source manifest", "path", leftoverManifest, "error", err)
				res.warn("flatten-manifest-remove-failed", "could not remove leftover manifest "+leftoverManifest+": "+err.Error())
			}
		}
	}
}

// renameEntryFile is step 2: rename lib.<ext> to mod.<ext> in the moved
// directory, unless mod.<ext> already exists (skip with a warning).
func renameEntryFile(opts Options, res *Result) {
	moved := opts.Meta.TargetModulePath
	libPath := filepath.Join(moved, opts.EntryFileName+opts.Ext)
	modPath := filepath.Join(moved, opts.ModuleFileName+opts.Ext)

	_, libErr := os.Stat(libPath)
	_, modErr := os.Stat(modPath)

	if libErr != nil {
		return // no entry file to rename; nothing to do
	}
	if modErr == nil {
		res.warn("entry-file-clash", "both "+libPath+" and "+modPath+" exist; skipped rename")
		return
	}

	if err := os.Rename(libPath, modPath); err != nil {
		slog.Warn("consolidate: renaming entry file", "from", libPath, "to", modPath, "error", err)
		res.warn("rename-entry-failed", "could not rename "+libPath+" to "+modPath+": "+err.Error())
		return
	}
	res.FilesChanged++
}

// modDeclarationLine is the syntactic form spec §4.9 step 3 calls for:
// `pub mod <module_name>;`.
func modDeclarationLine(name string) string { return "pub mod " + name + ";" }

// injectModuleDeclaration is step 3: insert `pub mod <module_name>;`
// into the target package's entry file, after the last existing module
// declaration, skipping if already present.
func injectModuleDeclaration(opts Options, res *Result) {
	entryPath := filepath.Join(opts.Meta.TargetPackageRoot, "src", opts.EntryFileName+opts.Ext)
	if _, err := os.Stat(entryPath); err != nil {
		entryPath = filepath.Join(opts.Meta.TargetPackageRoot, "src", opts.ModuleFileName+opts.Ext)
	}

	content, err := os.ReadFile(entryPath)
	if err != nil {
		slog.Warn("consolidate: reading target entry file", "path", entryPath, "error", err)
		res.warn("inject-read-failed", "could not read target entry file "+entryPath+": "+err.Error())
		return
	}

	decl := modDeclarationLine(opts.Meta.TargetModuleName)
	text := string(content)
	if strings.Contains(text, decl) {
		return // already present
	}

	lines := strings.Split(text, "\n")
	insertAt := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "pub mod ") || strings.HasPrefix(strings.TrimSpace(line), "mod ") {
			insertAt = i + 1
		}
	}

	newLines := make([]string, 0, len(lines)+1)
	newLines = append(newLines, lines[:insertAt]...)
	newLines = append(newLines, decl)
	newLines = append(newLines, lines[insertAt:]...)

	out := strings.Join(newLines, "\n")
	if err := os.WriteFile(entryPath, []byte(out), 0o644); err != nil {
		slog.Warn("consolidate: writing target entry file", "path", entryPath, "error", err)
		res.warn("inject-write-failed", "could not write target entry file "+entryPath+": "+err.Error())
		return
	}
	res.FilesChanged++
}

// mergeManifestDependencies is step 4: add each entry of sourceDoc's
// dependency tables to the target package's manifest, unless it would be
// a self-dependency (skip with a warning, spec invariant 7) or already
// present (target's version wins). sourceDoc is nil when the source
// package had no manifest (or this consolidation carries none to merge),
// in which case this step is a no-op.
func mergeManifestDependencies(opts Options, sourceDoc *manifest.Document, res *Result) {
	if opts.ManifestName == "" || sourceDoc == nil {
		return
	}

	targetManifestPath := filepath.Join(opts.Meta.TargetPackageRoot, opts.ManifestName)
	targetDoc, err := manifest.Load(targetManifestPath)
	if err != nil {
		slog.Warn("consolidate: loading target manifest", "path", targetManifestPath, "error", err)
		res.warn("merge-load-target-failed", "could not load target manifest "+targetManifestPath+": "+err.Error())
		return
	}

	changed := mergeDependencyTable(sourceDoc, targetDoc, "dependencies", opts.Meta.TargetPackageName, res)
	changed = mergeDependencyTable(sourceDoc, targetDoc, "dev-dependencies", opts.Meta.TargetPackageName, res) || changed
	changed = mergeDependencyTable(sourceDoc, targetDoc, "build-dependencies", opts.Meta.TargetPackageName, res) || changed

	if changed {
		if err := os.WriteFile(targetManifestPath, targetDoc.Bytes(), 0o644); err != nil {
			slog.Warn("consolidate: writing merged target manifest", "path", targetManifestPath, "error", err)
			res.warn("merge-write-failed", "could not write merged target manifest: "+err.Error())
			return
		}
		res.FilesChanged++
	}
}

func mergeDependencyTable(source, target *manifest.Document, section, targetPackageName string, res *Result) bool {
	deps := source.Dependencies(section)
	changed := false
	for key, value := range deps {
		if key == targetPackageName {
			// spec invariant 7: never emit a manifest in which a
			// package declares a dependency on itself.
			res.warn("self-dependency-skipped", "skipped "+key+" in ["+section+"]: would create a self-dependency on "+targetPackageName)
			continue
		}
		if target.AddDependencyLine(section, key, value) {
			changed = true
		}
	}
	return changed
}

// sourceIdentifier transforms a package name to the language's
// identifier form (dashes to underscores, per spec §4.9 step 5).
func sourceIdentifier(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// rewriteIdentPrefix rewrites "use <ident>::" or a bare qualified path
// "<ident>::" to "use crate::"/"crate::" — but only in a valid context
// (preceded by whitespace, '<', '(', ',', '{', or line start), to avoid
// substring hits inside unrelated identifiers (spec §9 Open Questions:
// "implementers MAY upgrade this to token-aware rewriting but MUST
// preserve the context rule").
func rewriteIdentPrefix(content, ident, replacement string) (string, int) {
	pattern := regexp.MustCompile(`(?m)(^|[\s<(,{])` + regexp.QuoteMeta(ident) + `::`)
	count := 0
	out := pattern.ReplaceAllStringFunc(content, func(m string) string {
		count++
		loc := pattern.FindStringSubmatchIndex(m)
		prefix := m[loc[2]:loc[3]]
		return prefix + replacement + "::"
	})
	return out, count
}

// fixSelfImports is step 5: within the moved module directory, rewrite
// self-imports ("use <source_ident>::" and qualified paths) to
// "crate::".
func fixSelfImports(opts Options, res *Result) {
	ident := sourceIdentifier(opts.Meta.SourcePackageName)
	rewriteTreeImports(opts.Meta.TargetModulePath, opts.Ext, ident, "crate", res)
}

// updateWorkspaceImports is step 6: from the workspace root, excluding
// the configured directory names, rewrite every remaining reference to
// the source package to "<target_ident>::<module_name>::".
func updateWorkspaceImports(workspaceRoot string, opts Options, res *Result) {
	sourceIdent := sourceIdentifier(opts.Meta.SourcePackageName)
	targetIdent := sourceIdentifier(opts.Meta.TargetPackageName)
	replacement := targetIdent + "::" + opts.Meta.TargetModuleName

	rewriteTreeImports(workspaceRoot, opts.Ext, sourceIdent, replacement, res, opts.ExcludedDirNames...)
}

// rewriteTreeImports walks root recursively, skipping any directory
// whose base name is in excludeDirs, and rewrites self-import references
// to ident in every file with the given extension.
func rewriteTreeImports(root, ext, ident, replacement string, res *Result, excludeDirs ...string) {
	excluded := make(map[string]bool, len(excludeDirs))
	for _, d := range excludeDirs {
		excluded[d] = true
	}

	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best-effort; a single bad entry doesn't abort the walk
		}
		if info.IsDir() {
			if excluded[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ext {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("consolidate: reading file for self-import rewrite", "path", path, "error", err)
			return nil
		}

		rewritten, count := rewriteIdentPrefix(string(content), ident, replacement)
		if count == 0 {
			return nil
		}

		if err := os.WriteFile(path, []byte(rewritten), 0o644); err != nil {
			slog.Warn("consolidate: writing rewritten file", "path", path, "error", err)
			res.warn("rewrite-write-failed", "could not write rewritten file "+path+": "+err.Error())
			return nil
		}

		res.FilesChanged++
		res.ReplacementCount += count
		return nil
	})
}
