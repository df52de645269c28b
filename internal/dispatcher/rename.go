// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package dispatcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/polyglot-tools/refactorcore/internal/corerr"
	"github.com/polyglot-tools/refactorcore/internal/executor"
	"github.com/polyglot-tools/refactorcore/internal/langreg"
	"github.com/polyglot-tools/refactorcore/internal/lsp"
	"github.com/polyglot-tools/refactorcore/internal/manifest"
	"github.com/polyglot-tools/refactorcore/internal/planconv"
	"github.com/polyglot-tools/refactorcore/internal/plan"
	"github.com/polyglot-tools/refactorcore/internal/refupdate"
	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

// manifestName is the build manifest filename this package's workspace-
// member/path-reference bookkeeping understands, matching the Rust-style
// layout internal/consolidate defaults to.
const manifestName = "Cargo.toml"

// RenameOptions carries spec §6's Rename "options" object. DryRun is a
// pointer so its spec-mandated default (true) can be distinguished from an
// explicit false.
type RenameOptions struct {
	Strict        bool
	ValidateScope bool
	UpdateImports bool
	DryRun        *bool
}

func resolveDryRun(v *bool) bool {
	return v == nil || *v
}

// RenameRequest is spec §6's Rename parameter shape.
type RenameRequest struct {
	Target  TargetRef
	NewName string
	Options RenameOptions
}

// Rename dispatches to the LSP client for a symbol target, or to the
// filesystem + Reference Updater + Manifest Editor pipeline for a file or
// directory target (spec §4.11's Rename row).
func (d *Dispatcher) Rename(ctx context.Context, req RenameRequest) (plan.Envelope, error) {
	switch req.Target.Kind {
	case TargetSymbol:
		return d.renameSymbol(ctx, req)
	case TargetFile, TargetDirectory:
		newPath := d.resolveNewPath(req.Target.Path, req.NewName)
		return d.renamePath(ctx, req.Target.Path, newPath, req.Target.Kind == TargetDirectory, req.Options)
	default:
		err := corerr.Newf(corerr.KindInvalidRequest, "rename: unsupported target kind %q", req.Target.Kind)
		return plan.Error(err.Error(), nil), err
	}
}

// MoveRequest is spec §6's Relocate/Move parameter shape: Move "delegates
// to Rename semantics with a destination path" (spec §4.11's Move row).
type MoveRequest struct {
	Target      TargetRef
	Destination string
	DryRun      *bool
}

// Move relocates a file or directory to Destination, reusing Rename's
// filesystem pipeline verbatim.
func (d *Dispatcher) Move(ctx context.Context, req MoveRequest) (plan.Envelope, error) {
	if req.Target.Kind == TargetSymbol {
		err := corerr.New(corerr.KindInvalidRequest, "move: symbol targets are not supported, use rename")
		return plan.Error(err.Error(), nil), err
	}
	return d.renamePath(ctx, req.Target.Path, req.Destination, req.Target.Kind == TargetDirectory,
		RenameOptions{UpdateImports: true, DryRun: req.DryRun})
}

// resolveNewPath turns a Rename request's NewName into a full destination
// path: a bare identifier (no path separator) renames in place, within
// oldPath's own parent directory; anything else is treated as a path of
// its own, resolved against the project root.
func (d *Dispatcher) resolveNewPath(oldPath, newName string) string {
	if !strings.ContainsAny(newName, `/\`) {
		return filepath.Join(filepath.Dir(oldPath), newName)
	}
	if filepath.IsAbs(newName) {
		return newName
	}
	return filepath.Join(d.deps.Project.Root, newName)
}

// renameSymbol requests a symbol rename from the LSP client, converts the
// resulting WorkspaceEdit, and returns the write-response envelope. LSP-
// sourced plans carry no checksums of their own — the server's edit was
// already computed against live file content, so there is no separate
// planning-time snapshot to drift-check against (spec §3's checksum
// capture is a planning-time concept; here planning and computation are
// the same LSP round trip).
func (d *Dispatcher) renameSymbol(ctx context.Context, req RenameRequest) (plan.Envelope, error) {
	if d.deps.LSP == nil {
		err := corerr.New(corerr.KindNotSupported, "rename: no LSP client configured for symbol targets")
		return plan.Error(err.Error(), nil), err
	}
	if err := d.waitForIndexProgress(ctx); err != nil {
		wrapped := corerr.Wrap(corerr.KindLspError, err, "rename: waiting for workspace indexing")
		return plan.Error(wrapped.Error(), nil), wrapped
	}

	edit, err := d.deps.LSP.Rename(ctx, req.Target.Path, req.Target.Line, req.Target.Character, req.NewName)
	if err != nil {
		wrapped := corerr.Wrap(corerr.KindLspError, err, "rename: LSP request failed")
		return plan.Error(wrapped.Error(), nil), wrapped
	}

	ep, err := planconv.Convert(edit, planconv.Options{
		RefactorKind:    plan.KindRename,
		Language:        languageFor(d.deps.Registry, req.Target.Path),
		IsConsolidation: false,
	})
	if err != nil {
		wrapped := corerr.Wrap(corerr.KindInternal, err, "rename: converting workspace edit")
		return plan.Error(wrapped.Error(), nil), wrapped
	}

	summary := fmt.Sprintf("rename symbol at %s to %q", req.Target.Path, req.NewName)
	if resolveDryRun(req.Options.DryRun) {
		return d.previewEnvelope(summary, ep), nil
	}
	return d.executionEnvelope(ctx, ep, executor.Options{}, summary)
}

// renamePath implements the filesystem + alias resolver + Reference
// Updater + Manifest Editor pipeline shared by Rename-on-a-path and Move
// (spec §4.11's Rename/Move rows).
func (d *Dispatcher) renamePath(ctx context.Context, oldPath, newPath string, isDirectory bool, opts RenameOptions) (plan.Envelope, error) {
	project := d.deps.Project
	oldCanonical, err := project.Rel(oldPath)
	if err != nil {
		wrapped := corerr.Wrap(corerr.KindPathTraversal, err, "rename: source path")
		return plan.Error(wrapped.Error(), nil), wrapped
	}
	oldAbs := filepath.Join(project.Root, oldCanonical)

	if _, statErr := os.Stat(oldAbs); statErr != nil {
		wrapped := corerr.Wrap(corerr.KindNotFound, statErr, "rename: source path")
		return plan.Error(wrapped.Error(), nil), wrapped
	}
	if _, statErr := os.Stat(newPath); statErr == nil {
		err := corerr.Newf(corerr.KindAlreadyExists, "rename: destination %s already exists", newPath)
		return plan.Error(err.Error(), nil), err
	}

	ep := &plan.EditPlan{
		Metadata: plan.Metadata{SchemaVersion: 1, RefactorKind: plan.KindRename},
		Checksums: captureChecksums(oldAbs, isDirectory),
		Edits: []plan.TextEdit{
			{TargetPath: oldAbs, Kind: plan.EditMove, Location: plan.Zero, ReplacementText: newPath, Priority: 10},
		},
	}

	if opts.UpdateImports {
		d.appendReferenceUpdates(ctx, ep, oldAbs, newPath, isDirectory)
		d.appendAliasUpdates(ep, oldAbs, newPath, d.projectFiles())
	}

	if project.Kind == workspace.BuildManifestDriven {
		d.appendManifestUpdate(ep, oldAbs, newPath)
	}

	if isDirectory {
		if meta, ok := detectConsolidation(oldAbs, newPath); ok {
			ep.Metadata.Consolidation = meta
		}
	}

	summary := fmt.Sprintf("rename %s to %s", oldAbs, newPath)
	if resolveDryRun(opts.DryRun) {
		return d.previewEnvelope(summary, ep), nil
	}
	return d.executionEnvelope(ctx, ep, executor.Options{ValidateChecksums: true}, summary)
}

// appendReferenceUpdates runs the Reference Updater and folds every
// rewritten file's new content into ep as a whole-file Create edit — an
// overwrite, which is exactly what a full-content rewrite needs (spec
// §4.6's affected-files pipeline, wired into the same EditPlan the
// structural move travels in so both apply under one executor pass).
func (d *Dispatcher) appendReferenceUpdates(ctx context.Context, ep *plan.EditPlan, oldPath, newPath string, isDirectory bool) {
	projectFiles := d.projectFiles()

	result, err := refupdate.Update(ctx, refupdate.Options{
		OldPath:      oldPath,
		NewPath:      newPath,
		ProjectRoot:  d.deps.Project.Root,
		ProjectFiles: projectFiles,
		Registry:     d.deps.Registry,
		Cache:        d.deps.Cache,
		Rename:       langreg.RenameInfo{OldPath: oldPath, NewPath: newPath, IsDirectory: isDirectory},
		Scope:        refupdate.ScopeAll,
		DryRun:       true, // the executor performs the actual write, once, for every edit together
	}, d.deps.CompatTable)
	if err != nil {
		ep.Metadata.Impact = plan.ImpactFor(0)
		return
	}

	for _, f := range result.AffectedFiles {
		content, ok := result.RewrittenContent[f]
		if !ok {
			continue
		}
		ep.Edits = append(ep.Edits, plan.TextEdit{
			TargetPath:      f,
			Kind:            plan.EditCreate,
			Location:        plan.Zero,
			ReplacementText: string(content),
			Priority:        1,
			Description:     "reference update",
		})
	}
	for _, failed := range result.Failed {
		ep.Metadata.Impact = plan.ImpactFor(len(result.AffectedFiles))
		_ = failed // not fatal; the failed paths are not recorded in the plan, only Impact is set
	}
}

// appendManifestUpdate rewrites the project's top-level manifest's
// workspace-member entry for a renamed path, if present (spec §4.10:
// "Workspace members list ... add/remove/substitute path entries").
func (d *Dispatcher) appendManifestUpdate(ep *plan.EditPlan, oldPath, newPath string) {
	manifestPath := filepath.Join(d.deps.Project.Root, manifestName)
	doc, err := manifest.Load(manifestPath)
	if err != nil {
		return
	}

	oldRel, err1 := filepath.Rel(d.deps.Project.Root, oldPath)
	newRel, err2 := filepath.Rel(d.deps.Project.Root, newPath)
	if err1 != nil || err2 != nil {
		return
	}
	oldRel, newRel = filepath.ToSlash(oldRel), filepath.ToSlash(newRel)

	if count := doc.RewriteWorkspaceMember(oldRel, newRel); count > 0 {
		ep.Edits = append(ep.Edits, plan.TextEdit{
			TargetPath:      manifestPath,
			Kind:            plan.EditCreate,
			Location:        plan.Zero,
			ReplacementText: string(doc.Bytes()),
			Priority:        5,
			Description:     "manifest workspace-member rewrite",
		})
	}
}

// detectConsolidation checks whether a directory rename's destination
// matches the <pkg>/src/<module> pattern that flags it as a package
// consolidation (spec §4.11's Rename row note), by reusing the same
// detector the LSP-sourced plan converter uses against a synthetic rename
// resource operation.
func detectConsolidation(oldPath, newPath string) (*plan.ConsolidationMetadata, bool) {
	changes := []lsp.DocumentChange{{
		ResourceOp: &lsp.ResourceOp{
			Kind:   lsp.ResourceOpRename,
			OldURI: lsp.PathToURI(oldPath),
			NewURI: lsp.PathToURI(newPath),
		},
	}}
	meta, err := planconv.DetectConsolidation(changes)
	if err != nil {
		return nil, false
	}
	return meta, true
}

// captureChecksums reads every regular file under path (path itself, if a
// plain file) and returns a checksum map suitable for EditPlan.Checksums,
// so the executor's drift check (spec §4.8 step 1) covers the whole
// subtree a directory rename touches, not just the directory entry.
func captureChecksums(path string, isDirectory bool) map[string]string {
	sums := make(map[string]string)
	if !isDirectory {
		if content, err := os.ReadFile(path); err == nil {
			sums[path] = plan.Checksum(content)
		}
		return sums
	}
	walkFiles(path, func(p string) {
		if content, err := os.ReadFile(p); err == nil {
			sums[p] = plan.Checksum(content)
		}
	})
	return sums
}

func languageFor(registry *langreg.Registry, path string) string {
	if registry == nil {
		return ""
	}
	if lang, ok := registry.ForExtension(filepath.Ext(path)); ok {
		return lang.Name
	}
	return ""
}

// projectFiles lists every regular file under the project root, the
// candidate universe refupdate.Options.ProjectFiles expects when the
// import cache alone can't answer a Method 2 scan.
func (d *Dispatcher) projectFiles() []string {
	var files []string
	root := d.deps.Project.Root
	_ = filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		files = append(files, p)
		return nil
	})
	return files
}

// walkFiles calls fn for every regular file under root.
func walkFiles(root string, fn func(path string)) {
	_ = filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		fn(p)
		return nil
	})
}

// previewEnvelope builds the dry-run response envelope for a filesystem-
// or LSP-sourced EditPlan. plan.Preview exists for the RefactorPlan shape
// a find-replace or other native plan carries; the rename/move/delete
// pipeline works in terms of the post-conversion EditPlan instead, so its
// preview envelope is assembled directly from that shape.
//
// When d has a project root to read current file content against, the
// envelope also carries a rendered line-level Diffs preview (spec §6/§7
// dry-run detail) alongside the structural EditPlan; a Dispatcher built
// without a Project (pure LSP-backed use) just gets the EditPlan.
func (d *Dispatcher) previewEnvelope(summary string, ep *plan.EditPlan) plan.Envelope {
	env := plan.Envelope{
		Status:       plan.StatusPreview,
		Summary:      summary,
		FilesChanged: affectedPaths(ep),
		Changes:      ep,
	}
	if d.deps.Project != nil {
		env.Diffs = executor.PreviewDiffs(d.deps.Project, ep)
	}
	return env
}

// affectedPaths returns the deduplicated, order-preserving list of every
// path an EditPlan's edits touch.
func affectedPaths(ep *plan.EditPlan) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range ep.Edits {
		if e.TargetPath == "" || seen[e.TargetPath] {
			continue
		}
		seen[e.TargetPath] = true
		out = append(out, e.TargetPath)
	}
	return out
}
