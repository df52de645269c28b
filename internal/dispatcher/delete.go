// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package dispatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/polyglot-tools/refactorcore/internal/corerr"
	"github.com/polyglot-tools/refactorcore/internal/executor"
	"github.com/polyglot-tools/refactorcore/internal/plan"
)

// DeleteRequest is spec §6's Delete parameter shape. Force skips the
// dependent-import check for file/directory targets; it has no effect on
// a symbol target, which never fails that check (spec §4.11's Delete
// row: "cleanup dependent imports unless force").
type DeleteRequest struct {
	Target TargetRef
	Force  bool
	DryRun *bool
}

// Delete dispatches to the filesystem (file/directory), a synthesized
// text edit (symbol), or the dead-code scan (dead-code-batch) (spec
// §4.11's Delete row).
func (d *Dispatcher) Delete(ctx context.Context, req DeleteRequest) (plan.Envelope, error) {
	switch req.Target.Kind {
	case TargetFile, TargetDirectory:
		return d.deletePath(ctx, req)
	case TargetSymbol:
		return d.deleteSymbol(ctx, req)
	case TargetDeadCodeBatch:
		return d.deleteDeadCodeBatch(ctx, req)
	default:
		err := corerr.Newf(corerr.KindInvalidRequest, "delete: unsupported target kind %q", req.Target.Kind)
		return plan.Error(err.Error(), nil), err
	}
}

// deletePath handles a file or directory target: captures checksums over
// the subtree, warns (without failing) about any file that still imports
// the target unless Force is set, and records the deletion itself as an
// EditPlan Deletion rather than a text edit.
func (d *Dispatcher) deletePath(ctx context.Context, req DeleteRequest) (plan.Envelope, error) {
	project := d.deps.Project
	rel, err := project.Rel(req.Target.Path)
	if err != nil {
		wrapped := corerr.Wrap(corerr.KindPathTraversal, err, "delete: target path")
		return plan.Error(wrapped.Error(), nil), wrapped
	}
	abs := filepath.Join(project.Root, rel)

	info, statErr := os.Stat(abs)
	if statErr != nil {
		wrapped := corerr.Wrap(corerr.KindNotFound, statErr, "delete: target path")
		return plan.Error(wrapped.Error(), nil), wrapped
	}

	delKind := plan.DeleteFile
	if info.IsDir() {
		delKind = plan.DeleteDirectory
	}

	ep := &plan.EditPlan{
		Metadata:  plan.Metadata{SchemaVersion: 1, RefactorKind: plan.KindDelete},
		Checksums: captureChecksums(abs, info.IsDir()),
		Deletions: []plan.DeletionTarget{{Path: abs, Kind: delKind}},
	}

	var diagnostics []plan.Diagnostic
	if !req.Force && d.deps.Cache != nil {
		importers := d.deps.Cache.GetImporters(abs)
		if info.IsDir() {
			importers = d.deps.Cache.GetImportersForDirectory(abs)
		}
		for _, importer := range importers {
			diagnostics = append(diagnostics, plan.Diagnostic{
				Severity: plan.SeverityWarning,
				Message:  fmt.Sprintf("%s still imports %s", importer, rel),
				FilePath: importer,
			})
		}
	}

	summary := fmt.Sprintf("delete %s", abs)
	if resolveDryRun(req.DryRun) {
		envelope := d.previewEnvelope(summary, ep)
		envelope.Diagnostics = diagnostics
		return envelope, nil
	}

	envelope, err := d.executionEnvelope(ctx, ep, executor.Options{ValidateChecksums: true}, summary)
	envelope.Diagnostics = append(diagnostics, envelope.Diagnostics...)
	return envelope, err
}

// deleteSymbol removes the line at the target position. Unlike
// plan.EditDelete (whole-file removal, applied by internal/executor's
// os.Remove branch), a symbol deletion blanks out a line span with an
// EditReplace edit, since only part of the file disappears.
func (d *Dispatcher) deleteSymbol(ctx context.Context, req DeleteRequest) (plan.Envelope, error) {
	project := d.deps.Project
	rel, err := project.Rel(req.Target.Path)
	if err != nil {
		wrapped := corerr.Wrap(corerr.KindPathTraversal, err, "delete: target path")
		return plan.Error(wrapped.Error(), nil), wrapped
	}
	abs := filepath.Join(project.Root, rel)

	content, readErr := os.ReadFile(abs)
	if readErr != nil {
		wrapped := corerr.Wrap(corerr.KindNotFound, readErr, "delete: target path")
		return plan.Error(wrapped.Error(), nil), wrapped
	}

	lines := strings.SplitAfter(string(content), "\n")
	if req.Target.Line < 0 || req.Target.Line >= len(lines) {
		err := corerr.Newf(corerr.KindInvalidRequest, "delete: line %d out of range in %s", req.Target.Line, rel)
		return plan.Error(err.Error(), nil), err
	}

	original := strings.TrimSuffix(lines[req.Target.Line], "\n")
	replacement := ""
	if req.Target.SymbolName != "" && strings.Contains(original, ",") {
		replacement = removeListIdentifier(original, req.Target.SymbolName)
	}

	ep := &plan.EditPlan{
		Metadata:  plan.Metadata{SchemaVersion: 1, RefactorKind: plan.KindDelete},
		Checksums: map[string]string{abs: plan.Checksum(content)},
		Edits: []plan.TextEdit{{
			TargetPath:      abs,
			Kind:            plan.EditReplace,
			Location:        plan.Location{StartLine: req.Target.Line, StartColumn: 0, EndLine: req.Target.Line + 1, EndColumn: 0},
			OriginalText:    original,
			ReplacementText: replacement,
			Priority:        1,
			Description:     "symbol delete",
		}},
	}

	summary := fmt.Sprintf("delete symbol at %s:%d", rel, req.Target.Line)
	if resolveDryRun(req.DryRun) {
		return d.previewEnvelope(summary, ep), nil
	}
	return d.executionEnvelope(ctx, ep, executor.Options{ValidateChecksums: true}, summary)
}

// removeListIdentifier drops name from a comma-separated line (an import
// or destructuring list), re-joining what remains. If name is the only
// entry, the whole line is blanked instead.
func removeListIdentifier(line, name string) string {
	parts := strings.Split(line, ",")
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(strings.Trim(strings.TrimSpace(p), `"'`)) == name {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 || len(kept) == len(parts) {
		return ""
	}
	return strings.TrimSuffix(strings.Join(kept, ","), ",") + "\n"
}

// deleteDeadCodeBatch scans every file under the target directory and
// flags the ones with zero recorded importers as deletion candidates,
// using the import cache's reverse index rather than a fresh parse pass.
// An empty or unpopulated cache yields no candidates rather than a false
// positive — dead-code detection degrades to "report nothing found," never
// to "delete everything."
func (d *Dispatcher) deleteDeadCodeBatch(ctx context.Context, req DeleteRequest) (plan.Envelope, error) {
	if d.deps.Cache == nil || !d.deps.Cache.Populated() {
		return plan.Preview(nil, nil, "dead-code-batch: import cache is empty, nothing to scan"), nil
	}

	project := d.deps.Project
	rel, err := project.Rel(req.Target.Path)
	if err != nil {
		wrapped := corerr.Wrap(corerr.KindPathTraversal, err, "delete: target path")
		return plan.Error(wrapped.Error(), nil), wrapped
	}
	root := filepath.Join(project.Root, rel)

	var candidates []plan.DeletionTarget
	checksums := make(map[string]string)
	walkFiles(root, func(p string) {
		if len(d.deps.Cache.GetImporters(p)) > 0 {
			return
		}
		candidates = append(candidates, plan.DeletionTarget{Path: p, Kind: plan.DeleteFile})
		if content, err := os.ReadFile(p); err == nil {
			checksums[p] = plan.Checksum(content)
		}
	})

	ep := &plan.EditPlan{
		Metadata:  plan.Metadata{SchemaVersion: 1, RefactorKind: plan.KindDelete},
		Checksums: checksums,
		Deletions: candidates,
	}

	summary := fmt.Sprintf("delete %d dead-code file(s) under %s", len(candidates), rel)
	if resolveDryRun(req.DryRun) {
		return d.previewEnvelope(summary, ep), nil
	}
	return d.executionEnvelope(ctx, ep, executor.Options{ValidateChecksums: true}, summary)
}
