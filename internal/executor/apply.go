// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/polyglot-tools/refactorcore/internal/plan"
	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

// applyPlan runs step 2 (edit application) and step 3 (dependency
// updates) of spec §4.8. A failure applying one path's edits is recorded
// as a diagnostic and that path is skipped; siblings still apply, matching
// the plan's overall "partial failure" taxonomy (corerr.KindPartialFailure)
// rather than aborting the whole plan on one bad path.
func applyPlan(ctx context.Context, project *workspace.Project, deps Deps, ep *plan.EditPlan, res *Result) error {
	if err := applyDeletions(ctx, project, deps, ep, res); err != nil {
		return err
	}

	grouped := groupByPath(ep)
	paths := make([]string, 0, len(grouped))
	for p := range grouped {
		paths = append(paths, p)
	}
	// Paths carrying a move go first, so a move's destination exists before
	// the textual edits grouped under that destination path are applied.
	hasMove := func(p string) bool {
		for _, e := range grouped[p] {
			if e.Kind == plan.EditMove {
				return true
			}
		}
		return false
	}
	sort.Slice(paths, func(i, j int) bool {
		if mi, mj := hasMove(paths[i]), hasMove(paths[j]); mi != mj {
			return mi
		}
		return paths[i] < paths[j]
	})

	var failures int
	for _, path := range paths {
		if err := applyPathEdits(ctx, project, deps, path, grouped[path], res); err != nil {
			failures++
			res.addDiagnostic(plan.SeverityError, fmt.Sprintf("applying edits to %s: %v", path, err))
			logStep("apply-edits", path, err)
			continue
		}
		res.FilesChanged = append(res.FilesChanged, path)
	}

	applyDependencyUpdates(ctx, project, deps, ep, res)

	if failures > 0 && failures == len(paths) {
		return fmt.Errorf("all %d path(s) failed to apply", failures)
	}
	return nil
}

// groupByPath buckets ep.Edits by target path, falling back to
// ep.SourceFile for edits that never got a TargetPath assigned (a
// single-file EditPlan whose edits all target the same file).
func groupByPath(ep *plan.EditPlan) map[string][]plan.TextEdit {
	out := make(map[string][]plan.TextEdit)
	for _, e := range ep.Edits {
		path := e.TargetPath
		if path == "" {
			path = ep.SourceFile
		}
		out[path] = append(out[path], e)
	}
	return out
}

// applyPathEdits acquires path's write lock, applies every edit destined
// for it in (priority descending, then line descending, then column
// descending) order — spec §4.8 step 2 — and writes the result. Structural
// edits (create/delete/move) run before textual edits in the same batch,
// by construction of orderEdits below; applyPlan applies paths carrying a
// move before the others, so a move's destination exists before the
// textual edits addressing it.
func applyPathEdits(ctx context.Context, project *workspace.Project, deps Deps, path string, edits []plan.TextEdit, res *Result) error {
	canonical, err := workspace.Canonicalize(project.Root, path)
	if err != nil {
		return err
	}

	handle, err := deps.Locks.Lock(ctx, canonical)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	defer handle.Release()

	ordered := orderEdits(edits)

	for _, e := range ordered {
		switch e.Kind {
		case plan.EditCreate:
			if err := applyCreate(canonical, e); err != nil {
				return err
			}
		case plan.EditDelete:
			if err := os.Remove(canonical); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("deleting %s: %w", canonical, err)
			}
			invalidateCache(deps, canonical)
			return nil
		case plan.EditMove:
			if err := applyMove(canonical, e); err != nil {
				return err
			}
			canonical = e.ReplacementText
		case plan.EditReplace:
			if err := applyReplace(canonical, e); err != nil {
				return err
			}
		}
	}

	invalidateCache(deps, canonical)
	return nil
}

// orderEdits sorts a copy of edits with structural edits (create/delete/
// move) ahead of textual replacements, then by (Priority descending,
// Location.StartLine descending, Location.StartColumn descending), the
// order spec §4.8 step 2 requires so that later edits in the list never
// invalidate the offsets of earlier ones when applied in sequence against
// the same in-memory buffer.
func orderEdits(edits []plan.TextEdit) []plan.TextEdit {
	ordered := make([]plan.TextEdit, len(edits))
	copy(ordered, edits)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if sa, sb := a.Kind != plan.EditReplace, b.Kind != plan.EditReplace; sa != sb {
			return sa
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Location.StartLine != b.Location.StartLine {
			return a.Location.StartLine > b.Location.StartLine
		}
		return a.Location.StartColumn > b.Location.StartColumn
	})
	return ordered
}

func applyCreate(path string, e plan.TextEdit) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(e.ReplacementText), 0o644); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return nil
}

func applyMove(path string, e plan.TextEdit) error {
	dest := e.ReplacementText
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", dest, err)
	}
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("moving %s to %s: %w", path, dest, err)
	}
	return nil
}

// applyReplace splices e's replacement text into path's content at e's
// character-indexed Location. Character offsets are converted to byte
// offsets against the file's current UTF-8 content immediately before the
// splice, per spec §3: "byte conversion happens only at apply time."
func applyReplace(path string, e plan.TextEdit) error {
	content, err := readFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	startByte, endByte, err := locationToByteOffsets(string(content), e.Location)
	if err != nil {
		return fmt.Errorf("locating edit in %s: %w", path, err)
	}

	text := string(content)
	updated := text[:startByte] + e.ReplacementText + text[endByte:]

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// locationToByteOffsets converts a Location's (line, column) pairs — both
// 0-indexed, columns in characters, not bytes — into byte offsets into
// content.
func locationToByteOffsets(content string, loc plan.Location) (start, end int, err error) {
	lines := strings.SplitAfter(content, "\n")

	offsetOf := func(line, col int) (int, error) {
		if line < 0 || line >= len(lines) {
			return 0, fmt.Errorf("line %d out of range (file has %d lines)", line, len(lines))
		}
		lineStart := 0
		for i := 0; i < line; i++ {
			lineStart += len(lines[i])
		}
		lineText := strings.TrimSuffix(strings.TrimSuffix(lines[line], "\n"), "\r")
		runes := []rune(lineText)
		if col < 0 || col > len(runes) {
			return 0, fmt.Errorf("column %d out of range on line %d (%d chars)", col, line, len(runes))
		}
		return lineStart + len(string(runes[:col])), nil
	}

	start, err = offsetOf(loc.StartLine, loc.StartColumn)
	if err != nil {
		return 0, 0, err
	}
	end, err = offsetOf(loc.EndLine, loc.EndColumn)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// applyDeletions performs ep.Deletions, populated only for KindDelete
// plans. Each target's own lock is acquired; a missing file/directory is
// not an error (the deletion is idempotent).
func applyDeletions(ctx context.Context, project *workspace.Project, deps Deps, ep *plan.EditPlan, res *Result) error {
	for _, d := range ep.Deletions {
		canonical, err := workspace.Canonicalize(project.Root, d.Path)
		if err != nil {
			res.addDiagnostic(plan.SeverityError, fmt.Sprintf("deleting %s: %v", d.Path, err))
			continue
		}

		handle, err := deps.Locks.Lock(ctx, canonical)
		if err != nil {
			res.addDiagnostic(plan.SeverityError, fmt.Sprintf("deleting %s: acquiring lock: %v", d.Path, err))
			continue
		}

		var delErr error
		if d.Kind == plan.DeleteDirectory {
			delErr = os.RemoveAll(canonical)
		} else {
			delErr = os.Remove(canonical)
			if os.IsNotExist(delErr) {
				delErr = nil
			}
		}
		handle.Release()

		if delErr != nil {
			res.addDiagnostic(plan.SeverityError, fmt.Sprintf("deleting %s: %v", d.Path, delErr))
			logStep("delete", canonical, delErr)
			continue
		}

		invalidateCache(deps, canonical)
		res.FilesChanged = append(res.FilesChanged, canonical)
	}
	return nil
}

// applyDependencyUpdates is spec §4.8 step 3: simple textual replacement,
// one file at a time, under per-file locks. A file not containing the old
// reference is silently skipped.
func applyDependencyUpdates(ctx context.Context, project *workspace.Project, deps Deps, ep *plan.EditPlan, res *Result) {
	for _, d := range ep.Dependencies {
		canonical, err := workspace.Canonicalize(project.Root, d.TargetFile)
		if err != nil {
			res.addDiagnostic(plan.SeverityError, fmt.Sprintf("dependency update on %s: %v", d.TargetFile, err))
			continue
		}

		handle, err := deps.Locks.Lock(ctx, canonical)
		if err != nil {
			res.addDiagnostic(plan.SeverityError, fmt.Sprintf("dependency update on %s: acquiring lock: %v", d.TargetFile, err))
			continue
		}

		changed, err := rewriteDependencyReference(canonical, d.OldRef, d.NewRef)
		handle.Release()

		if err != nil {
			res.addDiagnostic(plan.SeverityError, fmt.Sprintf("dependency update on %s: %v", d.TargetFile, err))
			logStep("dependency-update", canonical, err)
			continue
		}
		if changed {
			invalidateCache(deps, canonical)
			res.FilesChanged = append(res.FilesChanged, canonical)
		}
	}
}

func rewriteDependencyReference(path, oldRef, newRef string) (bool, error) {
	content, err := readFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	text := string(content)
	if !strings.Contains(text, oldRef) {
		return false, nil // silently skipped, per spec §4.8 step 3
	}

	updated := strings.ReplaceAll(text, oldRef, newRef)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
