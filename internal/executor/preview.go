// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package executor

import (
	"sort"

	"github.com/polyglot-tools/refactorcore/internal/plan"
	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

// PreviewDiffs renders a unified-diff preview for every path ep touches,
// without writing anything to disk: it applies ep's textual edits against
// an in-memory copy of each path's current content using the same
// ordering applyPathEdits uses, then hands old/new content to
// plan.ComputeFileDiff. A path that fails to render (missing file, bad
// location) is skipped rather than failing the whole preview — the caller
// already has the structural EditPlan to fall back on.
func PreviewDiffs(project *workspace.Project, ep *plan.EditPlan) []plan.FileDiff {
	grouped := groupByPath(ep)
	paths := make([]string, 0, len(grouped))
	for p := range grouped {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var diffs []plan.FileDiff
	for _, path := range paths {
		canonical, err := workspace.Canonicalize(project.Root, path)
		if err != nil {
			continue
		}

		oldContent := ""
		if raw, err := readFile(canonical); err == nil {
			oldContent = string(raw)
		}

		newContent, ok := applyEditsInMemory(oldContent, orderEdits(grouped[path]))
		if !ok {
			continue
		}

		fd, err := plan.ComputeFileDiff(path, oldContent, newContent)
		if err != nil || fd == nil || len(fd.Hunks) == 0 {
			continue
		}
		diffs = append(diffs, *fd)
	}
	return diffs
}

// applyEditsInMemory mirrors applyPathEdits' switch over edit kinds, but
// against a string buffer instead of the filesystem, since a preview must
// never touch disk. Move/Delete edits don't have textual content to
// preview, so they're represented by their structural side effect only
// (an empty result for delete, the replacement path is not resolvable
// in-memory for move) and the diff for those paths is skipped by the
// caller when ok is false.
func applyEditsInMemory(content string, edits []plan.TextEdit) (string, bool) {
	for _, e := range edits {
		switch e.Kind {
		case plan.EditCreate:
			content = e.ReplacementText
		case plan.EditDelete:
			return "", false
		case plan.EditMove:
			return "", false
		case plan.EditReplace:
			startByte, endByte, err := locationToByteOffsets(content, e.Location)
			if err != nil {
				return "", false
			}
			content = content[:startByte] + e.ReplacementText + content[endByte:]
		}
	}
	return content, true
}
