// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package planconv implements the Plan Converter: translates an LSP
// WorkspaceEdit (plus rename metadata) into the internal plan.EditPlan
// with stable ordering (spec §4.7).
package planconv

import (
	"sort"

	"github.com/polyglot-tools/refactorcore/internal/lsp"
	"github.com/polyglot-tools/refactorcore/internal/plan"
)

// Options configures one conversion.
type Options struct {
	// RefactorKind is recorded on the resulting EditPlan's metadata.
	RefactorKind plan.Kind

	// Language is the detected language tag recorded on metadata.
	Language string

	// IsConsolidation flags that edit came from a Rename plan marked as
	// a package consolidation; when true, Convert also runs
	// DetectConsolidation and attaches the result to the metadata.
	IsConsolidation bool
}

// Convert turns edit into an EditPlan. Both of WorkspaceEdit's shapes are
// accepted: the legacy path->edits Changes map, and the ordered
// DocumentChanges sequence that can interleave resource operations with
// per-document text edits. A WorkspaceEdit populating both is invalid per
// the LSP spec; Convert prefers DocumentChanges when both are present,
// since it is strictly more expressive.
func Convert(edit *lsp.WorkspaceEdit, opts Options) (*plan.EditPlan, error) {
	ep := &plan.EditPlan{
		Metadata: plan.Metadata{
			SchemaVersion: 1,
			RefactorKind:  opts.RefactorKind,
			Language:      opts.Language,
		},
	}

	if len(edit.DocumentChanges) > 0 {
		edits, err := convertDocumentChanges(edit.DocumentChanges)
		if err != nil {
			return nil, err
		}
		ep.Edits = edits
	} else {
		ep.Edits = convertChangesMap(edit.Changes)
	}

	if opts.IsConsolidation {
		meta, err := DetectConsolidation(edit.DocumentChanges)
		if err != nil {
			return nil, err
		}
		ep.Metadata.Consolidation = meta
	}

	return ep, nil
}

// convertChangesMap handles the older Changes: map[uri][]TextEdit shape.
// Each per-document edit list gets its own descending-priority run, same
// as convertDocumentChanges, iterated in URI-sorted order so conversion
// is deterministic.
func convertChangesMap(changes map[string][]lsp.TextEdit) []plan.TextEdit {
	uris := make([]string, 0, len(changes))
	for uri := range changes {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	var out []plan.TextEdit
	for _, uri := range uris {
		out = append(out, textEditsWithDescendingPriority(uri, changes[uri])...)
	}
	return out
}

// convertDocumentChanges handles the ordered DocumentChanges sequence,
// translating each resource operation per spec §4.7's table (Create ->
// Create at (0,0,0,0); Rename -> Move whose replacement text is the
// destination path; Delete -> Delete at (0,0,0,0)) and each
// TextDocumentEdit's edit list into a descending-priority run.
func convertDocumentChanges(changes []lsp.DocumentChange) ([]plan.TextEdit, error) {
	var out []plan.TextEdit
	for _, change := range changes {
		switch {
		case change.ResourceOp != nil:
			out = append(out, resourceOpToTextEdit(*change.ResourceOp))
		case change.TextDocumentEdit != nil:
			uri := change.TextDocumentEdit.TextDocument.URI
			out = append(out, textEditsWithDescendingPriority(uri, change.TextDocumentEdit.Edits)...)
		}
	}
	return out, nil
}

func resourceOpToTextEdit(op lsp.ResourceOp) plan.TextEdit {
	switch op.Kind {
	case lsp.ResourceOpCreate:
		return plan.TextEdit{
			TargetPath: lsp.URIToPath(op.URI),
			Kind:       plan.EditCreate,
			Location:   plan.Zero,
		}
	case lsp.ResourceOpRename:
		return plan.TextEdit{
			TargetPath:      lsp.URIToPath(op.OldURI),
			Kind:            plan.EditMove,
			Location:        plan.Zero,
			ReplacementText: lsp.URIToPath(op.NewURI),
		}
	case lsp.ResourceOpDelete:
		return plan.TextEdit{
			TargetPath: lsp.URIToPath(op.URI),
			Kind:       plan.EditDelete,
			Location:   plan.Zero,
		}
	default:
		return plan.TextEdit{}
	}
}

// textEditsWithDescendingPriority assigns the first edit priority N, the
// second N-1, and so on (N = len(edits)), so that when the executor sorts
// a path's edits by priority descending, the server's original ordering
// is preserved (spec §4.7 "Ordering").
func textEditsWithDescendingPriority(uri string, edits []lsp.TextEdit) []plan.TextEdit {
	path := lsp.URIToPath(uri)
	n := len(edits)
	out := make([]plan.TextEdit, n)
	for i, e := range edits {
		out[i] = plan.TextEdit{
			TargetPath:      path,
			Kind:            plan.EditReplace,
			Location:        locationFromRange(e.Range),
			ReplacementText: e.NewText,
			Priority:        n - i,
		}
	}
	return out
}

func locationFromRange(r lsp.Range) plan.Location {
	return plan.Location{
		StartLine:   r.Start.Line,
		StartColumn: r.Start.Character,
		EndLine:     r.End.Line,
		EndColumn:   r.End.Character,
	}
}
