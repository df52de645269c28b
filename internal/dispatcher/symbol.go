// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package dispatcher

import (
	"context"
	"fmt"

	"github.com/polyglot-tools/refactorcore/internal/corerr"
	"github.com/polyglot-tools/refactorcore/internal/executor"
	"github.com/polyglot-tools/refactorcore/internal/lsp"
	"github.com/polyglot-tools/refactorcore/internal/planconv"
	"github.com/polyglot-tools/refactorcore/internal/plan"
)

// SymbolRequest is the shared parameter shape for the four refactor kinds
// that exist only as LSP requests against a symbol position (spec
// §4.11's Extract/Inline/Reorder/Transform row: "LSP only").
type SymbolRequest struct {
	Target TargetRef
	Args   map[string]any
	DryRun *bool
}

// symbolOp is one of the four LSP client methods sharing SymbolRequest's
// shape.
type symbolOp func(ctx context.Context, path string, line, character int, args map[string]any) (*lsp.WorkspaceEdit, error)

// Extract requests an extract-variable/function/constant refactor (spec
// §4.11).
func (d *Dispatcher) Extract(ctx context.Context, req SymbolRequest) (plan.Envelope, error) {
	return d.dispatchSymbolOp(ctx, "extract", plan.KindExtract, lspOp(d, "extract"), req)
}

// Inline requests an inline-variable/function refactor (spec §4.11).
func (d *Dispatcher) Inline(ctx context.Context, req SymbolRequest) (plan.Envelope, error) {
	return d.dispatchSymbolOp(ctx, "inline", plan.KindInline, lspOp(d, "inline"), req)
}

// Reorder requests a parameter/member reordering refactor (spec §4.11).
func (d *Dispatcher) Reorder(ctx context.Context, req SymbolRequest) (plan.Envelope, error) {
	return d.dispatchSymbolOp(ctx, "reorder", plan.KindReorder, lspOp(d, "reorder"), req)
}

// Transform requests a structural code transform (spec §4.11).
func (d *Dispatcher) Transform(ctx context.Context, req SymbolRequest) (plan.Envelope, error) {
	return d.dispatchSymbolOp(ctx, "transform", plan.KindTransform, lspOp(d, "transform"), req)
}

// lspOp resolves name to the corresponding method on d.deps.LSP, bound at
// call time so a nil client is only diagnosed once, inside
// dispatchSymbolOp, rather than by four near-identical nil checks.
func lspOp(d *Dispatcher, name string) symbolOp {
	if d.deps.LSP == nil {
		return nil
	}
	switch name {
	case "extract":
		return d.deps.LSP.Extract
	case "inline":
		return d.deps.LSP.Inline
	case "reorder":
		return d.deps.LSP.Reorder
	case "transform":
		return d.deps.LSP.Transform
	default:
		return nil
	}
}

// dispatchSymbolOp is the body shared by Extract/Inline/Reorder/Transform:
// wait for indexing, issue the request, convert the resulting
// WorkspaceEdit, and return the write-response envelope.
func (d *Dispatcher) dispatchSymbolOp(ctx context.Context, name string, kind plan.Kind, op symbolOp, req SymbolRequest) (plan.Envelope, error) {
	if op == nil {
		err := corerr.Newf(corerr.KindNotSupported, "%s: no LSP client configured", name)
		return plan.Error(err.Error(), nil), err
	}
	if req.Target.Kind != TargetSymbol {
		err := corerr.Newf(corerr.KindInvalidRequest, "%s: target must be a symbol", name)
		return plan.Error(err.Error(), nil), err
	}
	if err := d.waitForIndexProgress(ctx); err != nil {
		wrapped := corerr.Wrap(corerr.KindLspError, err, name+": waiting for workspace indexing")
		return plan.Error(wrapped.Error(), nil), wrapped
	}

	edit, err := op(ctx, req.Target.Path, req.Target.Line, req.Target.Character, req.Args)
	if err != nil {
		wrapped := corerr.Wrap(corerr.KindLspError, err, name+": LSP request failed")
		return plan.Error(wrapped.Error(), nil), wrapped
	}

	ep, err := planconv.Convert(edit, planconv.Options{
		RefactorKind: kind,
		Language:     languageFor(d.deps.Registry, req.Target.Path),
	})
	if err != nil {
		wrapped := corerr.Wrap(corerr.KindInternal, err, name+": converting workspace edit")
		return plan.Error(wrapped.Error(), nil), wrapped
	}

	summary := fmt.Sprintf("%s at %s:%d", name, req.Target.Path, req.Target.Line)
	if resolveDryRun(req.DryRun) {
		return d.previewEnvelope(summary, ep), nil
	}
	return d.executionEnvelope(ctx, ep, executor.Options{}, summary)
}
