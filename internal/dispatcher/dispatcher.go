// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package dispatcher implements the Refactor Dispatcher (spec §4.11): the
// operation table mapping Rename/Move/Delete/Extract/Inline/Reorder/
// Transform/Find-Replace to their edit source (LSP, filesystem + alias
// resolver, or the native find-replace matcher), and the write-response
// envelope every tool call returns.
//
// # Description
//
// Every operation takes the same shape: build (or fetch, for LSP-sourced
// kinds) a plan, optionally run it through internal/executor, and wrap the
// result in a plan.Envelope. dry_run defaults to true for every write-type
// tool (spec §9's resolution of the corresponding Open Question): on
// dry_run, Changes carries the unexecuted plan; on dry_run=false, it
// carries the executor's Result.
//
// # Thread Safety
//
// A Dispatcher's methods may be called concurrently; all shared state
// (locks, cache, queue depth) lives in the components it wires together,
// each already safe for concurrent use.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/polyglot-tools/refactorcore/internal/alias"
	"github.com/polyglot-tools/refactorcore/internal/executor"
	"github.com/polyglot-tools/refactorcore/internal/importcache"
	"github.com/polyglot-tools/refactorcore/internal/langreg"
	"github.com/polyglot-tools/refactorcore/internal/lsp"
	"github.com/polyglot-tools/refactorcore/internal/oplock"
	"github.com/polyglot-tools/refactorcore/internal/plan"
	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

// TargetKind classifies what a refactor operation addresses (spec §4.11's
// "Target kinds" column).
type TargetKind string

const (
	TargetSymbol        TargetKind = "symbol"
	TargetFile          TargetKind = "file"
	TargetDirectory     TargetKind = "directory"
	TargetDeadCodeBatch TargetKind = "dead-code-batch"
)

// TargetRef names what a refactor operation addresses: a path, and — for a
// symbol target — the zero-based position the symbol sits at.
type TargetRef struct {
	Kind      TargetKind
	Path      string
	Line      int
	Character int
	// SymbolName disambiguates among several bindings at one position,
	// e.g. which name a destructuring import line introduces (spec
	// §4.11's Delete row).
	SymbolName string
}

// IndexProgressToken is the progress token the workspace-indexing
// notification uses by convention; Rename/Extract/Inline/Move/Reorder/
// Transform wait on it before issuing an LSP request (spec §4.12).
const IndexProgressToken = "workspace-index"

// Deps bundles every collaborator a Dispatcher needs. Project is always
// required, and Locks is required by any operation run with dry_run=false
// (the executor locks each path through it). The other fields are
// optional: a Dispatcher built for filesystem-only operations
// (Find-Replace, a no-manifest file tree) can leave LSP/Registry/Aliases
// nil, and the corresponding operations simply aren't callable.
type Deps struct {
	Project *workspace.Project

	LSP         lsp.Client
	Registry    *langreg.Registry
	Aliases     *alias.Resolver
	Cache       *importcache.Cache
	Locks       *oplock.Manager
	CompatTable map[string][]string
}

// Dispatcher routes refactor requests to their edit source and returns a
// write-response envelope.
type Dispatcher struct {
	deps Deps
}

// New returns a Dispatcher wired with deps.
func New(deps Deps) *Dispatcher {
	if deps.CompatTable == nil {
		deps.CompatTable = langreg.DefaultCompatibilityTable()
	}
	return &Dispatcher{deps: deps}
}

// waitForIndexProgress blocks until IndexProgressToken reaches a terminal
// state, or the LSP request timeout elapses (spec §4.12). A Dispatcher
// with no LSP client configured skips the wait entirely — there is no
// indexing progress to wait for without a server.
func (d *Dispatcher) waitForIndexProgress(ctx context.Context) error {
	if d.deps.LSP == nil {
		return nil
	}
	tracker := d.deps.LSP.Progress()
	if tracker == nil {
		return nil
	}
	if outcome := tracker.WaitForCompletion(ctx, IndexProgressToken, lsp.DefaultRequestTimeout); outcome == lsp.WaitTimeout {
		return fmt.Errorf("timed out waiting for workspace indexing to complete")
	}
	return nil
}

// executionEnvelope runs ep through internal/executor and builds the
// resulting envelope, folding executor diagnostics and consolidation
// warnings into the response (shared by every write-type operation once a
// plan.EditPlan has been assembled).
func (d *Dispatcher) executionEnvelope(ctx context.Context, ep *plan.EditPlan, opts executor.Options, summary string) (plan.Envelope, error) {
	execDeps := executor.Deps{Locks: d.deps.Locks, Cache: d.deps.Cache}
	result, err := executor.Execute(ctx, d.deps.Project, execDeps, ep, opts)
	if result == nil {
		msg := summary
		if err != nil {
			msg = summary + ": " + err.Error()
		}
		return plan.Error(msg, nil), err
	}

	if err != nil {
		return plan.Envelope{
			Status:       plan.StatusError,
			Summary:      summary + ": " + err.Error(),
			FilesChanged: result.FilesChanged,
			Diagnostics:  result.Diagnostics,
			Changes:      result,
		}, err
	}
	return plan.Success(result, result.FilesChanged, summary, result.Diagnostics), nil
}

// now is the timestamp stamped on find-replace plans. The plans built for
// rename/move/delete, and the LSP-sourced plans from planconv.Convert, are
// not stamped: their Metadata.CreatedAt is left as the zero time.
func now() time.Time { return time.Now() }
