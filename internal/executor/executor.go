// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package executor implements the Plan Executor: applies an EditPlan
// transactionally against the workspace — checksum drift check, locked
// per-path edit application, dependency-update rewrites, Consolidation
// Post-Processing, and optional allow-listed validation with rollback
// (spec §4.8).
//
// # Description
//
// Execute drives the plan through the state machine spec §4.8 defines:
// Planned -> Validating -> Executing -> PostProcessing -> Validated ->
// Success, with ExecutionFailed / PostProcessFailed / ValidationFailed
// branches. Every step that can fail independently (a single path's edit
// application, a single dependency rewrite, a consolidation step) is
// recorded as a diagnostic rather than aborting siblings, matching spec
// §4.9's "logged but does not abort subsequent steps" discipline and
// internal/refupdate's non-fatal-per-item fan-out.
//
// # Thread Safety
//
// Execute is safe to call concurrently for distinct plans; per-path
// mutual exclusion is delegated to the shared oplock.Manager passed in.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/polyglot-tools/refactorcore/internal/consolidate"
	"github.com/polyglot-tools/refactorcore/internal/corerr"
	"github.com/polyglot-tools/refactorcore/internal/importcache"
	"github.com/polyglot-tools/refactorcore/internal/oplock"
	"github.com/polyglot-tools/refactorcore/internal/plan"
	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

// State is one node of the plan execution state machine (spec §4.8).
type State string

const (
	StatePlanned          State = "planned"
	StateValidatingChecks State = "validating"
	StateExecuting        State = "executing"
	StatePostProcessing   State = "post_processing"
	StateValidated        State = "validated"
	StateSuccess          State = "success"

	StateExecutionFailed    State = "execution_failed"
	StatePostProcessFailed  State = "post_process_failed"
	StateValidationFailed   State = "validation_failed"
	StateRolledBack         State = "rolled_back"
	StateReportedOnly       State = "reported_only"
	StateAwaitingDecision   State = "awaiting_user_decision"
)

// OnValidationFailure selects what happens when the configured validation
// command exits non-zero (spec §4.8 step 5).
type OnValidationFailure string

const (
	// ValidationReport attaches the command's stderr to the response and
	// leaves the applied changes in place.
	ValidationReport OnValidationFailure = "report"

	// ValidationRollback runs `git reset --hard HEAD` in the project root
	// and reports the outcome.
	ValidationRollback OnValidationFailure = "rollback"

	// ValidationInteractive responds with a structured failure asking the
	// caller to decide.
	ValidationInteractive OnValidationFailure = "interactive"
)

// Options configures one Execute call (spec §4.8 "execution options").
type Options struct {
	// ValidateChecksums, when true, compares EditPlan.Checksums against
	// the current on-disk content of every referenced path before
	// applying anything.
	ValidateChecksums bool

	// Validate, when true and Project.ValidationCommand is non-empty, runs
	// the validation command after the edit and post-processing steps
	// succeed.
	Validate bool

	// OnValidationFailure selects the response to a failed validation run.
	// Ignored when Validate is false.
	OnValidationFailure OnValidationFailure

	// DryRun, when true, skips every filesystem mutation and returns a
	// Result describing what would have happened. The dispatcher is
	// expected to handle dry-run at a higher level (serialising the plan
	// itself into the envelope); this flag exists so Execute can also be
	// called directly in a dry-run mode for tests and CLI --dry-run runs
	// that still want state-machine-shaped output.
	DryRun bool
}

// Result is the outcome of one Execute call.
type Result struct {
	State State

	FilesChanged []string
	Diagnostics  []plan.Diagnostic

	// ConsolidationResult is non-nil when the plan carried consolidation
	// metadata and the post-processor ran.
	ConsolidationResult *consolidate.Result

	// ValidationOutput is the validation command's combined output, when
	// one ran.
	ValidationOutput string
	RolledBack       bool
}

func (r *Result) addDiagnostic(severity plan.Severity, message string) {
	r.Diagnostics = append(r.Diagnostics, plan.Diagnostic{Severity: severity, Message: message})
}

// Deps bundles the shared infrastructure Execute needs, all owned by the
// caller and safe to reuse across many Execute calls. Locking goes
// directly through the shared oplock.Manager (spec §4.8 step 2: "acquire
// its write lock"); the Operation Queue (internal/queue) is the entry
// point callers use further upstream to serialise and batch requests
// before a plan ever reaches Execute, not a layer Execute itself drives.
type Deps struct {
	Locks *oplock.Manager
	Cache *importcache.Cache // optional; nil disables cache invalidation
}

// Execute applies ep against project according to opts, returning the
// final Result regardless of which state the plan landed in — callers
// inspect Result.State rather than relying solely on the returned error.
// A non-nil error indicates the plan could not even begin (e.g. checksum
// drift). A path that fails during apply is reported as a diagnostic and
// the plan still ends in StateSuccess; only when every path fails does the
// State become StateExecutionFailed, again with a nil error.
func Execute(ctx context.Context, project *workspace.Project, deps Deps, ep *plan.EditPlan, opts Options) (*Result, error) {
	res := &Result{State: StatePlanned}

	if opts.ValidateChecksums {
		res.State = StateValidatingChecks
		if drifted := checkDrift(ep); len(drifted) > 0 {
			return res, corerr.New(corerr.KindChecksumDrift, fmt.Sprintf("checksum drift on %d file(s)", len(drifted))).WithPaths(drifted...)
		}
	}

	if opts.DryRun {
		res.State = StateValidated
		return res, nil
	}

	res.State = StateExecuting
	if err := applyPlan(ctx, project, deps, ep, res); err != nil {
		res.State = StateExecutionFailed
		res.addDiagnostic(plan.SeverityError, err.Error())
		return res, nil
	}

	if ep.Metadata.Consolidation != nil {
		res.State = StatePostProcessing
		copts := consolidate.DefaultOptions(ep.Metadata.Consolidation)
		cres := consolidate.Run(project.Root, copts)
		res.ConsolidationResult = cres
		for _, w := range cres.Warnings {
			res.addDiagnostic(plan.SeverityWarning, w.Message)
		}
	}

	res.State = StateValidated

	if !opts.Validate || project.ValidationCommand == "" {
		res.State = StateSuccess
		return res, nil
	}

	output, valErr := runValidation(ctx, project)
	res.ValidationOutput = output
	if valErr == nil {
		res.State = StateSuccess
		return res, nil
	}

	res.State = StateValidationFailed
	res.addDiagnostic(plan.SeverityError, valErr.Error())

	switch opts.OnValidationFailure {
	case ValidationRollback:
		if err := rollback(ctx, project); err != nil {
			res.addDiagnostic(plan.SeverityError, "rollback failed: "+err.Error())
			return res, nil
		}
		res.RolledBack = true
		res.State = StateRolledBack
	case ValidationInteractive:
		res.State = StateAwaitingDecision
	default:
		res.State = StateReportedOnly
	}
	return res, nil
}

// checkDrift compares ep.Checksums against current file content for every
// referenced path that still exists, returning the paths whose checksum no
// longer matches (spec §4.8 step 1). A path recorded in Checksums that no
// longer exists on disk is not drift — it is the expected state for a path
// this plan is about to create or whose deletion it is about to perform.
func checkDrift(ep *plan.EditPlan) []string {
	var drifted []string
	for path, want := range ep.Checksums {
		got, err := readChecksum(path)
		if err != nil {
			continue
		}
		if got != want {
			drifted = append(drifted, path)
		}
	}
	return drifted
}

// readChecksum reads path and returns its content checksum, or an error if
// it does not exist or cannot be read.
func readChecksum(path string) (string, error) {
	content, err := readFile(path)
	if err != nil {
		return "", err
	}
	return plan.Checksum(content), nil
}

func invalidateCache(deps Deps, path string) {
	if deps.Cache == nil {
		return
	}
	deps.Cache.Remove(filepath.Clean(path))
}

func logStep(step, path string, err error) {
	if err != nil {
		slog.Warn("executor: step failed", "step", step, "path", path, "error", err)
		return
	}
	slog.Debug("executor: step succeeded", "step", step, "path", path)
}
