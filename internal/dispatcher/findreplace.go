// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package dispatcher

import (
	"context"
	"fmt"

	"github.com/polyglot-tools/refactorcore/internal/corerr"
	"github.com/polyglot-tools/refactorcore/internal/executor"
	"github.com/polyglot-tools/refactorcore/internal/findreplace"
	"github.com/polyglot-tools/refactorcore/internal/plan"
)

// FindReplaceRequest is spec §6's Find-Replace parameter shape.
type FindReplaceRequest struct {
	Options findreplace.Options
	DryRun  *bool
}

// FindReplace runs the native matcher over the project and returns the
// write-response envelope — the only operation in this package whose
// edit source is neither the LSP client nor a filesystem primitive (spec
// §4.11's Find-Replace row).
func (d *Dispatcher) FindReplace(ctx context.Context, req FindReplaceRequest) (plan.Envelope, error) {
	rp, err := findreplace.Run(d.deps.Project, req.Options, now())
	if err != nil {
		wrapped := corerr.Wrap(corerr.KindInvalidRequest, err, "find-replace")
		return plan.Error(wrapped.Error(), nil), wrapped
	}

	summary := fmt.Sprintf("find-replace %q -> %q across %d file(s)", req.Options.Pattern, req.Options.Replacement, rp.Summary.Affected)

	ep := &plan.EditPlan{
		Metadata: rp.Metadata,
		Edits:    rp.AllEdits(),
	}

	if resolveDryRun(req.DryRun) {
		env := plan.Preview(rp, refactorPlanPaths(rp), summary)
		if d.deps.Project != nil {
			env.Diffs = executor.PreviewDiffs(d.deps.Project, ep)
		}
		return env, nil
	}

	return d.executionEnvelope(ctx, ep, executor.Options{}, summary)
}

// refactorPlanPaths lists the paths a RefactorPlan's Edits map touches,
// for the preview envelope's FilesChanged field.
func refactorPlanPaths(rp *plan.RefactorPlan) []string {
	paths := make([]string, 0, len(rp.Edits))
	for p := range rp.Edits {
		paths = append(paths, p)
	}
	return paths
}
