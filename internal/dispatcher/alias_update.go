// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package dispatcher

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/polyglot-tools/refactorcore/internal/alias"
	"github.com/polyglot-tools/refactorcore/internal/plan"
)

// specifierPattern extracts the quoted specifier out of an import/require/
// use statement, mirroring internal/refupdate's own fallback extraction
// closely enough for this package's purposes without depending on its
// unexported pattern.
var specifierPattern = regexp.MustCompile(`\b(?:import|require|from|use)\b[^'"<\n]*['"<]([^'">\s]+)['">]`)

// appendAliasUpdates is the wiring point internal/refupdate/fallback.go's
// resolveSpecifier comment names explicitly ("alias resolution is the
// caller's job via langreg/alias"): it scans every project file for an
// alias-style specifier (spec §4.5's $lib/* or @/* shape) that resolves to
// oldPath, and records a DependencyUpdate rewriting it to whatever alias
// specifier now reaches newPath, leaving the byte-level rewrite to
// internal/executor's dependency-update step alongside refupdate's own
// rewrites.
func (d *Dispatcher) appendAliasUpdates(ep *plan.EditPlan, oldPath, newPath string, files []string) {
	resolver := d.deps.Aliases
	project := d.deps.Project
	if resolver == nil || len(project.Aliases) == 0 {
		return
	}

	for _, f := range files {
		if f == oldPath || f == newPath {
			continue
		}
		content, err := os.ReadFile(f)
		if err != nil {
			continue
		}

		for _, m := range specifierPattern.FindAllSubmatch(content, -1) {
			specifier := string(m[1])
			if !alias.IsPotentialAlias(specifier) {
				continue
			}
			resolved, ok := resolver.ResolveWithEntries(project.Aliases, specifier, f, project.Root)
			if !ok || (resolved != oldPath && !isUnderDir(resolved, oldPath)) {
				continue
			}

			target := newPath
			if resolved != oldPath {
				target = filepath.Join(newPath, strings.TrimPrefix(resolved, oldPath))
			}
			newSpecifier, ok := resolver.PathToAlias(target, f, project.Root)
			if !ok || newSpecifier == specifier {
				continue
			}

			ep.Dependencies = append(ep.Dependencies, plan.DependencyUpdate{
				TargetFile: f,
				OldRef:     specifier,
				NewRef:     newSpecifier,
				Category:   plan.DepImport,
			})
		}
	}
}

func isUnderDir(path, dir string) bool {
	prefix := dir + string(filepath.Separator)
	return strings.HasPrefix(path, prefix)
}
