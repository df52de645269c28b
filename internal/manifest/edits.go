// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package manifest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RewriteWorkspaceMember replaces every occurrence of oldRelPath with
// newRelPath inside the [workspace] section's members array. Matching is
// by exact quoted-string equality, so "crates/foo" only replaces that
// literal entry (not "crates/foo-bar"). Returns the number of
// replacements made.
func (d *Document) RewriteWorkspaceMember(oldRelPath, newRelPath string) int {
	span, ok := d.findSection("workspace")
	if !ok {
		return 0
	}

	arrayStart := -1
	for i := span.Start + 1; i < span.End; i++ {
		if strings.Contains(d.lines[i], "members") && strings.Contains(d.lines[i], "=") {
			arrayStart = i
			break
		}
	}
	if arrayStart == -1 {
		return 0
	}

	arrayEnd := arrayStart
	for i := arrayStart; i < span.End; i++ {
		if strings.Contains(d.lines[i], "]") {
			arrayEnd = i
			break
		}
	}

	count := 0
	oldQuoted := `"` + oldRelPath + `"`
	newQuoted := `"` + escapeTOMLString(newRelPath) + `"`
	for i := arrayStart; i <= arrayEnd && i < len(d.lines); i++ {
		if strings.Contains(d.lines[i], oldQuoted) {
			d.lines[i] = strings.ReplaceAll(d.lines[i], oldQuoted, newQuoted)
			count++
		}
	}
	return count
}

// SetDependencyPath rewrites the `path = "..."` value for key within
// section (either a `key = { path = "...", ... }` inline table on one
// line, or a `[section.key]` nested table whose own `path = "..."` line
// follows). Returns true if a path value was found and rewritten.
func (d *Document) SetDependencyPath(section, key, newPath string) bool {
	span, ok := d.findSection(section)
	if ok {
		if idx := d.findKeyLine(span, key); idx != -1 {
			if d.rewritePathOnLine(idx, newPath) {
				return true
			}
		}
	}

	// Nested-table form: "[section.key]" with its own path = "..." line.
	nestedSpan, ok := d.findSection(section + "." + key)
	if !ok {
		return false
	}
	for i := nestedSpan.Start + 1; i < nestedSpan.End; i++ {
		if d.rewritePathOnLine(i, newPath) {
			return true
		}
	}
	return false
}

// AddDependencyLine appends `key = value` as the last line of section,
// unless key already exists there, in which case the existing entry wins
// untouched (spec §4.9 step 4: "prefer the target's version"). Creates
// the section (appended at end of file) if it does not yet exist.
// Returns false if key already existed (no-op).
func (d *Document) AddDependencyLine(section, key, value string) bool {
	if d.HasKey(section, key) {
		return false
	}

	span, ok := d.findSection(section)
	if !ok {
		if len(d.lines) > 0 && strings.TrimSpace(d.lines[len(d.lines)-1]) != "" {
			d.lines = append(d.lines, "")
		}
		d.lines = append(d.lines, fmt.Sprintf("[%s]", section))
		d.lines = append(d.lines, fmt.Sprintf("%s = %s", key, value))
		return true
	}

	insertAt := span.End
	newLine := fmt.Sprintf("%s = %s", key, value)
	d.lines = append(d.lines[:insertAt], append([]string{newLine}, d.lines[insertAt:]...)...)
	return true
}

// RewritePathsRelativeTo recomputes every `path = "..."` value across the
// standard path-bearing sections — dependency tables, the workspace-
// shared dependency table, patch/override tables, and target-conditional
// dependency tables — so it stays correct when the manifest's own
// directory moves from oldManifestDir to newManifestDir (spec §4.10:
// "recomputed relative to the manifest's own directory"). Absolute paths
// and registry entries (no path key at all) are left untouched.
func (d *Document) RewritePathsRelativeTo(oldManifestDir, newManifestDir string) (int, error) {
	sections := pathBearingSections(d.allSectionNames())

	count := 0
	for _, name := range sections {
		span, ok := d.findSection(name)
		if !ok {
			continue
		}
		for i := span.Start + 1; i < span.End; i++ {
			m := pathKeyPattern.FindStringSubmatch(d.lines[i])
			if m == nil {
				continue
			}
			oldRel := m[2]
			if filepath.IsAbs(oldRel) {
				continue // absolute paths are left unchanged
			}

			absTarget := filepath.Join(oldManifestDir, oldRel)
			newRel, err := filepath.Rel(newManifestDir, absTarget)
			if err != nil {
				return count, fmt.Errorf("recomputing relative path for %s: %w", oldRel, err)
			}
			newRel = filepath.ToSlash(newRel)

			if d.rewritePathOnLine(i, newRel) {
				count++
			}
		}
	}
	return count, nil
}

// Dependencies returns every directly-assigned "key = value" pair within
// section, keyed by dependency name, value text exactly as written
// (including surrounding quotes/braces). Nested `[section.key]` tables
// are not included here; callers that need those iterate
// allSectionNames() for prefixes of "section.".
func (d *Document) Dependencies(section string) map[string]string {
	span, ok := d.findSection(section)
	if !ok {
		return nil
	}
	out := make(map[string]string)
	for i := span.Start + 1; i < span.End; i++ {
		m := keyLinePattern.FindStringSubmatch(d.lines[i])
		if m == nil {
			continue
		}
		out[m[2]] = strings.TrimSpace(m[4])
	}
	return out
}

// pathBearingSections filters allNames down to the sections spec §4.10
// lists as path-bearing: [dependencies], [dev-dependencies],
// [build-dependencies], [workspace.dependencies], [patch.*], and
// [target.'cfg'.dependencies].
func pathBearingSections(allNames []string) []string {
	var out []string
	for _, name := range allNames {
		switch {
		case name == "dependencies", name == "dev-dependencies", name == "build-dependencies":
			out = append(out, name)
		case name == "workspace.dependencies":
			out = append(out, name)
		case strings.HasPrefix(name, "patch."):
			out = append(out, name)
		case strings.HasPrefix(name, "target.") && strings.HasSuffix(name, ".dependencies"):
			out = append(out, name)
		case strings.HasPrefix(name, "dependencies.") || strings.HasPrefix(name, "dev-dependencies.") || strings.HasPrefix(name, "build-dependencies."):
			out = append(out, name)
		}
	}
	return out
}
