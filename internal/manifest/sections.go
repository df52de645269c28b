// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package manifest

import (
	"regexp"
	"strings"
)

// sectionHeaderPattern matches a TOML table header line, e.g. "[dependencies]",
// "[target.'cfg(unix)'.dependencies]", "[patch.crates-io]". The captured
// group is the header's interior (without brackets), compared verbatim
// against the section name callers ask for.
var sectionHeaderPattern = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*$`)

// sectionSpan is the line range [Start, End) of one section, Start being
// the header line itself.
type sectionSpan struct {
	Start int
	End   int
}

// findSection returns the span of the first top-level table header whose
// interior text equals name exactly (e.g. "dependencies",
// "workspace.dependencies", `target.'cfg(unix)'.dependencies`).
func (d *Document) findSection(name string) (sectionSpan, bool) {
	for i, line := range d.lines {
		m := sectionHeaderPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if m[1] == name {
			end := len(d.lines)
			for j := i + 1; j < len(d.lines); j++ {
				if sectionHeaderPattern.MatchString(d.lines[j]) {
					end = j
					break
				}
			}
			return sectionSpan{Start: i, End: end}, true
		}
	}
	return sectionSpan{}, false
}

// allSectionNames returns every top-level table header's interior text,
// in file order. Used by RewritePathsRelativeTo to visit every
// dependency-bearing section without the caller needing to enumerate
// them.
func (d *Document) allSectionNames() []string {
	var names []string
	for _, line := range d.lines {
		if m := sectionHeaderPattern.FindStringSubmatch(line); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

// keyLinePattern matches a simple "key = value" assignment (not a nested
// table header), capturing the key.
var keyLinePattern = regexp.MustCompile(`^(\s*)([A-Za-z0-9_-]+)(\s*=\s*)(.*)$`)

// findKeyLine returns the line index of "key = ..." within [span.Start,
// span.End), or -1 if absent.
func (d *Document) findKeyLine(span sectionSpan, key string) int {
	for i := span.Start + 1; i < span.End; i++ {
		m := keyLinePattern.FindStringSubmatch(d.lines[i])
		if m != nil && m[2] == key {
			return i
		}
	}
	return -1
}

// HasKey reports whether key is assigned directly within section (not in
// a nested dotted sub-table).
func (d *Document) HasKey(section, key string) bool {
	span, ok := d.findSection(section)
	if !ok {
		return false
	}
	return d.findKeyLine(span, key) != -1
}

// quotedStringPattern extracts the contents of the first double-quoted
// string on a line.
var quotedStringPattern = regexp.MustCompile(`"([^"]*)"`)

// pathKeyPattern finds a `path = "..."` assignment anywhere on a line,
// whether standalone or inside an inline table, capturing the `path = `
// prefix and the path value without its surrounding quotes so callers can
// splice a replacement in place.
var pathKeyPattern = regexp.MustCompile(`(path\s*=\s*)"([^"]*)"`)

// rewritePathOnLine replaces the path = "..." value on lines[idx] with
// newPath, preserving everything else on the line (other inline-table
// fields, trailing comments). Returns false if the line has no path key.
func (d *Document) rewritePathOnLine(idx int, newPath string) bool {
	line := d.lines[idx]
	if !pathKeyPattern.MatchString(line) {
		return false
	}
	d.lines[idx] = pathKeyPattern.ReplaceAllString(line, `${1}"`+escapeTOMLString(newPath)+`"`)
	return true
}

func escapeTOMLString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
