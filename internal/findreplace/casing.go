// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package findreplace

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// style is the identifier casing convention detected for a matched token
// (spec §4.11 "Case-preserving replacement").
type style int

const (
	styleUnknown style = iota
	styleUpperSnake
	styleLowerSnake
	styleKebab
	styleCamel
	stylePascal
	styleAllCaps
	styleAllLower
)

// words splits an identifier into its component words regardless of its
// casing convention: on '_' and '-' separators, and on camel/Pascal humps.
func words(s string) []string {
	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			flush()
		case i > 0 && isUpper(r) && !isUpper(runes[i-1]):
			flush()
			cur.WriteRune(r)
		case i > 0 && isUpper(r) && isUpper(runes[i-1]) && i+1 < len(runes) && !isUpper(runes[i+1]):
			// End of an acronym run followed by a new word, e.g. "HTTPServer".
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return parts
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// detectStyle classifies s's casing convention. Single-word input that
// contains no separator and no internal case change is ambiguous between
// all-lower/all-caps/camel/pascal; detectStyle resolves it by letter case
// alone, matching spec §4.11's named style list.
func detectStyle(s string) style {
	if s == "" {
		return styleUnknown
	}
	switch {
	case strings.Contains(s, "_"):
		if s == strings.ToUpper(s) {
			return styleUpperSnake
		}
		return styleLowerSnake
	case strings.Contains(s, "-"):
		return styleKebab
	case s == strings.ToUpper(s):
		return styleAllCaps
	case s == strings.ToLower(s):
		return styleAllLower
	case isUpper([]rune(s)[0]):
		return stylePascal
	default:
		return styleCamel
	}
}

var titleCaser = cases.Title(language.Und)

// recase renders ws (the replacement's own words) in the target style.
func recase(ws []string, st style) string {
	switch st {
	case styleUpperSnake:
		upper := make([]string, len(ws))
		for i, w := range ws {
			upper[i] = strings.ToUpper(w)
		}
		return strings.Join(upper, "_")
	case styleLowerSnake:
		lower := make([]string, len(ws))
		for i, w := range ws {
			lower[i] = strings.ToLower(w)
		}
		return strings.Join(lower, "_")
	case styleKebab:
		lower := make([]string, len(ws))
		for i, w := range ws {
			lower[i] = strings.ToLower(w)
		}
		return strings.Join(lower, "-")
	case styleAllCaps:
		return strings.ToUpper(strings.Join(ws, ""))
	case styleAllLower:
		return strings.ToLower(strings.Join(ws, ""))
	case stylePascal:
		var b strings.Builder
		for _, w := range ws {
			b.WriteString(titleCaser.String(strings.ToLower(w)))
		}
		return b.String()
	case styleCamel:
		var b strings.Builder
		for i, w := range ws {
			if i == 0 {
				b.WriteString(strings.ToLower(w))
				continue
			}
			b.WriteString(titleCaser.String(strings.ToLower(w)))
		}
		return b.String()
	default:
		return strings.Join(ws, "")
	}
}

// preserveCase re-cases replacement to match the casing style detected from
// matched (the literal substring the pattern found in the source file).
func preserveCase(matched, replacement string) string {
	st := detectStyle(matched)
	if st == styleUnknown {
		return replacement
	}
	return recase(words(replacement), st)
}

var allStyles = []style{
	styleUpperSnake, styleLowerSnake, styleKebab, stylePascal, styleCamel, styleAllCaps, styleAllLower,
}

// caseVariants renders pattern's own words in every known style, so a
// literal search with case-preservation on finds the same identifier
// however it was cased at the call site (spec §4.11: pattern "fooBar" must
// also match "FooBar" and "FOO_BAR"). Deduplicated and returned in
// allStyles order, which keeps output deterministic for tests.
func caseVariants(pattern string) []string {
	ws := words(pattern)
	seen := make(map[string]bool)
	var out []string
	for _, st := range allStyles {
		v := recase(ws, st)
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
