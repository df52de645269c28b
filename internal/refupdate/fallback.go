// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package refupdate

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// genericResolverExtensions mirrors internal/alias's common source
// extension list: tried, in order, against an extensionless relative
// specifier before giving up and returning it unresolved.
var genericResolverExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".py", ".go", ".rs"}

// fallbackImportPattern matches the common shapes of import/require
// statements across C-family, Python, and Rust-like languages well
// enough to extract a raw specifier when no plugin import parser is
// registered for the extension. It is intentionally permissive: a
// missed or over-matched specifier only costs a wasted Method 2 rewrite
// attempt, never a correctness failure, since Method 2 re-verifies
// against actual content.
var fallbackImportPattern = regexp.MustCompile(
	`\b(?:import|require|from|use|#include)\b[^'"<\n]*['"<]([^'">\s]+)['">]`,
)

// fallbackImports extracts raw specifiers from content using
// fallbackImportPattern. Used when the registry has no import_parser
// capability for the file's extension.
func fallbackImports(content []byte) []string {
	matches := fallbackImportPattern.FindAllSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, string(m[1]))
	}
	return out
}

// aliasMarkerPattern checks for the presence of an alias-style prefix
// character combined with an import/require keyword, the heuristic spec
// §4.6 uses to decide whether a web-language file might carry an alias
// import worth rewriting on a directory rename even though it wasn't
// picked up by Method 1.
var aliasMarkerPattern = regexp.MustCompile(`[$@~](?:/|lib/)`)
var importKeywordPattern = regexp.MustCompile(`\b(import|require)\b`)

// mightContainAliasImport implements that heuristic.
func mightContainAliasImport(content []byte) bool {
	return aliasMarkerPattern.Match(content) && importKeywordPattern.Match(content)
}

// resolveSpecifier resolves a raw import specifier seen in file to an
// absolute project path using a generic resolver: relative specifiers
// are joined against the importing file's directory; anything else is
// left as-is (language-specific and alias resolution is the caller's
// job via langreg/alias — this is strictly the fallback used absent a
// richer resolver).
func resolveSpecifier(specifier, importingFile string) string {
	if !strings.HasPrefix(specifier, ".") {
		return specifier
	}

	joined := filepath.Clean(filepath.Join(filepath.Dir(importingFile), specifier))
	if st, err := os.Stat(joined); err == nil && !st.IsDir() {
		return joined
	}
	for _, ext := range genericResolverExtensions {
		if st, err := os.Stat(joined + ext); err == nil && !st.IsDir() {
			return joined + ext
		}
	}
	return joined
}

// isDescendantOrEqual reports whether candidate is path itself or falls
// under it as a directory descendant.
func isDescendantOrEqual(candidate, path string) bool {
	candidate = filepath.Clean(candidate)
	path = filepath.Clean(path)
	if candidate == path {
		return true
	}
	prefix := path + string(filepath.Separator)
	return strings.HasPrefix(candidate, prefix)
}
