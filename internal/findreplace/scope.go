// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package findreplace

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// scope decides which files a find-replace pass visits: the project's
// .gitignore (always respected, per spec §4.11's "respecting ignore
// rules"), plus optional include/exclude glob lists from the request.
type scope struct {
	root    string
	include []string
	exclude []string
	ignore  *gitignore.GitIgnore
}

// newScope loads root's .gitignore, if present, and captures include/exclude
// glob patterns. Patterns are matched with doublestar.Match against the path
// relative to root.
func newScope(root string, include, exclude []string) *scope {
	s := &scope{root: root, include: include, exclude: exclude}
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		s.ignore = gitignore.CompileIgnoreLines(splitLines(string(data))...)
	}
	return s
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// visits reports whether relPath (slash-separated, relative to root) should
// be scanned: not ignored, and matching include (if any non-empty) while
// matching no exclude pattern.
func (s *scope) visits(relPath string) bool {
	if s.ignore != nil && s.ignore.MatchesPath(relPath) {
		return false
	}
	for _, pat := range s.exclude {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return false
		}
	}
	if len(s.include) == 0 {
		return true
	}
	for _, pat := range s.include {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}
