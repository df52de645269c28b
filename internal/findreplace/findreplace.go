// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package findreplace implements the native matcher behind the Find-Replace
// refactor operation (spec §4.11): literal or regex matching across a
// workspace, with optional whole-word and case-preserving rewrite, scoped by
// include/exclude globs and the project's ignore rules.
//
// # Description
//
// Run walks the project tree (skipping anything scope excludes), finds every
// match per file, and emits one plan.TextEdit per match. It never touches
// the filesystem beyond reading file content — the dispatcher previews the
// resulting RefactorPlan on dry-run, or flattens its edits into an EditPlan
// and hands that to internal/executor on execute.
//
// # Thread Safety
//
// Run is a pure function of its arguments; callers may run multiple
// searches concurrently against the same project as long as no other
// component is mutating the tree.
package findreplace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/polyglot-tools/refactorcore/internal/corerr"
	"github.com/polyglot-tools/refactorcore/internal/plan"
	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

// Mode selects literal substring matching or regular-expression matching.
type Mode string

const (
	ModeLiteral Mode = "literal"
	ModeRegex   Mode = "regex"
)

// Options configures one find-replace pass (spec §6 "Find-Replace" request
// shape).
type Options struct {
	Pattern     string
	Replacement string
	Mode        Mode

	WholeWord    bool
	PreserveCase bool

	IncludeGlobs []string
	ExcludeGlobs []string
}

// matcher is the compiled form of Options.Pattern, uniform across literal
// and regex mode.
type matcher struct {
	re *regexp.Regexp
}

// compile builds a matcher from opts. Regex mode compiles the pattern
// as-is; an invalid pattern fails here, before any file is opened (spec §8
// boundary behaviour). Literal mode with case-preservation on expands the
// pattern into an alternation over every casing variant of its words, so a
// search for "fooBar" also finds "FooBar" and "FOO_BAR". Plain literal mode
// escapes the pattern and optionally wraps it in word boundaries.
func compile(opts Options) (*matcher, error) {
	var body string
	switch {
	case opts.Mode == ModeRegex:
		body = opts.Pattern
	case opts.PreserveCase:
		variants := caseVariants(opts.Pattern)
		escaped := make([]string, len(variants))
		for i, v := range variants {
			escaped[i] = regexp.QuoteMeta(v)
		}
		body = `\b(?:` + strings.Join(escaped, "|") + `)\b`
	default:
		body = regexp.QuoteMeta(opts.Pattern)
		if opts.WholeWord {
			body = `\b` + body + `\b`
		}
	}
	re, err := regexp.Compile(body)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInvalidRequest, err, "compiling find-replace pattern")
	}
	return &matcher{re: re}, nil
}

// Run scans project for opts.Pattern and returns a RefactorPlan of
// KindFindReplace whose edits rewrite every match. No file is modified;
// the dispatcher flattens the plan's edits into an EditPlan for
// internal/executor.
func Run(project *workspace.Project, opts Options, now time.Time) (*plan.RefactorPlan, error) {
	if opts.Pattern == "" {
		return nil, corerr.New(corerr.KindInvalidRequest, "find-replace pattern must not be empty")
	}

	m, err := compile(opts)
	if err != nil {
		return nil, err
	}

	sc := newScope(project.Root, opts.IncludeGlobs, opts.ExcludeGlobs)
	rp := plan.NewRefactorPlan(plan.KindFindReplace, now)

	walkErr := filepath.WalkDir(project.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(project.Root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !sc.visits(rel) {
			return nil
		}
		if isBinaryExt(path) {
			return nil
		}

		edits, fileErr := matchFile(m, opts, path)
		if fileErr != nil {
			rp.Warnings = append(rp.Warnings, plan.Warning{
				Code:    "find-replace-read-failed",
				Message: fmt.Sprintf("%s: %v", rel, fileErr),
			})
			return nil
		}
		if len(edits) > 0 {
			rp.Edits[path] = edits
			rp.Summary.Affected++
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking project tree: %w", walkErr)
	}

	rp.Metadata.Impact = plan.ImpactFor(rp.Summary.Affected)
	return rp, nil
}

// matchFile finds every occurrence of m in path's content and builds one
// Replace TextEdit per match, highest line/column first so downstream
// application order (spec §4.8 step 2) needs no further sorting within this
// file.
func matchFile(m *matcher, opts Options, path string) ([]plan.TextEdit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !isLikelyText(content) {
		return nil, nil
	}
	text := string(content)

	locs := m.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	edits := make([]plan.TextEdit, 0, len(locs))
	for i := len(locs) - 1; i >= 0; i-- {
		start, end := locs[i][0], locs[i][1]
		matched := text[start:end]

		replacement := opts.Replacement
		if opts.PreserveCase {
			replacement = preserveCase(matched, opts.Replacement)
		}

		startLine, startCol := lineCol(text, start)
		endLine, endCol := lineCol(text, end)

		edits = append(edits, plan.TextEdit{
			Kind:            plan.EditReplace,
			Location:        plan.Location{StartLine: startLine, StartColumn: startCol, EndLine: endLine, EndColumn: endCol},
			OriginalText:    matched,
			ReplacementText: replacement,
			Priority:        1,
			Description:     "find-replace match",
		})
	}
	return edits, nil
}

// lineCol converts a byte offset in text into a (0-indexed line, 0-indexed
// character column) pair, matching plan.Location's character-based
// convention.
func lineCol(text string, byteOffset int) (line, col int) {
	upto := text[:byteOffset]
	line = strings.Count(upto, "\n")
	lastNL := strings.LastIndexByte(upto, '\n')
	lineStart := lastNL + 1
	col = len([]rune(upto[lineStart:]))
	return line, col
}

var binaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".exe": true,
	".so": true, ".dylib": true, ".dll": true, ".woff": true, ".woff2": true,
}

func isBinaryExt(path string) bool {
	return binaryExts[strings.ToLower(filepath.Ext(path))]
}

// isLikelyText reports false if content contains a NUL byte or an excess of
// non-printable runes in its first 8KiB, a cheap binary-file heuristic.
func isLikelyText(content []byte) bool {
	sample := content
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	nonPrintable := 0
	for _, b := range sample {
		if b == 0 {
			return false
		}
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' {
			nonPrintable++
		}
	}
	return nonPrintable*20 < len(sample)+1
}
