// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package findreplace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyglot-tools/refactorcore/internal/plan"
	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

func newTestProject(t *testing.T) *workspace.Project {
	t.Helper()
	root := t.TempDir()
	proj, err := workspace.NewProject(root, workspace.BuildFileTreeOnly)
	require.NoError(t, err)
	return proj
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func applyEdits(t *testing.T, text string, edits []plan.TextEdit) string {
	t.Helper()
	ordered := make([]plan.TextEdit, len(edits))
	copy(ordered, edits)
	// findreplace emits edits already in reverse-offset order per file; apply
	// as-is via the same byte-offset recompute used at executor apply time.
	result := text
	for _, e := range ordered {
		start, end := byteOffsets(t, result, e.Location)
		result = result[:start] + e.ReplacementText + result[end:]
	}
	return result
}

func byteOffsets(t *testing.T, text string, loc plan.Location) (int, int) {
	t.Helper()
	lineStart := func(line int) int {
		remaining := line
		for i, r := range text {
			if remaining == 0 {
				return i
			}
			if r == '\n' {
				remaining--
			}
			_ = i
		}
		if remaining == 0 {
			return len(text)
		}
		t.Fatalf("line %d not found", line)
		return -1
	}
	offsetOf := func(line, col int) int {
		ls := lineStart(line)
		rest := []rune(text[ls:])
		nl := 0
		for nl < len(rest) && rest[nl] != '\n' {
			nl++
		}
		lineRunes := rest[:nl]
		return ls + len(string(lineRunes[:col]))
	}
	return offsetOf(loc.StartLine, loc.StartColumn), offsetOf(loc.EndLine, loc.EndColumn)
}

func TestRun_CasePreservingReplacement(t *testing.T) {
	proj := newTestProject(t)
	filePath := filepath.Join(proj.Root, "names.txt")
	writeFile(t, filePath, "fooBar FooBar FOO_BAR\n")

	rp, err := Run(proj, Options{
		Pattern:      "fooBar",
		Replacement:  "bazQux",
		Mode:         ModeLiteral,
		PreserveCase: true,
	}, time.Time{})
	require.NoError(t, err)

	edits := rp.Edits[filePath]
	require.Len(t, edits, 3)

	got := applyEdits(t, "fooBar FooBar FOO_BAR\n", edits)
	assert.Equal(t, "bazQux BazQux BAZ_QUX\n", got)
}

func TestRun_LiteralWholeWordOnlyMatchesBoundaries(t *testing.T) {
	proj := newTestProject(t)
	filePath := filepath.Join(proj.Root, "a.go")
	writeFile(t, filePath, "foo foobar barfoo\n")

	rp, err := Run(proj, Options{Pattern: "foo", Replacement: "baz", Mode: ModeLiteral, WholeWord: true}, time.Time{})
	require.NoError(t, err)

	edits := rp.Edits[filePath]
	require.Len(t, edits, 1)
	assert.Equal(t, "foo", edits[0].OriginalText)
}

func TestRun_RegexMode(t *testing.T) {
	proj := newTestProject(t)
	filePath := filepath.Join(proj.Root, "a.go")
	writeFile(t, filePath, "v1 v2 v3\n")

	rp, err := Run(proj, Options{Pattern: `v\d`, Replacement: "vX", Mode: ModeRegex}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, rp.Edits[filePath], 3)
}

func TestRun_InvalidRegexFailsBeforeAnyFileOpened(t *testing.T) {
	proj := newTestProject(t)
	writeFile(t, filepath.Join(proj.Root, "a.go"), "content\n")

	_, err := Run(proj, Options{Pattern: "(unterminated", Replacement: "x", Mode: ModeRegex}, time.Time{})
	require.Error(t, err)
}

func TestRun_ExcludeGlobSkipsMatchingFiles(t *testing.T) {
	proj := newTestProject(t)
	writeFile(t, filepath.Join(proj.Root, "keep.go"), "needle\n")
	writeFile(t, filepath.Join(proj.Root, "vendor", "skip.go"), "needle\n")

	rp, err := Run(proj, Options{
		Pattern:      "needle",
		Replacement:  "x",
		Mode:         ModeLiteral,
		ExcludeGlobs: []string{"vendor/**"},
	}, time.Time{})
	require.NoError(t, err)

	_, keptTouched := rp.Edits[filepath.Join(proj.Root, "keep.go")]
	_, vendorTouched := rp.Edits[filepath.Join(proj.Root, "vendor", "skip.go")]
	assert.True(t, keptTouched)
	assert.False(t, vendorTouched)
}

func TestRun_RespectsGitignore(t *testing.T) {
	proj := newTestProject(t)
	writeFile(t, filepath.Join(proj.Root, ".gitignore"), "ignored.go\n")
	writeFile(t, filepath.Join(proj.Root, "ignored.go"), "needle\n")
	writeFile(t, filepath.Join(proj.Root, "kept.go"), "needle\n")

	rp, err := Run(proj, Options{Pattern: "needle", Replacement: "x", Mode: ModeLiteral}, time.Time{})
	require.NoError(t, err)

	_, ignoredTouched := rp.Edits[filepath.Join(proj.Root, "ignored.go")]
	_, keptTouched := rp.Edits[filepath.Join(proj.Root, "kept.go")]
	assert.False(t, ignoredTouched)
	assert.True(t, keptTouched)
}

func TestRun_EmptyPatternRejected(t *testing.T) {
	proj := newTestProject(t)
	_, err := Run(proj, Options{Pattern: "", Replacement: "x"}, time.Time{})
	require.Error(t, err)
}

func TestDetectStyle(t *testing.T) {
	assert.Equal(t, styleLowerSnake, detectStyle("foo_bar"))
	assert.Equal(t, styleUpperSnake, detectStyle("FOO_BAR"))
	assert.Equal(t, styleKebab, detectStyle("foo-bar"))
	assert.Equal(t, stylePascal, detectStyle("FooBar"))
	assert.Equal(t, styleCamel, detectStyle("fooBar"))
	assert.Equal(t, styleAllCaps, detectStyle("FOOBAR"))
	assert.Equal(t, styleAllLower, detectStyle("foobar"))
}

func TestPreserveCase(t *testing.T) {
	assert.Equal(t, "bazQux", preserveCase("fooBar", "bazQux"))
	assert.Equal(t, "BazQux", preserveCase("FooBar", "bazQux"))
	assert.Equal(t, "BAZ_QUX", preserveCase("FOO_BAR", "bazQux"))
}
