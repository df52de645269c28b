// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package plan

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// LineType classifies one line of a Hunk's body.
type LineType string

const (
	LineContext LineType = "context"
	LineAdded   LineType = "added"
	LineRemoved LineType = "removed"
)

// DiffLine is one rendered line of a Hunk, annotated with its old/new line
// numbers (spec §6, preview "changes" detail for a write-response's diff
// view).
type DiffLine struct {
	Type    LineType `json:"type"`
	Content string   `json:"content"`
	OldNum  int      `json:"oldNum,omitempty"`
	NewNum  int      `json:"newNum,omitempty"`
}

// Hunk is one contiguous region of change within a FileDiff.
type Hunk struct {
	OldStart int        `json:"oldStart"`
	OldCount int        `json:"oldCount"`
	NewStart int        `json:"newStart"`
	NewCount int        `json:"newCount"`
	Lines    []DiffLine `json:"lines"`
}

// FileDiff is the unified-diff preview for one path touched by a plan,
// attached to an Envelope's Diffs on dry-run so a caller can render a
// line-level review instead of just the structural TextEdit list.
type FileDiff struct {
	FilePath string `json:"filePath"`
	IsNew    bool   `json:"isNew"`
	IsDelete bool   `json:"isDelete"`
	Hunks    []Hunk `json:"hunks"`
}

// editOp is one step of the line-level edit script between old and new
// content, before it is rendered into unified-diff text.
type editOp struct {
	kind    editKind
	oldLine int
	newLine int
	text    string
}

type editKind int

const (
	editEqual editKind = iota
	editInsert
	editDelete
)

const contextLines = 3

// ComputeFileDiff renders the unified diff between oldContent and
// newContent for filePath, then reparses it with go-diff into structured
// Hunks. Generation and parsing are deliberately separate passes: this
// package computes its own LCS edit script (content is already in memory
// and line-oriented), then hands the formatted text to go-diff so hunk
// boundaries and counts come from the same parser other tools in this
// ecosystem rely on rather than from ad hoc arithmetic.
func ComputeFileDiff(filePath, oldContent, newContent string) (*FileDiff, error) {
	fd := &FileDiff{
		FilePath: filePath,
		IsNew:    oldContent == "",
		IsDelete: newContent == "",
	}

	unified := formatUnifiedDiff(filePath, oldContent, newContent)
	if unified == "" {
		return fd, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(unified))
	if err != nil {
		return nil, fmt.Errorf("parsing generated diff for %s: %w", filePath, err)
	}

	for _, f := range fileDiffs {
		for _, h := range f.Hunks {
			hunk := Hunk{
				OldStart: int(h.OrigStartLine),
				OldCount: int(h.OrigLines),
				NewStart: int(h.NewStartLine),
				NewCount: int(h.NewLines),
			}
			hunk.Lines = parseHunkBody(string(h.Body), hunk.OldStart, hunk.NewStart)
			fd.Hunks = append(fd.Hunks, hunk)
		}
	}
	return fd, nil
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" && !strings.HasSuffix(content, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// computeEdits finds a minimal line-level edit script via an LCS trace-back.
// Callers only ever reach this with plan-sized single-file content, so no
// large-file fallback is needed here.
func computeEdits(oldLines, newLines []string) []editOp {
	m, n := len(oldLines), len(newLines)
	if m == 0 && n == 0 {
		return nil
	}

	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var edits []editOp
	i, j := 0, 0
	for i < m || j < n {
		switch {
		case i < m && j < n && oldLines[i] == newLines[j]:
			edits = append(edits, editOp{kind: editEqual, oldLine: i + 1, newLine: j + 1, text: oldLines[i]})
			i++
			j++
		case j < n && (i >= m || lcs[i][j+1] >= lcs[i+1][j]):
			edits = append(edits, editOp{kind: editInsert, newLine: j + 1, text: newLines[j]})
			j++
		default:
			edits = append(edits, editOp{kind: editDelete, oldLine: i + 1, text: oldLines[i]})
			i++
		}
	}
	return edits
}

func formatUnifiedDiff(filePath, oldContent, newContent string) string {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)
	edits := computeEdits(oldLines, newLines)
	if len(edits) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("--- a/%s\n", filePath))
	sb.WriteString(fmt.Sprintf("+++ b/%s\n", filePath))
	for _, hunk := range groupIntoHunks(edits) {
		sb.WriteString(hunk)
	}
	return sb.String()
}

func groupIntoHunks(edits []editOp) []string {
	var hunks []string
	var hunkEdits []editOp
	inHunk := false

	flush := func() {
		if len(hunkEdits) == 0 {
			return
		}
		var oldStart, oldCount, newStart, newCount int
		for _, e := range hunkEdits {
			switch e.kind {
			case editEqual:
				if oldStart == 0 {
					oldStart = e.oldLine
				}
				if newStart == 0 {
					newStart = e.newLine
				}
				oldCount++
				newCount++
			case editDelete:
				if oldStart == 0 {
					oldStart = e.oldLine
				}
				oldCount++
			case editInsert:
				if newStart == 0 {
					newStart = e.newLine
				}
				newCount++
			}
		}
		if oldStart == 0 {
			oldStart = 1
		}
		if newStart == 0 {
			newStart = 1
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount))
		for _, e := range hunkEdits {
			switch e.kind {
			case editEqual:
				sb.WriteString(" " + e.text + "\n")
			case editDelete:
				sb.WriteString("-" + e.text + "\n")
			case editInsert:
				sb.WriteString("+" + e.text + "\n")
			}
		}
		hunks = append(hunks, sb.String())
		hunkEdits = nil
	}

	for i, edit := range edits {
		if edit.kind != editEqual {
			if !inHunk {
				start := i - contextLines
				if start < 0 {
					start = 0
				}
				for j := start; j < i; j++ {
					if edits[j].kind == editEqual {
						hunkEdits = append(hunkEdits, edits[j])
					}
				}
			}
			inHunk = true
			hunkEdits = append(hunkEdits, edit)
			continue
		}

		if !inHunk {
			continue
		}

		lookahead := contextLines*2 + 1
		hasMoreChanges := false
		for j := i + 1; j < len(edits) && j <= i+lookahead; j++ {
			if edits[j].kind != editEqual {
				hasMoreChanges = true
				break
			}
		}
		if hasMoreChanges {
			hunkEdits = append(hunkEdits, edit)
			continue
		}

		added := 0
		for j := i; j < len(edits) && added < contextLines; j++ {
			if edits[j].kind == editEqual {
				hunkEdits = append(hunkEdits, edits[j])
				added++
			}
		}
		flush()
		inHunk = false
	}
	flush()
	return hunks
}

func parseHunkBody(body string, oldStart, newStart int) []DiffLine {
	var lines []DiffLine
	oldNum, newNum := oldStart, newStart

	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		prefix := line[0]
		content := ""
		if len(line) > 1 {
			content = line[1:]
		}

		var dl DiffLine
		switch prefix {
		case '+':
			dl = DiffLine{Type: LineAdded, Content: content, NewNum: newNum}
			newNum++
		case '-':
			dl = DiffLine{Type: LineRemoved, Content: content, OldNum: oldNum}
			oldNum++
		default:
			dl = DiffLine{Type: LineContext, Content: content, OldNum: oldNum, NewNum: newNum}
			oldNum++
			newNum++
		}
		lines = append(lines, dl)
	}
	return lines
}
