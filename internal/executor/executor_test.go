// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyglot-tools/refactorcore/internal/oplock"
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

func newTestDeps() Deps {
	return Deps{Locks: oplock.NewManager()}
}

func TestExecute_AppliesSingleReplaceEdit(t *testing.T) {
	proj := newTestProject(t)
	filePath := filepath.Join(proj.Root, "a.rs")
	require.NoError(t, os.WriteFile(filePath, []byte("fn old_name() {}\n"), 0o644))

	ep := &plan.EditPlan{
		SourceFile: filePath,
		Edits: []plan.TextEdit{
			{
				Kind:            plan.EditReplace,
				Location:        plan.Location{StartLine: 0, StartColumn: 3, EndLine: 0, EndColumn: 11},
				ReplacementText: "new_name",
				Priority:        1,
			},
		},
	}

	res, err := Execute(context.Background(), proj, newTestDeps(), ep, Options{})
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, res.State)

	content, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, "fn new_name() {}\n", string(content))
}

func TestExecute_AppliesEditsInDescendingLineOrderWithinOnePath(t *testing.T) {
	proj := newTestProject(t)
	filePath := filepath.Join(proj.Root, "a.rs")
	require.NoError(t, os.WriteFile(filePath, []byte("one\ntwo\nthree\n"), 0o644))

	ep := &plan.EditPlan{
		SourceFile: filePath,
		Edits: []plan.TextEdit{
			// Both priority 1; must apply bottom line first so earlier
			// offsets aren't invalidated by a preceding edit's length change.
			{Kind: plan.EditReplace, Location: plan.Location{StartLine: 0, StartColumn: 0, EndLine: 0, EndColumn: 3}, ReplacementText: "1", Priority: 1},
			{Kind: plan.EditReplace, Location: plan.Location{StartLine: 2, StartColumn: 0, EndLine: 2, EndColumn: 5}, ReplacementText: "3", Priority: 1},
		},
	}

	res, err := Execute(context.Background(), proj, newTestDeps(), ep, Options{})
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, res.State)

	content, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, "1\ntwo\n3\n", string(content))
}

func TestExecute_CreateThenDeleteTargets(t *testing.T) {
	proj := newTestProject(t)
	newPath := filepath.Join(proj.Root, "new.rs")
	oldPath := filepath.Join(proj.Root, "old.rs")
	require.NoError(t, os.WriteFile(oldPath, []byte("old\n"), 0o644))

	ep := &plan.EditPlan{
		Edits: []plan.TextEdit{
			{TargetPath: newPath, Kind: plan.EditCreate, ReplacementText: "fresh\n", Priority: 1},
		},
		Deletions: []plan.DeletionTarget{
			{Path: oldPath, Kind: plan.DeleteFile},
		},
	}

	res, err := Execute(context.Background(), proj, newTestDeps(), ep, Options{})
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, res.State)

	assert.FileExists(t, newPath)
	assert.NoFileExists(t, oldPath)
}

func TestExecute_DependencyUpdateSkipsFileWithoutOldRef(t *testing.T) {
	proj := newTestProject(t)
	manifestPath := filepath.Join(proj.Root, "Cargo.toml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`[dependencies]
foo = "1.0"
`), 0o644))

	ep := &plan.EditPlan{
		Dependencies: []plan.DependencyUpdate{
			{TargetFile: manifestPath, OldRef: "bar", NewRef: "baz", Category: plan.DepManifestDep},
		},
	}

	res, err := Execute(context.Background(), proj, newTestDeps(), ep, Options{})
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, res.State)
	assert.Empty(t, res.FilesChanged)
}

func TestExecute_ChecksumDriftAbortsPlan(t *testing.T) {
	proj := newTestProject(t)
	filePath := filepath.Join(proj.Root, "a.rs")
	require.NoError(t, os.WriteFile(filePath, []byte("current content\n"), 0o644))

	ep := &plan.EditPlan{
		SourceFile: filePath,
		Checksums:  map[string]string{filePath: plan.Checksum([]byte("stale content\n"))},
		Edits: []plan.TextEdit{
			{Kind: plan.EditReplace, Location: plan.Location{StartLine: 0, StartColumn: 0, EndLine: 0, EndColumn: 7}, ReplacementText: "x"},
		},
	}

	res, err := Execute(context.Background(), proj, newTestDeps(), ep, Options{ValidateChecksums: true})
	require.Error(t, err)
	assert.Equal(t, StateValidatingChecks, res.State)

	content, readErr := os.ReadFile(filePath)
	require.NoError(t, readErr)
	assert.Equal(t, "current content\n", string(content)) // untouched
}

func TestExecute_DryRunSkipsFilesystemMutation(t *testing.T) {
	proj := newTestProject(t)
	filePath := filepath.Join(proj.Root, "a.rs")
	require.NoError(t, os.WriteFile(filePath, []byte("unchanged\n"), 0o644))

	ep := &plan.EditPlan{
		SourceFile: filePath,
		Edits: []plan.TextEdit{
			{Kind: plan.EditReplace, Location: plan.Location{StartLine: 0, StartColumn: 0, EndLine: 0, EndColumn: 9}, ReplacementText: "changed"},
		},
	}

	res, err := Execute(context.Background(), proj, newTestDeps(), ep, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, StateValidated, res.State)

	content, readErr := os.ReadFile(filePath)
	require.NoError(t, readErr)
	assert.Equal(t, "unchanged\n", string(content))
}

func TestTokenizeCommand_QuoteAware(t *testing.T) {
	argv, err := tokenizeCommand(`cargo test --package "my crate" -- --nocapture`)
	require.NoError(t, err)
	assert.Equal(t, []string{"cargo", "test", "--package", "my crate", "--", "--nocapture"}, argv)
}

func TestIsAllowlisted(t *testing.T) {
	assert.True(t, isAllowlisted([]string{"cargo", "check"}))
	assert.True(t, isAllowlisted([]string{"go", "test", "./..."}))
	assert.True(t, isAllowlisted([]string{"python", "-m", "pytest"}))
	assert.False(t, isAllowlisted([]string{"rm", "-rf", "/"}))
	assert.False(t, isAllowlisted([]string{}))
}

func TestExecute_RejectsNonAllowlistedValidationCommand(t *testing.T) {
	proj := newTestProject(t)
	proj.ValidationCommand = "rm -rf /"
	filePath := filepath.Join(proj.Root, "a.rs")
	require.NoError(t, os.WriteFile(filePath, []byte("fn f() {}\n"), 0o644))

	ep := &plan.EditPlan{SourceFile: filePath}

	res, err := Execute(context.Background(), proj, newTestDeps(), ep, Options{Validate: true, OnValidationFailure: ValidationReport})
	require.NoError(t, err)
	assert.Equal(t, StateReportedOnly, res.State)
}
