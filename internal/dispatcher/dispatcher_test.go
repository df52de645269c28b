// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyglot-tools/refactorcore/internal/findreplace"
	"github.com/polyglot-tools/refactorcore/internal/oplock"
	"github.com/polyglot-tools/refactorcore/internal/plan"
	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *workspace.Project) {
	t.Helper()
	root := t.TempDir()
	project, err := workspace.NewProject(root, workspace.BuildFileTreeOnly)
	require.NoError(t, err)

	d := New(Deps{
		Project: project,
		Locks:   oplock.NewManager(),
	})
	return d, project
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRename_FileTarget_DryRunByDefault(t *testing.T) {
	d, project := newTestDispatcher(t)
	oldPath := filepath.Join(project.Root, "old.txt")
	writeFile(t, oldPath, "hello")

	envelope, err := d.Rename(context.Background(), RenameRequest{
		Target:  TargetRef{Kind: TargetFile, Path: oldPath},
		NewName: "new.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPreview, envelope.Status)

	// Dry-run never touches the filesystem.
	_, statErr := os.Stat(oldPath)
	assert.NoError(t, statErr)

	ep, ok := envelope.Changes.(*plan.EditPlan)
	require.True(t, ok)
	require.Len(t, ep.Edits, 1)
	assert.Equal(t, plan.EditMove, ep.Edits[0].Kind)
	assert.Equal(t, filepath.Join(project.Root, "new.txt"), ep.Edits[0].ReplacementText)
}

func TestRename_FileTarget_ExecutesWhenDryRunFalse(t *testing.T) {
	d, project := newTestDispatcher(t)
	oldPath := filepath.Join(project.Root, "old.txt")
	writeFile(t, oldPath, "hello")

	dryRun := false
	envelope, err := d.Rename(context.Background(), RenameRequest{
		Target:  TargetRef{Kind: TargetFile, Path: oldPath},
		NewName: "new.txt",
		Options: RenameOptions{DryRun: &dryRun},
	})
	require.NoError(t, err)
	assert.Equal(t, plan.StatusSuccess, envelope.Status)

	_, statErr := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(statErr))

	content, readErr := os.ReadFile(filepath.Join(project.Root, "new.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, "hello", string(content))
}

func TestRename_DestinationAlreadyExists(t *testing.T) {
	d, project := newTestDispatcher(t)
	oldPath := filepath.Join(project.Root, "old.txt")
	newPath := filepath.Join(project.Root, "new.txt")
	writeFile(t, oldPath, "hello")
	writeFile(t, newPath, "already here")

	envelope, err := d.Rename(context.Background(), RenameRequest{
		Target:  TargetRef{Kind: TargetFile, Path: oldPath},
		NewName: "new.txt",
	})
	require.Error(t, err)
	assert.Equal(t, plan.StatusError, envelope.Status)
}

func TestRename_SymbolTarget_NoLSPConfigured(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, err := d.Rename(context.Background(), RenameRequest{
		Target:  TargetRef{Kind: TargetSymbol, Path: "a.go", Line: 3, Character: 1},
		NewName: "renamed",
	})
	require.Error(t, err)
}

func TestMove_DelegatesToRenameSemantics(t *testing.T) {
	d, project := newTestDispatcher(t)
	srcDir := filepath.Join(project.Root, "pkg")
	writeFile(t, filepath.Join(srcDir, "a.go"), "package pkg")

	dstDir := filepath.Join(project.Root, "pkg2")
	envelope, err := d.Move(context.Background(), MoveRequest{
		Target:      TargetRef{Kind: TargetDirectory, Path: srcDir},
		Destination: dstDir,
	})
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPreview, envelope.Status)
}

func TestMove_RejectsSymbolTarget(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, err := d.Move(context.Background(), MoveRequest{
		Target:      TargetRef{Kind: TargetSymbol, Path: "a.go"},
		Destination: "b.go",
	})
	require.Error(t, err)
}

func TestDelete_FileTarget_DryRun(t *testing.T) {
	d, project := newTestDispatcher(t)
	target := filepath.Join(project.Root, "dead.txt")
	writeFile(t, target, "unused")

	envelope, err := d.Delete(context.Background(), DeleteRequest{
		Target: TargetRef{Kind: TargetFile, Path: target},
	})
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPreview, envelope.Status)

	_, statErr := os.Stat(target)
	assert.NoError(t, statErr)

	ep, ok := envelope.Changes.(*plan.EditPlan)
	require.True(t, ok)
	require.Len(t, ep.Deletions, 1)
	assert.Equal(t, plan.DeleteFile, ep.Deletions[0].Kind)
}

func TestDelete_SymbolTarget_BlanksLine(t *testing.T) {
	d, project := newTestDispatcher(t)
	target := filepath.Join(project.Root, "a.go")
	writeFile(t, target, "package a\n\nimport \"fmt\"\n\nfunc main() {}\n")

	dryRun := false
	envelope, err := d.Delete(context.Background(), DeleteRequest{
		Target: TargetRef{Kind: TargetSymbol, Path: target, Line: 2},
		DryRun: &dryRun,
	})
	require.NoError(t, err)
	assert.Equal(t, plan.StatusSuccess, envelope.Status)

	content, readErr := os.ReadFile(target)
	require.NoError(t, readErr)
	assert.NotContains(t, string(content), `import "fmt"`)
}

func TestFindReplace_DryRun_ReturnsPreviewWithoutWriting(t *testing.T) {
	d, project := newTestDispatcher(t)
	target := filepath.Join(project.Root, "a.txt")
	writeFile(t, target, "fooBar and foo_bar and FOO_BAR")

	envelope, err := d.FindReplace(context.Background(), FindReplaceRequest{
		Options: findreplace.Options{
			Pattern:      "fooBar",
			Replacement:  "bazQux",
			Mode:         findreplace.ModeLiteral,
			PreserveCase: true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPreview, envelope.Status)

	content, readErr := os.ReadFile(target)
	require.NoError(t, readErr)
	assert.Equal(t, "fooBar and foo_bar and FOO_BAR", string(content))

	rp, ok := envelope.Changes.(*plan.RefactorPlan)
	require.True(t, ok)
	assert.Equal(t, 1, rp.Summary.Affected)
}

func TestFindReplace_Execute_RewritesEveryCasingVariant(t *testing.T) {
	d, project := newTestDispatcher(t)
	target := filepath.Join(project.Root, "a.txt")
	writeFile(t, target, "fooBar and foo_bar and FOO_BAR")

	dryRun := false
	envelope, err := d.FindReplace(context.Background(), FindReplaceRequest{
		Options: findreplace.Options{
			Pattern:      "fooBar",
			Replacement:  "bazQux",
			Mode:         findreplace.ModeLiteral,
			PreserveCase: true,
		},
		DryRun: &dryRun,
	})
	require.NoError(t, err)
	assert.Equal(t, plan.StatusSuccess, envelope.Status)

	content, readErr := os.ReadFile(target)
	require.NoError(t, readErr)
	assert.Equal(t, "bazQux and baz_qux and BAZ_QUX", string(content))
}

func TestExtract_NoLSPConfigured(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, err := d.Extract(context.Background(), SymbolRequest{
		Target: TargetRef{Kind: TargetSymbol, Path: "a.go", Line: 1, Character: 0},
	})
	require.Error(t, err)
}

func TestDeadCodeBatch_EmptyCacheYieldsNoCandidates(t *testing.T) {
	d, project := newTestDispatcher(t)
	envelope, err := d.Delete(context.Background(), DeleteRequest{
		Target: TargetRef{Kind: TargetDeadCodeBatch, Path: project.Root},
	})
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPreview, envelope.Status)
	assert.Nil(t, envelope.Changes)
}
