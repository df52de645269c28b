package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyglot-tools/refactorcore/internal/corerr"
)

func TestCanonicalize_WithinRoot(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(sub), 0o755))
	require.NoError(t, os.WriteFile(sub, []byte("package a"), 0o644))

	got, err := Canonicalize(root, sub)
	require.NoError(t, err)
	assert.Equal(t, sub, got)
}

func TestCanonicalize_EscapesRoot(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(filepath.Dir(root), "elsewhere", "x.go")

	_, err := Canonicalize(root, outside)
	require.Error(t, err)
	assert.True(t, errors.Is(err, corerr.ErrPathTraversal))
}

func TestCanonicalize_DotDotTraversal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))

	traversal := filepath.Join(root, "pkg", "..", "..", "secrets")
	_, err := Canonicalize(root, traversal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, corerr.ErrPathTraversal))
}

func TestProject_Rel(t *testing.T) {
	root := t.TempDir()
	p, err := NewProject(root, BuildFileTreeOnly)
	require.NoError(t, err)

	rel, err := p.Rel(filepath.Join(root, "src", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("src", "main.go"), rel)
}

func TestProject_InProject(t *testing.T) {
	root := t.TempDir()
	p, err := NewProject(root, BuildFileTreeOnly)
	require.NoError(t, err)

	assert.True(t, p.InProject(filepath.Join(root, "a.go")))
	assert.False(t, p.InProject(filepath.Join(filepath.Dir(root), "b.go")))
}
