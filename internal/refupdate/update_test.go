package refupdate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyglot-tools/refactorcore/internal/importcache"
	"github.com/polyglot-tools/refactorcore/internal/langreg"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func stringRewriter(content []byte, old, new, filePath, projectRoot string, rename langreg.RenameInfo) ([]byte, int, error) {
	s := string(content)
	count := strings.Count(s, old)
	if count == 0 {
		return content, 0, nil
	}
	return []byte(strings.ReplaceAll(s, old, new)), count, nil
}

func newTestRegistry() *langreg.Registry {
	r := langreg.New()
	r.Register(langreg.Language{
		Name:       "Go",
		Extensions: []string{".go"},
		Category:   langreg.CategoryFull,
		Capabilities: langreg.Capabilities{
			RewriteFileReferences: stringRewriter,
		},
	})
	return r
}

func TestUpdate_CacheFirstDetection(t *testing.T) {
	root := t.TempDir()
	oldPath := filepath.Join(root, "pkg", "widget.go")
	newPath := filepath.Join(root, "pkg", "gadget.go")
	importer := filepath.Join(root, "app", "main.go")
	writeFile(t, importer, `import "`+oldPath+`"`)

	cache := importcache.New()
	cache.SetImports(importer, []string{oldPath}, time.Now())

	opts := Options{
		OldPath:      oldPath,
		NewPath:      newPath,
		ProjectRoot:  root,
		ProjectFiles: []string{importer},
		Registry:     newTestRegistry(),
		Cache:        cache,
	}

	result, err := Update(context.Background(), opts, langreg.DefaultCompatibilityTable())
	require.NoError(t, err)
	assert.Contains(t, result.AffectedFiles, importer)
	assert.Equal(t, 1, result.ChangeCounts[importer])
	assert.Contains(t, string(result.RewrittenContent[importer]), newPath)
}

func TestUpdate_DryRunDoesNotWrite(t *testing.T) {
	root := t.TempDir()
	oldPath := filepath.Join(root, "pkg", "widget.go")
	newPath := filepath.Join(root, "pkg", "gadget.go")
	importer := filepath.Join(root, "app", "main.go")
	original := `import "` + oldPath + `"`
	writeFile(t, importer, original)

	cache := importcache.New()
	cache.SetImports(importer, []string{oldPath}, time.Now())

	opts := Options{
		OldPath:      oldPath,
		NewPath:      newPath,
		ProjectRoot:  root,
		ProjectFiles: []string{importer},
		Registry:     newTestRegistry(),
		Cache:        cache,
		DryRun:       true,
	}

	result, err := Update(context.Background(), opts, langreg.DefaultCompatibilityTable())
	require.NoError(t, err)
	assert.Contains(t, result.AffectedFiles, importer)

	onDisk, err := os.ReadFile(importer)
	require.NoError(t, err)
	assert.Equal(t, original, string(onDisk), "dry run must not write to disk")
}

func TestUpdate_TraversalWhenCacheEmpty(t *testing.T) {
	root := t.TempDir()
	oldPath := filepath.Join(root, "pkg", "widget.go")
	newPath := filepath.Join(root, "pkg", "gadget.go")
	importer := filepath.Join(root, "app", "main.go")
	writeFile(t, importer, `import "`+oldPath+`"`)
	unrelated := filepath.Join(root, "app", "other.go")
	writeFile(t, unrelated, `package app`)

	opts := Options{
		OldPath:      oldPath,
		NewPath:      newPath,
		ProjectRoot:  root,
		ProjectFiles: []string{importer, unrelated},
		Registry:     newTestRegistry(),
		Cache:        importcache.New(),
	}

	result, err := Update(context.Background(), opts, langreg.DefaultCompatibilityTable())
	require.NoError(t, err)
	assert.Contains(t, result.AffectedFiles, importer)
	assert.NotContains(t, result.AffectedFiles, unrelated)
}

func TestUpdate_ExtensionIncompatibleFilesSkipped(t *testing.T) {
	root := t.TempDir()
	oldPath := filepath.Join(root, "pkg", "widget.go")
	newPath := filepath.Join(root, "pkg", "gadget.go")
	binary := filepath.Join(root, "assets", "logo.png")
	writeFile(t, binary, oldPath)

	registry := langreg.New()
	registry.Register(langreg.Language{Name: "Go", Extensions: []string{".go"}, Category: langreg.CategoryFull,
		Capabilities: langreg.Capabilities{RewriteFileReferences: stringRewriter}})
	registry.Register(langreg.Language{Name: "PNG", Extensions: []string{".png"}, Category: langreg.CategoryConfigOnly})

	opts := Options{
		OldPath:      oldPath,
		NewPath:      newPath,
		ProjectRoot:  root,
		ProjectFiles: []string{binary},
		Registry:     registry,
		Cache:        importcache.New(),
	}

	result, err := Update(context.Background(), opts, langreg.DefaultCompatibilityTable())
	require.NoError(t, err)
	assert.Empty(t, result.AffectedFiles)
}

func TestMightContainAliasImport(t *testing.T) {
	assert.True(t, mightContainAliasImport([]byte(`import x from '$lib/widget'`)))
	assert.False(t, mightContainAliasImport([]byte(`const x = 1`)))
	assert.False(t, mightContainAliasImport([]byte(`$lib/widget is mentioned in prose`)))
}

func TestIsDescendantOrEqual(t *testing.T) {
	assert.True(t, isDescendantOrEqual("/p/a/b.go", "/p/a/b.go"))
	assert.True(t, isDescendantOrEqual("/p/a/sub/c.go", "/p/a"))
	assert.False(t, isDescendantOrEqual("/p/other/c.go", "/p/a"))
}
