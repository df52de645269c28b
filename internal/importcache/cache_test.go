package importcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetImportsAndGetImporters(t *testing.T) {
	c := New()
	now := time.Now()

	c.SetImports("/p/a.go", []string{"/p/lib.go", "/p/util.go"}, now)
	c.SetImports("/p/b.go", []string{"/p/lib.go"}, now)

	assert.ElementsMatch(t, []string{"/p/a.go", "/p/b.go"}, c.GetImporters("/p/lib.go"))
	assert.ElementsMatch(t, []string{"/p/a.go"}, c.GetImporters("/p/util.go"))
}

func TestCache_SetImportsUpdatesReverseSymmetrically(t *testing.T) {
	c := New()
	now := time.Now()

	c.SetImports("/p/a.go", []string{"/p/lib.go"}, now)
	require.Equal(t, []string{"/p/a.go"}, c.GetImporters("/p/lib.go"))

	// a.go no longer imports lib.go; reverse index must drop it.
	c.SetImports("/p/a.go", []string{"/p/other.go"}, now.Add(time.Second))
	assert.Empty(t, c.GetImporters("/p/lib.go"))
	assert.Equal(t, []string{"/p/a.go"}, c.GetImporters("/p/other.go"))
}

func TestCache_GetImportersForDirectory(t *testing.T) {
	c := New()
	now := time.Now()

	c.SetImports("/p/a.go", []string{"/p/pkg/sub/lib.go"}, now)
	c.SetImports("/p/b.go", []string{"/p/pkg/other.go"}, now)
	c.SetImports("/p/c.go", []string{"/p/unrelated.go"}, now)

	importers := c.GetImportersForDirectory("/p/pkg")
	assert.ElementsMatch(t, []string{"/p/a.go", "/p/b.go"}, importers)
}

func TestCache_IsStale(t *testing.T) {
	c := New()
	now := time.Now()
	c.SetImports("/p/a.go", nil, now)

	assert.False(t, c.IsStale("/p/a.go", now))
	assert.True(t, c.IsStale("/p/a.go", now.Add(time.Second)))
	assert.True(t, c.IsStale("/p/never-scanned.go", now))
}

func TestCache_Remove(t *testing.T) {
	c := New()
	now := time.Now()
	c.SetImports("/p/a.go", []string{"/p/lib.go"}, now)

	c.Remove("/p/a.go")
	assert.Empty(t, c.GetImporters("/p/lib.go"))
	_, ok := c.GetImports("/p/a.go")
	assert.False(t, ok)
}

func TestCache_Populated(t *testing.T) {
	c := New()
	assert.False(t, c.Populated())
	c.SetImports("/p/a.go", nil, time.Now())
	assert.True(t, c.Populated())
}

func TestCache_SaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := New()
	now := time.Now().Truncate(time.Second)
	c.SetImports("/p/a.go", []string{"/p/lib.go"}, now)

	require.NoError(t, c.SaveToDir(dir))

	loaded := LoadFromDir(dir)
	imports, ok := loaded.GetImports("/p/a.go")
	require.True(t, ok)
	assert.Equal(t, []string{filepath.Clean("/p/lib.go")}, imports)
	assert.ElementsMatch(t, []string{"/p/a.go"}, loaded.GetImporters("/p/lib.go"))
}

func TestCache_LoadDiscardsCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	loaded := LoadFromDir(dir)
	assert.Equal(t, 0, loaded.Len())
}

func TestCache_LoadDiscardsVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 999, "forward": {"/p/a.go": {"imports": [], "mtime": "2020-01-01T00:00:00Z"}}}`), 0o644))

	loaded := LoadFromDir(dir)
	assert.Equal(t, 0, loaded.Len())
}

func TestCache_LoadMissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	loaded := LoadFromDir(dir)
	assert.Equal(t, 0, loaded.Len())
}
