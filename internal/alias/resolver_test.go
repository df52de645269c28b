package alias

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolver_FindConfigWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"paths": {"$lib/*": ["src/lib/*"]}}`)
	writeFile(t, filepath.Join(root, "src", "app", "widget.ts"), "// irrelevant")

	r := New(nil)
	cfg, ok := r.FindConfig(filepath.Join(root, "src", "app", "widget.ts"), root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "tsconfig.json"), cfg)
}

func TestResolver_FindConfigCachesPerDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"paths": {}}`)
	dir := filepath.Join(root, "src", "deep", "nested")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	r := New(nil)
	first, ok := r.FindConfig(filepath.Join(dir, "a.ts"), root)
	require.True(t, ok)

	// Remove the config; cached lookup should still return the prior hit.
	require.NoError(t, os.Remove(filepath.Join(root, "tsconfig.json")))
	second, ok := r.FindConfig(filepath.Join(dir, "b.ts"), root)
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestResolver_ResolveWildcardPrefersExistingFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"paths": {"$lib/*": ["src/lib/*"]}}`)
	writeFile(t, filepath.Join(root, "src", "lib", "widget.ts"), "export const widget = 1;")
	importer := filepath.Join(root, "src", "app", "main.ts")
	writeFile(t, importer, "import {widget} from '$lib/widget'")

	r := New(nil)
	resolved, ok := r.Resolve("$lib/widget", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src", "lib", "widget.ts"), resolved)
}

func TestResolver_ResolveFallsBackToIndexFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"paths": {"@/*": ["src/*"]}}`)
	writeFile(t, filepath.Join(root, "src", "components", "index.ts"), "export {}")
	importer := filepath.Join(root, "src", "app", "main.ts")

	r := New(nil)
	resolved, ok := r.Resolve("@/components", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src", "components", "index.ts"), resolved)
}

func TestResolver_ResolveUnresolvedReturnsFirstReplacement(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"paths": {"@/*": ["src/nope/*", "src/also-nope/*"]}}`)
	importer := filepath.Join(root, "src", "app", "main.ts")

	r := New(nil)
	resolved, ok := r.Resolve("@/missing", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src", "nope", "missing"), resolved)
}

func TestResolver_ResolveExactPatternMatchesEquality(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"paths": {"my-pkg": ["src/pkg/entry.ts"]}}`)
	writeFile(t, filepath.Join(root, "src", "pkg", "entry.ts"), "export {}")
	importer := filepath.Join(root, "src", "app", "main.ts")

	r := New(nil)
	resolved, ok := r.Resolve("my-pkg", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src", "pkg", "entry.ts"), resolved)

	_, ok = r.Resolve("my-pkg-extra", importer, root)
	assert.False(t, ok)
}

func TestResolver_NoConfigFound(t *testing.T) {
	root := t.TempDir()
	importer := filepath.Join(root, "src", "app", "main.ts")
	writeFile(t, importer, "")

	r := New(nil)
	_, ok := r.Resolve("@/whatever", importer, root)
	assert.False(t, ok)
}

func TestResolver_PathToAliasRoundTrips(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"paths": {"$lib/*": ["src/lib/*"]}}`)
	writeFile(t, filepath.Join(root, "src", "lib", "widget.ts"), "export {}")
	importer := filepath.Join(root, "src", "app", "main.ts")

	r := New(nil)
	resolved, ok := r.Resolve("$lib/widget.ts", importer, root)
	require.True(t, ok)

	specifier, ok := r.PathToAlias(resolved, importer, root)
	require.True(t, ok)
	assert.Equal(t, "$lib/widget.ts", specifier)
}

func TestResolver_ResolveWithEntriesSkipsDiskWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "lib", "widget.go"), "package lib")
	importer := filepath.Join(root, "src", "app", "main.go")

	r := New(nil)
	entries := []workspace.AliasEntry{{Pattern: "$lib/*", Replacements: []string{"src/lib/*"}}}
	resolved, ok := r.ResolveWithEntries(entries, "$lib/widget", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src", "lib", "widget.go"), resolved)
}

func TestIsPotentialAlias(t *testing.T) {
	cases := map[string]bool{
		"$lib/x":    true,
		"@/y":       true,
		"~/z":       true,
		"bare-spec": true,
		"./rel":     false,
		"/abs":      false,
		"":          false,
	}
	for specifier, want := range cases {
		assert.Equal(t, want, IsPotentialAlias(specifier), "specifier=%q", specifier)
	}
}
