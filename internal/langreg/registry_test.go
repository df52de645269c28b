package langreg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()
	r.Register(Language{Name: "Go", Extensions: []string{".go"}, Category: CategoryFull})

	lang, ok := r.ForExtension(".go")
	require.True(t, ok)
	assert.Equal(t, "Go", lang.Name)

	_, ok = r.ForExtension(".rs")
	assert.False(t, ok)
}

func TestRegistry_HasCapabilityDegradesWithoutHook(t *testing.T) {
	r := New()
	r.Register(Language{Name: "Go", Extensions: []string{".go"}, Category: CategoryFull})

	assert.False(t, r.HasCapability(".go", func(c Capabilities) bool { return c.ImportParser != nil }))

	require.NoError(t, RegisterCapabilities(r, "Go", Capabilities{
		ImportParser: func(content []byte) ([]string, error) { return nil, nil },
	}))
	assert.True(t, r.HasCapability(".go", func(c Capabilities) bool { return c.ImportParser != nil }))
}

func TestRegistry_ConfigOnlyNeverReportsCapability(t *testing.T) {
	r := New()
	r.Register(Language{Name: "JSON", Extensions: []string{".json"}, Category: CategoryConfigOnly})
	assert.False(t, r.HasCapability(".json", func(Capabilities) bool { return true }))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "languages.yaml")
	writeYAML(t, path, `
languages:
  - name: Go
    extensions: [".go"]
    category: full
  - name: JSON
    extensions: [".json"]
`)

	r := New()
	require.NoError(t, LoadManifest(r, path))

	goLang, ok := r.ForExtension(".go")
	require.True(t, ok)
	assert.Equal(t, CategoryFull, goLang.Category)

	jsonLang, ok := r.ForExtension(".json")
	require.True(t, ok)
	assert.Equal(t, CategoryConfigOnly, jsonLang.Category, "manifest entries default to config-only without an explicit category")
}

func TestRegisterCapabilities_UnknownLanguageErrors(t *testing.T) {
	r := New()
	err := RegisterCapabilities(r, "Nope", Capabilities{})
	assert.Error(t, err)
}

func TestCompatibleExtensions(t *testing.T) {
	r := New()
	r.Register(Language{Name: "TypeScript", Extensions: []string{".ts"}, Category: CategoryFull})
	r.Register(Language{Name: "Rust", Extensions: []string{".rs"}, Category: CategoryFull})

	table := DefaultCompatibilityTable()

	compatible, err := r.CompatibleExtensions(".ts", table)
	require.NoError(t, err)
	assert.Contains(t, compatible, ".tsx")
	assert.Contains(t, compatible, ".js")

	compatible, err = r.CompatibleExtensions(".rs", table)
	require.NoError(t, err)
	assert.Equal(t, []string{".rs"}, compatible, "a language absent from the table is compatible only with itself")

	_, err = r.CompatibleExtensions(".unknown", table)
	assert.Error(t, err)
}

func writeYAML(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
