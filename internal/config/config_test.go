// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

func TestLoad_MissingFile_DefaultsToFileTreeOnly(t *testing.T) {
	root := t.TempDir()
	project, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, workspace.BuildFileTreeOnly, project.Kind)
	assert.Empty(t, project.Aliases)
}

func TestLoad_ParsesManifestDrivenProjectWithAliases(t *testing.T) {
	root := t.TempDir()
	content := `
build_kind: manifest_driven
validation_command: "cargo check"
aliases:
  - pattern: "$lib/*"
    replacements:
      - "src/lib/*"
  - pattern: "@/*"
    replacements:
      - "src/*"
      - "app/*"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644))

	project, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, workspace.BuildManifestDriven, project.Kind)
	assert.Equal(t, "cargo check", project.ValidationCommand)
	require.Len(t, project.Aliases, 2)
	assert.Equal(t, "$lib/*", project.Aliases[0].Pattern)
	assert.Equal(t, []string{"src/*", "app/*"}, project.Aliases[1].Replacements)
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("build_kind: [unterminated"), 0o644))

	_, err := Load(root)
	require.Error(t, err)
}

func TestLoad_UnknownBuildKindDefaultsToFileTreeOnly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("build_kind: something_else"), 0o644))

	project, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, workspace.BuildFileTreeOnly, project.Kind)
}
