// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package config loads the project configuration this module needs to
// build a workspace.Project: root path, build-system kind, alias
// entries, and validation command, from a YAML file at the workspace
// root. Loading itself is out of scope beyond that (spec §1): no env
// var layering, no flags-to-config reconciliation — those belong to
// cmd/refactorctl, which owns everything flag- and environment-shaped.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

// FileName is the configuration file this package looks for at a
// project's root.
const FileName = ".refactorcore.yaml"

// aliasEntry mirrors workspace.AliasEntry's shape for YAML decoding; kept
// distinct so the on-disk schema can evolve independently of the
// in-memory type other packages consume.
type aliasEntry struct {
	Pattern      string   `yaml:"pattern"`
	Replacements []string `yaml:"replacements"`
}

// File is the on-disk shape of .refactorcore.yaml.
type File struct {
	// BuildKind is "manifest_driven" or "file_tree_only"; empty defaults
	// to file_tree_only (the conservative choice — no manifest to get
	// wrong).
	BuildKind string `yaml:"build_kind"`

	Aliases []aliasEntry `yaml:"aliases"`

	// ValidationCommand is the allow-listed post-execution check (spec
	// §4.8 step 5), e.g. "cargo check" or "go vet ./...".
	ValidationCommand string `yaml:"validation_command"`
}

// Load reads FileName from root and returns the workspace.Project it
// describes. A missing file is not an error: it yields a Project with
// BuildFileTreeOnly and no aliases, root canonicalised as-is.
func Load(root string) (*workspace.Project, error) {
	canonicalRoot, err := workspace.Canonicalize(root, root)
	if err != nil {
		return nil, fmt.Errorf("canonicalising project root: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(canonicalRoot, FileName))
	if os.IsNotExist(err) {
		return &workspace.Project{Root: canonicalRoot, Kind: workspace.BuildFileTreeOnly}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	kind := workspace.BuildFileTreeOnly
	if f.BuildKind == string(workspace.BuildManifestDriven) {
		kind = workspace.BuildManifestDriven
	}

	aliases := make([]workspace.AliasEntry, 0, len(f.Aliases))
	for _, a := range f.Aliases {
		aliases = append(aliases, workspace.AliasEntry{Pattern: a.Pattern, Replacements: a.Replacements})
	}

	return &workspace.Project{
		Root:              canonicalRoot,
		Kind:              kind,
		Aliases:           aliases,
		ValidationCommand: f.ValidationCommand,
	}, nil
}
