// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package workspace models the rooted project a refactor targets: its
// canonical root, build-system kind, alias configuration, and the
// path-traversal guard every other component relies on.
//
// # Description
//
// Every path that enters the core passes through Canonicalize, which makes
// it absolute, removes "." and ".." lexically, and rejects anything whose
// cleaned form escapes the project root (spec invariant 1). Symlinks are
// not resolved, so a symlink inside the root that points outside it is
// not rejected.
//
// # Thread Safety
//
// Project is immutable after construction and safe for concurrent use.
package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/polyglot-tools/refactorcore/internal/corerr"
)

// BuildKind distinguishes manifest-driven projects (Cargo, npm/yarn/pnpm,
// go modules, dotnet) from plain file-tree projects with no package
// manifest to keep consistent.
type BuildKind string

const (
	// BuildManifestDriven indicates the project has one or more build
	// manifests whose sections (members, dependencies, patches) must stay
	// consistent across renames/moves.
	BuildManifestDriven BuildKind = "manifest_driven"

	// BuildFileTreeOnly indicates there is no manifest to maintain; only
	// filesystem and import-graph consistency matter.
	BuildFileTreeOnly BuildKind = "file_tree_only"
)

// AliasEntry is one alias-pattern -> replacement-list mapping from project
// configuration (e.g. a tsconfig "paths" entry).
type AliasEntry struct {
	// Pattern is the specifier template, e.g. "$lib/*" or "@/*". At most
	// one wildcard ("*") is permitted.
	Pattern string

	// Replacements are candidate filesystem path templates, tried in
	// order. The first one that resolves to an existing file wins.
	Replacements []string
}

// Project is a rooted workspace.
type Project struct {
	// Root is the canonicalised absolute project root.
	Root string

	// Kind is the build-system kind.
	Kind BuildKind

	// Aliases is the alias configuration, empty if the project does not
	// support import aliasing.
	Aliases []AliasEntry

	// ValidationCommand is the allow-listed command to run after a plan
	// executes, e.g. "cargo check". Empty disables post-execution
	// validation.
	ValidationCommand string
}

// NewProject canonicalises root and returns a Project. root must already
// exist on disk; it is made absolute and cleaned (symlinks are not resolved).
func NewProject(root string, kind BuildKind) (*Project, error) {
	canonical, err := Canonicalize(root, root)
	if err != nil {
		return nil, fmt.Errorf("canonicalising project root: %w", err)
	}
	return &Project{Root: canonical, Kind: kind}, nil
}

// Canonicalize resolves path to an absolute, lexically cleaned form
// (symlinks are not resolved) and verifies it falls within root (which must itself already be canonical, or be the
// root being canonicalised for the first time).
//
// # Description
//
// This is the path-traversal guard spec invariant 1 requires: every path
// entering the core must pass through here before any filesystem read or
// write. A path that resolves outside root returns a *corerr.CoreError of
// kind PathTraversal.
func Canonicalize(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	absRoot = filepath.Clean(absRoot)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path %s: %w", path, err)
	}
	absPath = filepath.Clean(absPath)

	// Self-canonicalisation (constructing the root itself) always succeeds.
	if absPath == absRoot {
		return absPath, nil
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", corerr.New(corerr.KindPathTraversal, fmt.Sprintf("%s escapes project root %s", absPath, absRoot))
	}

	return absPath, nil
}

// InProject reports whether path (after canonicalisation against p.Root)
// falls within the project, without returning an error. Convenience for
// call sites that just need a boolean pre-check.
func (p *Project) InProject(path string) bool {
	_, err := Canonicalize(p.Root, path)
	return err == nil
}

// Rel returns path relative to the project root, for display and manifest
// editing (which must compute paths relative to each manifest's own
// directory, not the project root — see internal/manifest).
func (p *Project) Rel(path string) (string, error) {
	canonical, err := Canonicalize(p.Root, path)
	if err != nil {
		return "", err
	}
	return filepath.Rel(p.Root, canonical)
}
