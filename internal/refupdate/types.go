// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package refupdate implements the Reference Updater: given a rename or
// move, finds and rewrites dependent files using the import cache and
// per-language plugins (spec §4.6).
package refupdate

import (
	"github.com/polyglot-tools/refactorcore/internal/importcache"
	"github.com/polyglot-tools/refactorcore/internal/langreg"
)

// ScanScope controls which non-import-bearing files Method 2 is allowed
// to consider.
type ScanScope int

const (
	// ScopeCodeOnly restricts Method 2 candidates to source files in the
	// renamed entity's compatibility class.
	ScopeCodeOnly ScanScope = iota

	// ScopeAll additionally considers documentation and manifest files,
	// which may carry string references to a path without importing it.
	ScopeAll
)

// docAndManifestExtensions are considered only under ScopeAll since they
// cannot appear in an import graph but may still hold string references
// to a renamed path (e.g. a README link, a Cargo.toml path dependency).
var docAndManifestExtensions = map[string]bool{
	".md": true, ".mdx": true, ".rst": true, ".txt": true,
	".toml": true, ".yaml": true, ".yml": true, ".json": true,
}

// Options configures one reference-update request.
type Options struct {
	OldPath     string
	NewPath     string
	ProjectRoot string

	// ProjectFiles is the candidate file universe (every tracked project
	// file), used when the cache is unpopulated or for Method 2 scanning.
	ProjectFiles []string

	Registry *langreg.Registry
	Cache    *importcache.Cache

	Rename langreg.RenameInfo
	Scope  ScanScope

	// DryRun, if true, computes the affected-file set and rewritten
	// content without writing anything to disk.
	DryRun bool
}

// FailedFile records a per-file failure that did not abort the overall
// update (spec §4.6: "a partial failure ... is logged and included in
// the failed-files list; processing continues").
type FailedFile struct {
	Path  string
	Error string
}

// Result is the outcome of an Update call.
type Result struct {
	// AffectedFiles is every file whose content referenced old_path and
	// was (or, in dry-run, would be) rewritten.
	AffectedFiles []string

	// RewrittenContent holds the new content for each affected file,
	// keyed by path. Populated regardless of DryRun so callers can
	// preview or feed it into a Plan.
	RewrittenContent map[string][]byte

	// ChangeCounts is the number of rewritten occurrences per file.
	ChangeCounts map[string]int

	Failed []FailedFile
}
