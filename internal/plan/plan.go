// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package plan defines the refactor-plan data model shared by every
// component downstream of a refactor request: the outward, transport-facing
// RefactorPlan (spec §3 "Refactor Plan"), the executor-facing EditPlan
// (spec §3 "Edit Plan"), and the write-response envelope returned to every
// caller (spec §6).
//
// # Description
//
// RefactorPlan is what a dry-run response puts under "changes": the LSP-
// shaped workspace edits plus a summary, warnings, and per-path checksums
// captured at planning time. EditPlan is what internal/executor actually
// applies: a flat, priority-ordered edit list that internal/planconv builds
// from an LSP WorkspaceEdit, or that the dispatcher builds directly (for
// find-replace, by flattening a RefactorPlan's edits). Keeping the
// two separate lets the transport-facing shape stay stable while the
// executor's internal representation evolves independently.
//
// # Thread Safety
//
// All types in this package are plain values; callers own synchronization.
package plan

import "time"

// Kind tags which refactor variant a plan represents (spec §3 "Refactor
// Plan (sum type)"). Dispatch on Kind is a switch, never an inheritance
// hierarchy (spec §9).
type Kind string

const (
	KindRename      Kind = "rename"
	KindExtract     Kind = "extract"
	KindInline      Kind = "inline"
	KindMove        Kind = "move"
	KindReorder     Kind = "reorder"
	KindTransform   Kind = "transform"
	KindDelete      Kind = "delete"
	KindFindReplace Kind = "find_replace"
)

// ImpactBucket is the qualitative size of a plan, derived from the
// affected-file count.
type ImpactBucket string

const (
	ImpactLow    ImpactBucket = "low"
	ImpactMedium ImpactBucket = "medium"
	ImpactHigh   ImpactBucket = "high"
)

// ImpactFor derives an ImpactBucket from an affected-file count. Thresholds
// are deliberately coarse: this drives human-facing summaries, not
// scheduling decisions.
func ImpactFor(affectedFiles int) ImpactBucket {
	switch {
	case affectedFiles <= 3:
		return ImpactLow
	case affectedFiles <= 15:
		return ImpactMedium
	default:
		return ImpactHigh
	}
}

// EditKind is the kind of a single TextEdit.
type EditKind string

const (
	EditReplace EditKind = "replace"
	EditCreate  EditKind = "create"
	EditDelete  EditKind = "delete"
	EditMove    EditKind = "move"
)

// Location is a half-open character range within a file. Lines are
// 0-indexed; columns are character offsets, never byte offsets (spec §3
// "Edit Location"). Byte conversion happens only at apply time, against
// the current UTF-8 content of the target file.
type Location struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Zero is the (0,0,0,0) range LSP resource operations (create/delete) use
// as a placeholder, since they carry no textual range of their own.
var Zero = Location{}

// TextEdit is one unit of a plan's edit list (spec §3 "Text Edit").
type TextEdit struct {
	// TargetPath is set once the edit has been flattened out of a
	// multi-file plan; empty for a single-file EditPlan whose SourceFile
	// already names the path.
	TargetPath string

	Kind     EditKind
	Location Location

	// OriginalText is the text being replaced, when known. LSP edits
	// frequently omit it; it's present when a dependency-update or
	// reference-rewrite recomputed it directly against file content.
	OriginalText string

	// ReplacementText is the new text for Replace/Create; for Move, it is
	// the destination path string rather than file content.
	ReplacementText string

	// Priority breaks ties on the same path: higher executes first
	// (spec invariant 4, "highest priority first; bottom-up by (line,
	// column) otherwise").
	Priority int

	Description string
}

// DeletionTarget names one path slated for removal in a Delete plan.
type DeletionTarget struct {
	Path string
	Kind DeletionKind
}

// DeletionKind distinguishes a single file from a directory deletion.
type DeletionKind string

const (
	DeleteFile      DeletionKind = "file"
	DeleteDirectory DeletionKind = "directory"
)

// DependencyCategory classifies a DependencyUpdate (spec §3 "Dependency
// Update").
type DependencyCategory string

const (
	DepImport               DependencyCategory = "import"
	DepWorkspaceMember      DependencyCategory = "workspace-member"
	DepManifestDep          DependencyCategory = "manifest-dep"
	DepPatch                DependencyCategory = "patch"
	DepTargetConditionalDep DependencyCategory = "target-conditional-dep"
	DepBuildDep             DependencyCategory = "build-dep"
	DepDevDep               DependencyCategory = "dev-dep"
)

// DependencyUpdate is a single token-level rewrite applied to a manifest or
// source file outside the main edit list (spec §3 "Dependency Update").
type DependencyUpdate struct {
	TargetFile string
	OldRef     string
	NewRef     string
	Category   DependencyCategory
}

// Warning carries a non-fatal diagnostic attached to a plan (e.g. a skipped
// self-dependency during consolidation, or a missing mod.rs/lib.rs clash).
type Warning struct {
	Code    string
	Message string
	// Candidates lists locations the caller might want to inspect, such as
	// ambiguous rename targets. May be empty.
	Candidates []Location
}

// Summary tallies how many files a plan touches.
type Summary struct {
	Affected int
	Created  int
	Deleted  int
}

// Metadata is the common header every RefactorPlan variant carries (spec
// §3 "Plan Metadata").
type Metadata struct {
	SchemaVersion int
	RefactorKind  Kind
	Language      string
	Impact        ImpactBucket
	CreatedAt     time.Time
	Consolidation *ConsolidationMetadata
}

// ConsolidationMetadata flags a Rename plan as a package-consolidation and
// carries the structural information the Consolidation Post-Processor
// needs (spec §3 "Consolidation Metadata").
type ConsolidationMetadata struct {
	SourcePackageName string
	TargetPackageName string
	TargetModuleName  string

	SourcePackageRoot  string
	TargetPackageRoot  string
	TargetModulePath   string
}

// RefactorPlan is the transport-facing, LSP-shaped representation of a
// refactor's intended changes (spec §3 "Refactor Plan (sum type)").
type RefactorPlan struct {
	Kind Kind

	// Edits is the workspace-edit-shaped structural+textual change set,
	// keyed by target path.
	Edits map[string][]TextEdit

	Summary  Summary
	Warnings []Warning
	Metadata Metadata

	// Checksums is SHA-256 hex of every referenced path's content,
	// captured at planning time, used by the executor's drift check.
	Checksums map[string]string

	// Deletions is populated only for KindDelete plans.
	Deletions []DeletionTarget
}

// NewRefactorPlan builds an empty plan of the given kind with schema
// version 1 and a creation timestamp.
func NewRefactorPlan(kind Kind, createdAt time.Time) *RefactorPlan {
	return &RefactorPlan{
		Kind: kind,
		Edits: make(map[string][]TextEdit),
		Metadata: Metadata{
			SchemaVersion: 1,
			RefactorKind:  kind,
			CreatedAt:     createdAt,
		},
		Checksums: make(map[string]string),
	}
}

// AllEdits flattens Edits into a single slice with TargetPath populated on
// every entry, in map-iteration-independent (sorted by path) order. Used
// by the dispatcher's find-replace execute path and by tests that need a
// stable ordering to assert against.
func (p *RefactorPlan) AllEdits() []TextEdit {
	paths := make([]string, 0, len(p.Edits))
	for path := range p.Edits {
		paths = append(paths, path)
	}
	sortStrings(paths)

	flat := make([]TextEdit, 0)
	for _, path := range paths {
		for _, e := range p.Edits[path] {
			e.TargetPath = path
			flat = append(flat, e)
		}
	}
	return flat
}

func sortStrings(s []string) {
	// Small, allocation-free insertion sort: plan edit maps rarely exceed
	// a few hundred entries, and avoiding an import of "sort" here keeps
	// this file dependency-free for the data model's core type. (Executor
	// and converter, which handle the real hot paths, use sort directly.)
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// EditPlan is the internal, executor-facing form produced by
// internal/planconv (spec §3 "Edit Plan (internal, post-conversion)").
type EditPlan struct {
	// SourceFile is the single-file label; empty for a multi-file plan
	// whose edits carry their own TargetPath.
	SourceFile string

	Edits        []TextEdit
	Dependencies []DependencyUpdate
	Validations  []string

	Metadata Metadata

	// Checksums carries forward the RefactorPlan's planning-time
	// checksums so the executor can run its drift check without a second
	// round-trip through the RefactorPlan.
	Checksums map[string]string

	Deletions []DeletionTarget
}
