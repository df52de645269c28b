// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package lsp is the thin LSP collaborator interface spec §1 treats as
// external to the core: a JSON-RPC protocol handler (protocol.go), the
// WorkspaceEdit wire shapes internal/planconv normalises (types.go), a
// minimal client surface (client.go), and the progress-tracking
// abstraction spec §4.12 requires Rename/Extract/Inline/Move/Reorder/
// Transform to wait on before issuing a request (progress.go).
package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Position is a zero-based line/character position, mirroring the LSP
// wire format exactly (characters are UTF-16 code units on the wire; this
// core treats them as character offsets per spec §3 and converts to bytes
// only at apply time — see internal/executor).
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open LSP range.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// TextEdit is one LSP text edit: replace Range with NewText.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// TextDocumentIdentifier names a document by URI, optionally versioned.
type TextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version *int   `json:"version,omitempty"`
}

// TextDocumentEdit bundles a set of TextEdits for one document.
type TextDocumentEdit struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Edits        []TextEdit             `json:"edits"`
}

// ResourceOpKind tags which structural resource operation a DocumentChange
// entry carries, when it isn't a plain TextDocumentEdit.
type ResourceOpKind string

const (
	ResourceOpCreate ResourceOpKind = "create"
	ResourceOpRename ResourceOpKind = "rename"
	ResourceOpDelete ResourceOpKind = "delete"
)

// ResourceOp is an LSP resource operation: create, rename, or delete a
// file, as opposed to editing its content.
type ResourceOp struct {
	Kind   ResourceOpKind `json:"kind"`
	URI    string         `json:"uri,omitempty"`    // create, delete
	OldURI string         `json:"oldUri,omitempty"` // rename
	NewURI string         `json:"newUri,omitempty"` // rename
}

// DocumentChange is one entry of WorkspaceEdit.DocumentChanges: either a
// TextDocumentEdit or a ResourceOp, never both. Exactly one of the two
// fields is non-nil; this mirrors the LSP spec's untagged union by
// decoding into whichever field's shape matches (see UnmarshalJSON).
type DocumentChange struct {
	TextDocumentEdit *TextDocumentEdit
	ResourceOp       *ResourceOp
}

// WorkspaceEdit is the LSP WorkspaceEdit shape internal/planconv converts
// into an internal plan.EditPlan. A server may populate either Changes
// (the older path->edits map form) or DocumentChanges (the newer ordered
// form that can interleave resource operations); planconv handles both.
type WorkspaceEdit struct {
	Changes        map[string][]TextEdit `json:"changes,omitempty"`
	DocumentChanges []DocumentChange     `json:"documentChanges,omitempty"`
}

// DiagnosticSeverity mirrors the LSP wire encoding for
// textDocument/publishDiagnostics (1-4, most to least severe).
type DiagnosticSeverity int

const (
	DiagnosticError       DiagnosticSeverity = 1
	DiagnosticWarning     DiagnosticSeverity = 2
	DiagnosticInformation DiagnosticSeverity = 3
	DiagnosticHint        DiagnosticSeverity = 4
)

// Diagnostic is one entry of a publishDiagnostics notification.
type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity,omitempty"`
	Code     string             `json:"code,omitempty"`
	Source   string             `json:"source,omitempty"`
	Message  string             `json:"message"`
}

// RenameMetadata accompanies a consolidation-flagged rename: the rename
// resource op plus the flag the converter checks before attempting
// consolidation-structure extraction (spec §4.7 "Consolidation
// detection").
type RenameMetadata struct {
	IsConsolidation bool
}

// PathToURI converts an absolute file path to a file:// URI, percent-
// encoding reserved characters (spaces, unicode) so the round trip through
// URIToPath is lossless (spec §8 round-trip law).
func PathToURI(path string) string {
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	u := &url.URL{Scheme: "file", Path: path}
	return u.String()
}

// URIToPath decodes a file:// URI back to a native path string. Paths
// with spaces or unicode survive the round trip because url.Parse
// percent-decodes u.Path for us.
func URIToPath(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return strings.TrimPrefix(uri, "file://")
}
