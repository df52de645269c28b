// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Package manifest implements the Manifest Editor: surgical, formatting-
// and comment-preserving edits to build manifests — workspace member
// lists, dependency tables, the workspace-shared dependency table,
// patch/override tables, and target-conditional sections (spec §4.10).
//
// # Description
//
// Edits are applied as targeted text splices against the manifest's
// original lines rather than a parse-mutate-serialise round trip, so
// content outside the edited keys round-trips byte-for-byte. go-toml/v2
// parses the content when a Document is built, but that parse is not
// consulted: key checks and path rewrites scan the raw lines. The
// document is never re-serialised.
//
// # Thread Safety
//
// Document is not safe for concurrent mutation. It takes no lock itself,
// and neither do its current callers (the consolidation post-processor and
// the dispatcher's manifest update).
package manifest

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Document is one loaded manifest file, held as mutable lines so edits
// can splice specific spans without disturbing the rest of the file.
type Document struct {
	Path string

	lines         []string
	trailingNL    bool
	parsedForRead map[string]any
}

// Load reads path and parses it both as raw lines (for editing) and as a
// generic map (kept on the Document but not read by any method).
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, raw)
}

// Parse builds a Document from already-read content, without touching
// disk. Exposed separately so callers that already hold file content
// don't pay for a second read.
func Parse(path string, content []byte) (*Document, error) {
	text := string(content)
	trailingNL := strings.HasSuffix(text, "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	parsed := make(map[string]any)
	// A manifest with syntax go-toml can't parse is still editable by
	// line splicing, so a parse error is ignored rather than failing the
	// whole load.
	_ = toml.Unmarshal(content, &parsed)

	return &Document{Path: path, lines: lines, trailingNL: trailingNL, parsedForRead: parsed}, nil
}

// Bytes reassembles the document's current lines back into file content.
func (d *Document) Bytes() []byte {
	text := strings.Join(d.lines, "\n")
	if d.trailingNL {
		text += "\n"
	}
	return []byte(text)
}

// Lines returns a copy of the document's current lines, for tests and
// callers that want to inspect the splice result directly.
func (d *Document) Lines() []string {
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}
