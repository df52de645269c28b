// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package lsp

import (
	"context"
	"time"
)

// DefaultRequestTimeout is the per-request LSP timeout spec §5 calls for.
const DefaultRequestTimeout = 60 * time.Second

// DefaultInitTimeout is the LSP initialisation timeout spec §5 calls for.
const DefaultInitTimeout = 60 * time.Second

// Client is the thin, transport-facing interface internal/dispatcher
// consumes for the refactor kinds that source their edits from an LSP
// server (Rename on a symbol, Extract, Inline, Reorder, Transform — spec
// §4.11's table). The core never spawns or owns the server process
// itself (spec §1: "out of scope ... the in-process hosting of language
// plugins"); Client is the seam a real server-process manager implements.
type Client interface {
	// Rename requests a rename of the symbol at (path, line, character)
	// to newName. It does not wait for indexing itself; callers wait on
	// the tracker returned by Progress before calling it.
	Rename(ctx context.Context, path string, line, character int, newName string) (*WorkspaceEdit, error)

	// Extract, Inline, Reorder, Transform request the correspondingly
	// named refactor at a symbol location; args carries operation-
	// specific parameters (e.g. extraction target name, reorder order).
	Extract(ctx context.Context, path string, line, character int, args map[string]any) (*WorkspaceEdit, error)
	Inline(ctx context.Context, path string, line, character int, args map[string]any) (*WorkspaceEdit, error)
	Reorder(ctx context.Context, path string, line, character int, args map[string]any) (*WorkspaceEdit, error)
	Transform(ctx context.Context, path string, line, character int, args map[string]any) (*WorkspaceEdit, error)

	// Progress returns the tracker backing this client's server
	// connection, so a caller can WaitForCompletion on an indexing
	// token before issuing one of the above.
	Progress() *ProgressTracker

	// Diagnostics returns the store holding the most recently published
	// diagnostics per file URI, fed by the server's unsolicited
	// textDocument/publishDiagnostics notifications.
	Diagnostics() *DiagnosticsStore
}

// ProtocolClient is a Client backed directly by a Protocol over a running
// server's stdio pipes. Requests are plain JSON-RPC method calls; the
// response is decoded into a WorkspaceEdit by the caller's chosen method
// name (e.g. "textDocument/rename").
type ProtocolClient struct {
	protocol    *Protocol
	progress    *ProgressTracker
	diagnostics *DiagnosticsStore
}

// NewProtocolClient wraps an already-initialised Protocol and attaches it
// to a fresh progress tracker and diagnostics store, so p's ReadLoop
// starts feeding both as soon as the server begins notifying.
func NewProtocolClient(p *Protocol) *ProtocolClient {
	c := &ProtocolClient{
		protocol:    p,
		progress:    NewProgressTracker(),
		diagnostics: NewDiagnosticsStore(),
	}
	p.Attach(c.progress, c.diagnostics)
	return c
}

func (c *ProtocolClient) Progress() *ProgressTracker { return c.progress }

func (c *ProtocolClient) Diagnostics() *DiagnosticsStore { return c.diagnostics }

func (c *ProtocolClient) Rename(ctx context.Context, path string, line, character int, newName string) (*WorkspaceEdit, error) {
	return c.requestWorkspaceEdit(ctx, "textDocument/rename", renameParams{
		TextDocument: TextDocumentIdentifier{URI: PathToURI(path)},
		Position:     Position{Line: line, Character: character},
		NewName:      newName,
	})
}

func (c *ProtocolClient) Extract(ctx context.Context, path string, line, character int, args map[string]any) (*WorkspaceEdit, error) {
	return c.requestCodeActionEdit(ctx, "extractRefactor", path, line, character, args)
}

func (c *ProtocolClient) Inline(ctx context.Context, path string, line, character int, args map[string]any) (*WorkspaceEdit, error) {
	return c.requestCodeActionEdit(ctx, "inlineRefactor", path, line, character, args)
}

func (c *ProtocolClient) Reorder(ctx context.Context, path string, line, character int, args map[string]any) (*WorkspaceEdit, error) {
	return c.requestCodeActionEdit(ctx, "reorderRefactor", path, line, character, args)
}

func (c *ProtocolClient) Transform(ctx context.Context, path string, line, character int, args map[string]any) (*WorkspaceEdit, error) {
	return c.requestCodeActionEdit(ctx, "transformRefactor", path, line, character, args)
}

type renameParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
	NewName      string                 `json:"newName"`
}

type codeActionRefactorParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
	Kind         string                 `json:"kind"`
	Args         map[string]any         `json:"arguments,omitempty"`
}

func (c *ProtocolClient) requestCodeActionEdit(ctx context.Context, kind, path string, line, character int, args map[string]any) (*WorkspaceEdit, error) {
	return c.requestWorkspaceEdit(ctx, "workspace/executeCommand", codeActionRefactorParams{
		TextDocument: TextDocumentIdentifier{URI: PathToURI(path)},
		Position:     Position{Line: line, Character: character},
		Kind:         kind,
		Args:         args,
	})
}

func (c *ProtocolClient) requestWorkspaceEdit(ctx context.Context, method string, params any) (*WorkspaceEdit, error) {
	start := time.Now()
	raw, err := c.protocol.SendRequest(ctx, method, params)
	recordRequest(method, time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	edit, err := decodeWorkspaceEdit(raw)
	if err != nil {
		return nil, err
	}
	return edit, nil
}
