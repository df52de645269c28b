// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package lsp

import (
	"encoding/json"
	"fmt"
)

// documentChangeProbe is used only to sniff which shape a DocumentChanges
// array entry has: a resource operation carries a "kind" field
// ("create"/"rename"/"delete"); a TextDocumentEdit does not.
type documentChangeProbe struct {
	Kind string `json:"kind"`
}

// MarshalJSON emits whichever of TextDocumentEdit/ResourceOp is set.
func (d DocumentChange) MarshalJSON() ([]byte, error) {
	if d.ResourceOp != nil {
		return json.Marshal(d.ResourceOp)
	}
	return json.Marshal(d.TextDocumentEdit)
}

// decodeWorkspaceEdit unmarshals a raw JSON-RPC result into a
// WorkspaceEdit. A nil/empty result decodes to an empty, non-nil edit
// rather than an error, matching how a server signals "no changes".
func decodeWorkspaceEdit(raw json.RawMessage) (*WorkspaceEdit, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &WorkspaceEdit{}, nil
	}
	var edit WorkspaceEdit
	if err := json.Unmarshal(raw, &edit); err != nil {
		return nil, fmt.Errorf("decoding workspace edit: %w", err)
	}
	return &edit, nil
}

// UnmarshalJSON decodes one documentChanges array entry into either a
// TextDocumentEdit or a ResourceOp, per the LSP spec's untagged union:
// entries with a "kind" field are resource operations.
func (d *DocumentChange) UnmarshalJSON(data []byte) error {
	var probe documentChangeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("probing document change shape: %w", err)
	}

	switch probe.Kind {
	case string(ResourceOpCreate), string(ResourceOpRename), string(ResourceOpDelete):
		var op ResourceOp
		if err := json.Unmarshal(data, &op); err != nil {
			return fmt.Errorf("decoding resource operation: %w", err)
		}
		d.ResourceOp = &op
		return nil
	default:
		var tde TextDocumentEdit
		if err := json.Unmarshal(data, &tde); err != nil {
			return fmt.Errorf("decoding text document edit: %w", err)
		}
		d.TextDocumentEdit = &tde
		return nil
	}
}
