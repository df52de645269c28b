// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package lsp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceEdit_DocumentChanges_MixedResourceAndTextEdits(t *testing.T) {
	raw := `{
		"documentChanges": [
			{"textDocument": {"uri": "file:///a.ts"}, "edits": [{"range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 3}}, "newText": "foo"}]},
			{"kind": "rename", "oldUri": "file:///old.ts", "newUri": "file:///new.ts"},
			{"kind": "create", "uri": "file:///created.ts"},
			{"kind": "delete", "uri": "file:///gone.ts"}
		]
	}`

	var edit WorkspaceEdit
	require.NoError(t, json.Unmarshal([]byte(raw), &edit))
	require.Len(t, edit.DocumentChanges, 4)

	assert.NotNil(t, edit.DocumentChanges[0].TextDocumentEdit)
	assert.Equal(t, "file:///a.ts", edit.DocumentChanges[0].TextDocumentEdit.TextDocument.URI)

	assert.NotNil(t, edit.DocumentChanges[1].ResourceOp)
	assert.Equal(t, ResourceOpRename, edit.DocumentChanges[1].ResourceOp.Kind)
	assert.Equal(t, "file:///new.ts", edit.DocumentChanges[1].ResourceOp.NewURI)

	assert.Equal(t, ResourceOpCreate, edit.DocumentChanges[2].ResourceOp.Kind)
	assert.Equal(t, ResourceOpDelete, edit.DocumentChanges[3].ResourceOp.Kind)
}

func TestDecodeWorkspaceEdit_NullResultIsEmptyNotError(t *testing.T) {
	edit, err := decodeWorkspaceEdit([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, edit)
	assert.Empty(t, edit.Changes)
}
