// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package planconv

import (
	"os"
	"path/filepath"

	"github.com/polyglot-tools/refactorcore/internal/corerr"
	"github.com/polyglot-tools/refactorcore/internal/lsp"
	"github.com/polyglot-tools/refactorcore/internal/plan"
)

// DetectConsolidation locates the RenameFile resource op in changes and
// extracts consolidation structure per spec §4.7 "Consolidation
// detection":
//
//   - source package name: leaf of the old path
//   - source package path: the old path itself
//   - target module name: leaf of the new path
//   - target module path: the new path itself
//   - target package path: the ancestor directory of the new path that
//     has a "src" child
//   - target package name: leaf of the target package path
//
// Missing structure (no rename op found, or no "src"-containing ancestor)
// is a hard error, per spec.
func DetectConsolidation(changes []lsp.DocumentChange) (*plan.ConsolidationMetadata, error) {
	var rename *lsp.ResourceOp
	for _, c := range changes {
		if c.ResourceOp != nil && c.ResourceOp.Kind == lsp.ResourceOpRename {
			rename = c.ResourceOp
			break
		}
	}
	if rename == nil {
		return nil, corerr.New(corerr.KindInvalidRequest, "consolidation plan has no RenameFile resource operation")
	}

	oldPath := lsp.URIToPath(rename.OldURI)
	newPath := lsp.URIToPath(rename.NewURI)

	targetPackageRoot, err := ancestorWithSrcChild(newPath)
	if err != nil {
		return nil, err
	}

	return &plan.ConsolidationMetadata{
		SourcePackageName: filepath.Base(oldPath),
		SourcePackageRoot: oldPath,
		TargetModuleName:  filepath.Base(newPath),
		TargetModulePath:  newPath,
		TargetPackageRoot: targetPackageRoot,
		TargetPackageName: filepath.Base(targetPackageRoot),
	}, nil
}

// ancestorWithSrcChild walks up from path's parent directory looking for
// the first ancestor that has a "src" subdirectory, returning that
// ancestor. path itself is not tested (it is the new module's own path,
// already inside — or about to be inside — that "src" directory).
func ancestorWithSrcChild(path string) (string, error) {
	dir := filepath.Dir(path)
	for {
		if info, err := os.Stat(filepath.Join(dir, "src")); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", corerr.New(corerr.KindInvalidRequest, "consolidation target path "+path+" has no ancestor containing a src directory")
}
