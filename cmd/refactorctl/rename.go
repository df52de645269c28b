// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polyglot-tools/refactorcore/internal/dispatcher"
)

var (
	renameTargetKind string
	renamePath       string
	renameLine       int
	renameCharacter  int
	renameSymbolName string
	renameNewName    string
	renameStrict     bool
	renameScope      bool
	renameNoImports  bool
	renameDryRun     bool

	renameCmd = &cobra.Command{
		Use:   "rename",
		Short: "Rename a symbol, file, or directory",
		RunE:  runRename,
	}
)

func init() {
	renameCmd.Flags().StringVar(&renameTargetKind, "target-kind", "symbol", "symbol, file, or directory")
	renameCmd.Flags().StringVar(&renamePath, "path", "", "path to the target (required)")
	renameCmd.Flags().IntVar(&renameLine, "line", 0, "zero-based line (symbol targets only)")
	renameCmd.Flags().IntVar(&renameCharacter, "character", 0, "zero-based character offset (symbol targets only)")
	renameCmd.Flags().StringVar(&renameSymbolName, "symbol-name", "", "disambiguates among several bindings at one position")
	renameCmd.Flags().StringVar(&renameNewName, "new-name", "", "new name or destination path (required)")
	renameCmd.Flags().BoolVar(&renameStrict, "strict", false, "accepted; has no effect on the generated plan")
	renameCmd.Flags().BoolVar(&renameScope, "validate-scope", false, "accepted; has no effect on the generated plan")
	renameCmd.Flags().BoolVar(&renameNoImports, "no-update-imports", false, "skip reference/alias/manifest updates (file and directory targets)")
	renameCmd.Flags().BoolVar(&renameDryRun, "dry-run", true, "preview the plan without writing changes")
	_ = renameCmd.MarkFlagRequired("path")
	_ = renameCmd.MarkFlagRequired("new-name")
}

func runRename(cmd *cobra.Command, args []string) error {
	dryRun := renameDryRun
	target, err := targetRefFor(renameTargetKind, renamePath, renameLine, renameCharacter, renameSymbolName)
	if err != nil {
		return err
	}

	env, err := disp.Rename(cmd.Context(), dispatcher.RenameRequest{
		Target:  target,
		NewName: renameNewName,
		Options: dispatcher.RenameOptions{
			Strict:        renameStrict,
			ValidateScope: renameScope,
			UpdateImports: !renameNoImports,
			DryRun:        &dryRun,
		},
	})
	printEnvelope(env, err)
	return err
}

var (
	moveTargetKind string
	movePath       string
	moveDest       string
	moveDryRun     bool

	moveCmd = &cobra.Command{
		Use:   "move",
		Short: "Move a file or directory, updating references and aliases",
		RunE:  runMove,
	}
)

func init() {
	moveCmd.Flags().StringVar(&moveTargetKind, "target-kind", "file", "file or directory")
	moveCmd.Flags().StringVar(&movePath, "path", "", "path to the target (required)")
	moveCmd.Flags().StringVar(&moveDest, "destination", "", "destination path (required)")
	moveCmd.Flags().BoolVar(&moveDryRun, "dry-run", true, "preview the plan without writing changes")
	_ = moveCmd.MarkFlagRequired("path")
	_ = moveCmd.MarkFlagRequired("destination")
}

func runMove(cmd *cobra.Command, args []string) error {
	dryRun := moveDryRun
	target, err := targetRefFor(moveTargetKind, movePath, 0, 0, "")
	if err != nil {
		return err
	}

	env, err := disp.Move(cmd.Context(), dispatcher.MoveRequest{
		Target:      target,
		Destination: moveDest,
		DryRun:      &dryRun,
	})
	printEnvelope(env, err)
	return err
}

// targetRefFor builds a dispatcher.TargetRef from the flag values every
// subcommand in this package collects the same way.
func targetRefFor(kind, path string, line, character int, symbolName string) (dispatcher.TargetRef, error) {
	var k dispatcher.TargetKind
	switch kind {
	case "symbol":
		k = dispatcher.TargetSymbol
	case "file":
		k = dispatcher.TargetFile
	case "directory":
		k = dispatcher.TargetDirectory
	case "dead-code-batch":
		k = dispatcher.TargetDeadCodeBatch
	default:
		return dispatcher.TargetRef{}, fmt.Errorf("unknown target-kind %q (want symbol, file, directory, or dead-code-batch)", kind)
	}
	return dispatcher.TargetRef{
		Kind:       k,
		Path:       path,
		Line:       line,
		Character:  character,
		SymbolName: symbolName,
	}, nil
}
