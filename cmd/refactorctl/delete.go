// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package main

import (
	"github.com/spf13/cobra"

	"github.com/polyglot-tools/refactorcore/internal/dispatcher"
)

var (
	deleteTargetKind string
	deletePath       string
	deleteLine       int
	deleteCharacter  int
	deleteSymbolName string
	deleteForce      bool
	deleteDryRun     bool

	deleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete a symbol, file, directory, or a batch of dead-code files",
		RunE:  runDelete,
	}
)

func init() {
	deleteCmd.Flags().StringVar(&deleteTargetKind, "target-kind", "file", "symbol, file, directory, or dead-code-batch")
	deleteCmd.Flags().StringVar(&deletePath, "path", "", "path to the target (required)")
	deleteCmd.Flags().IntVar(&deleteLine, "line", 0, "zero-based line (symbol targets only)")
	deleteCmd.Flags().IntVar(&deleteCharacter, "character", 0, "zero-based character offset (symbol targets only)")
	deleteCmd.Flags().StringVar(&deleteSymbolName, "symbol-name", "", "disambiguates among several bindings at one position")
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "skip the dependent-import check for file/directory targets")
	deleteCmd.Flags().BoolVar(&deleteDryRun, "dry-run", true, "preview the plan without writing changes")
	_ = deleteCmd.MarkFlagRequired("path")
}

func runDelete(cmd *cobra.Command, args []string) error {
	dryRun := deleteDryRun
	target, err := targetRefFor(deleteTargetKind, deletePath, deleteLine, deleteCharacter, deleteSymbolName)
	if err != nil {
		return err
	}

	env, err := disp.Delete(cmd.Context(), dispatcher.DeleteRequest{
		Target: target,
		Force:  deleteForce,
		DryRun: &dryRun,
	})
	printEnvelope(env, err)
	return err
}
