// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polyglot-tools/refactorcore/internal/dispatcher"
	"github.com/polyglot-tools/refactorcore/internal/plan"
)

// symbolOpFunc is the shape every Dispatcher method backing a LSP-only
// refactor kind shares (spec §4.11's Extract/Inline/Reorder/Transform
// row).
type symbolOpFunc func(ctx context.Context, req dispatcher.SymbolRequest) (plan.Envelope, error)

// newSymbolCmd builds one cobra.Command for a symbol-position refactor
// kind: Extract, Inline, Reorder, and Transform all take the same
// parameters and differ only in which Dispatcher method they call.
func newSymbolCmd(use, short string, op func() symbolOpFunc) *cobra.Command {
	var (
		path       string
		line       int
		character  int
		symbolName string
		argsJSON   string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opArgs map[string]any
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &opArgs); err != nil {
					return fmt.Errorf("parsing --args as JSON: %w", err)
				}
			}
			dr := dryRun
			env, err := op()(cmd.Context(), dispatcher.SymbolRequest{
				Target: dispatcher.TargetRef{
					Kind:       dispatcher.TargetSymbol,
					Path:       path,
					Line:       line,
					Character:  character,
					SymbolName: symbolName,
				},
				Args:   opArgs,
				DryRun: &dr,
			})
			printEnvelope(env, err)
			return err
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "path to the file containing the symbol (required)")
	cmd.Flags().IntVar(&line, "line", 0, "zero-based line")
	cmd.Flags().IntVar(&character, "character", 0, "zero-based character offset")
	cmd.Flags().StringVar(&symbolName, "symbol-name", "", "disambiguates among several bindings at one position")
	cmd.Flags().StringVar(&argsJSON, "args", "", "operation-specific arguments as a JSON object")
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "preview the plan without writing changes")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

var extractCmd = newSymbolCmd("extract", "Extract a variable, function, or constant at a symbol position", func() symbolOpFunc { return disp.Extract })
var inlineCmd = newSymbolCmd("inline", "Inline a variable or function at a symbol position", func() symbolOpFunc { return disp.Inline })
var reorderCmd = newSymbolCmd("reorder", "Reorder parameters or members at a symbol position", func() symbolOpFunc { return disp.Reorder })
var transformCmd = newSymbolCmd("transform", "Apply a structural transform at a symbol position", func() symbolOpFunc { return disp.Transform })
