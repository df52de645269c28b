// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polyglot-tools/refactorcore/internal/dispatcher"
	"github.com/polyglot-tools/refactorcore/internal/findreplace"
)

var (
	frPattern      string
	frReplacement  string
	frMode         string
	frWholeWord    bool
	frPreserveCase bool
	frInclude      []string
	frExclude      []string
	frDryRun       bool

	findReplaceCmd = &cobra.Command{
		Use:   "find-replace",
		Short: "Find and replace a literal or regular-expression pattern across the project",
		RunE:  runFindReplace,
	}
)

func init() {
	findReplaceCmd.Flags().StringVar(&frPattern, "pattern", "", "pattern to search for (required)")
	findReplaceCmd.Flags().StringVar(&frReplacement, "replacement", "", "replacement text (required)")
	findReplaceCmd.Flags().StringVar(&frMode, "mode", "literal", "literal or regex")
	findReplaceCmd.Flags().BoolVar(&frWholeWord, "whole-word", false, "match whole words only")
	findReplaceCmd.Flags().BoolVar(&frPreserveCase, "preserve-case", false, "rewrite every casing variant of pattern (camelCase, snake_case, SCREAMING_SNAKE_CASE)")
	findReplaceCmd.Flags().StringSliceVar(&frInclude, "include", nil, "glob patterns to restrict the scan to")
	findReplaceCmd.Flags().StringSliceVar(&frExclude, "exclude", nil, "glob patterns to exclude from the scan")
	findReplaceCmd.Flags().BoolVar(&frDryRun, "dry-run", true, "preview the plan without writing changes")
	_ = findReplaceCmd.MarkFlagRequired("pattern")
	_ = findReplaceCmd.MarkFlagRequired("replacement")
}

func runFindReplace(cmd *cobra.Command, args []string) error {
	var mode findreplace.Mode
	switch frMode {
	case "literal":
		mode = findreplace.ModeLiteral
	case "regex":
		mode = findreplace.ModeRegex
	default:
		return fmt.Errorf("unknown --mode %q (want literal or regex)", frMode)
	}

	dryRun := frDryRun
	env, err := disp.FindReplace(cmd.Context(), dispatcher.FindReplaceRequest{
		Options: findreplace.Options{
			Pattern:      frPattern,
			Replacement:  frReplacement,
			Mode:         mode,
			WholeWord:    frWholeWord,
			PreserveCase: frPreserveCase,
			IncludeGlobs: frInclude,
			ExcludeGlobs: frExclude,
		},
		DryRun: &dryRun,
	})
	printEnvelope(env, err)
	return err
}
