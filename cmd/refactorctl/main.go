// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

// Command refactorctl is the CLI transport for the refactoring
// orchestration core. It is a thin shell: every subcommand marshals its
// flags into a internal/dispatcher request, calls the matching
// Dispatcher method, and marshals the resulting plan.Envelope back out
// as JSON or a short human summary. No refactor logic lives here.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/polyglot-tools/refactorcore/internal/config"
	"github.com/polyglot-tools/refactorcore/internal/corerr"
	"github.com/polyglot-tools/refactorcore/internal/dispatcher"
	"github.com/polyglot-tools/refactorcore/internal/importcache"
	"github.com/polyglot-tools/refactorcore/internal/langreg"
	"github.com/polyglot-tools/refactorcore/internal/oplock"
	"github.com/polyglot-tools/refactorcore/internal/plan"
)

var (
	projectRoot      string
	logFormat        string
	languageManifest string
	jsonOutput       bool

	disp *dispatcher.Dispatcher

	rootCmd = &cobra.Command{
		Use:   "refactorctl",
		Short: "Drive the refactoring orchestration core from the command line",
		Long: `refactorctl sends rename, move, delete, extract, inline, reorder,
transform and find-replace requests to the refactoring core and prints
the resulting plan or execution result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			project, err := config.Load(projectRoot)
			if err != nil {
				return fmt.Errorf("loading project config: %w", err)
			}

			registry := langreg.New()
			if languageManifest != "" {
				if err := langreg.LoadManifest(registry, languageManifest); err != nil {
					slog.Warn("language manifest not loaded, falling back to fallback-only behavior", "path", languageManifest, "err", err)
				}
			}

			disp = dispatcher.New(dispatcher.Deps{
				Project:  project,
				Registry: registry,
				Cache:    importcache.New(),
				Locks:    oplock.NewManager(),
			})
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&projectRoot, "project", ".", "project root directory")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: text or json")
	rootCmd.PersistentFlags().StringVar(&languageManifest, "language-registry", "", "path to a language capability manifest (spec §4.5); omitted means fallback-only behavior everywhere")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print the response envelope as JSON instead of a summary line")

	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(inlineCmd)
	rootCmd.AddCommand(reorderCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(findReplaceCmd)
}

func setupLogging() {
	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}

// printEnvelope renders env per the --json flag. The process exit code is
// derived separately, in main, from the error RunE returns alongside env.
func printEnvelope(env plan.Envelope, _ error) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(env); err != nil {
			slog.Error("encoding response envelope", "err", err)
		}
	} else {
		fmt.Printf("%s: %s\n", env.Status, env.Summary)
		for _, f := range env.FilesChanged {
			fmt.Printf("  %s\n", f)
		}
		for _, d := range env.Diagnostics {
			fmt.Printf("  [%s] %s\n", d.Severity, d.Message)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Print(err)
		os.Exit(corerr.ExitCode(err))
	}
}
