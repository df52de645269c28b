// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package executor

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/mattn/go-shellwords"

	"github.com/polyglot-tools/refactorcore/internal/workspace"
)

// validationAllowlist names the program/subcommand prefixes spec §4.8
// step 5 permits as a validation command. A command is only run if its
// leading tokens match every token of one of these entries.
var validationAllowlist = [][]string{
	{"cargo", "check"}, {"cargo", "test"}, {"cargo", "build"}, {"cargo", "clippy"}, {"cargo", "fmt"},
	{"npm", "test"}, {"npm", "run", "build"}, {"npm", "run", "lint"},
	{"yarn", "test"}, {"yarn", "build"}, {"yarn", "lint"},
	{"pnpm", "test"}, {"pnpm", "build"}, {"pnpm", "lint"},
	{"go", "test"}, {"go", "vet"}, {"go", "fmt"},
	{"python", "-m", "pytest"},
	{"pytest"},
	{"black"},
	{"ruff"},
	{"mypy"},
	{"make", "test"}, {"make", "check"},
	{"dotnet", "test"}, {"dotnet", "build"},
}

// tokenizeCommand splits command into argv using a quote-aware tokenizer:
// single/double quotes and backslash escapes on non-Windows, backslashes
// preserved literally on Windows (spec §4.8 step 5).
func tokenizeCommand(command string) ([]string, error) {
	parser := shellwords.NewParser()
	if runtime.GOOS == "windows" {
		// go-shellwords treats backslash as an escape character by
		// default; Windows paths use backslash as a separator, so
		// escaping must be disabled to preserve them literally.
		parser.ParseEnv = false
		parser.ParseBacktick = false
	}
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("tokenizing validation command: %w", err)
	}
	return args, nil
}

// isAllowlisted reports whether argv's program (and, where the allowlist
// entry specifies one, its leading subcommand tokens) match a known-safe
// prefix.
func isAllowlisted(argv []string) bool {
	for _, prefix := range validationAllowlist {
		if len(argv) < len(prefix) {
			continue
		}
		match := true
		for i, tok := range prefix {
			if argv[i] != tok {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// runValidation tokenizes and runs project.ValidationCommand from the
// project root, rejecting anything not on the allowlist. Returns the
// command's combined output and a non-nil error on a non-zero exit or a
// rejected command.
func runValidation(ctx context.Context, project *workspace.Project) (string, error) {
	argv, err := tokenizeCommand(project.ValidationCommand)
	if err != nil {
		return "", err
	}
	if len(argv) == 0 {
		return "", fmt.Errorf("validation command is empty")
	}
	if !isAllowlisted(argv) {
		return "", fmt.Errorf("validation command %q is not on the allowlist", project.ValidationCommand)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = project.Root
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("validation command failed: %w", err)
	}
	return string(output), nil
}

// rollback runs `git reset --hard HEAD` in the project root, the spec
// §4.8 step 5 rollback action. Grounded on the corpus's git-aware
// executor, which runs git subcommands via exec.CommandContext against
// the project's working directory the same way.
func rollback(ctx context.Context, project *workspace.Project) error {
	cmd := exec.CommandContext(ctx, "git", "reset", "--hard", "HEAD")
	cmd.Dir = project.Root
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git reset --hard HEAD: %w: %s", err, string(output))
	}
	return nil
}
