package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fluentchain/internal/harness"
)

// ValidationError describes one scenario file that failed to load.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate scenario files without running them",
		Long: `Check scenario files for syntax, schema and reference errors.

<path> is a single scenario file or a directory that is searched
recursively. CUE files are checked against the scenario schema; YAML files
are decoded strictly, so unknown fields are errors.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	info, err := os.Stat(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot read path", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = harness.ScenarioFiles(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
	}

	result := ValidationResult{Files: len(files)}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		if _, err := harness.LoadScenario(file); err != nil {
			result.Errors = append(result.Errors, ValidationError{Path: file, Message: err.Error()})
		}
	}
	result.Valid = len(result.Errors) == 0

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("%d invalid scenario file(s)", len(result.Errors)),
				Details: result.Errors,
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		for _, e := range result.Errors {
			formatter.Printf("✗ %s\n  %s\n", e.Path, e.Message)
		}
		if result.Valid {
			formatter.Printf("✓ %d scenario file(s) valid\n", result.Files)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid scenario file(s)", len(result.Errors)))
	}
	return nil
}
