package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/fluentchain/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run one scenario",
		Long: `Run a single scenario file (YAML or CUE) and report the outcome.

Steps are recorded into a throwaway in-memory database unless --db names a
SQLite file, in which case the session can be inspected later with the
trace and replay commands.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (unreadable file, invalid scenario, etc.)

Examples:
  fluentchain run ./scenarios/two_shapes.yaml
  fluentchain run --db ./chain.db ./scenarios/two_shapes.yaml
  fluentchain run ./scenarios/record.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: in-memory)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := opts.harnessOptions()
	if db := opts.database(opts.Database); db != "" {
		runOpts = append(runOpts, harness.WithDatabase(db))
		slog.Info("recording session", "db", db, "scenario", scenario.Name)
	}

	result, err := harness.RunContext(commandContext(cmd), scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result, Session: result.Session}
		if !result.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeScenarioFailed,
				Message: fmt.Sprintf("scenario %s failed", scenario.Name),
				Details: result.Errors,
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if result.Pass {
			fmt.Fprintf(w, "✓ %s (%d steps, session %s)\n", scenario.Name, result.StepsRun, result.Session)
		} else {
			fmt.Fprintf(w, "✗ %s\n", scenario.Name)
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		if opts.Verbose {
			for _, ev := range result.Trace {
				fmt.Fprintf(w, "  %s\n", formatStep(ev))
			}
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// harnessOptions turns the config file settings into harness run options.
func (o *RootOptions) harnessOptions() []harness.RunOption {
	runOpts := []harness.RunOption{
		harness.WithChainOptions(o.Config.ChainOptions()...),
	}
	if o.Config.Session != "" {
		runOpts = append(runOpts, harness.WithSession(o.Config.Session))
	}
	if o.Verbose {
		runOpts = append(runOpts, harness.WithLogger(slog.Default()))
	}
	return runOpts
}
