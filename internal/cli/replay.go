package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fluentchain/internal/harness"
	"github.com/roach88/fluentchain/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySummary holds the overall replay result.
type ReplaySummary struct {
	Sessions         []harness.ReplayResult `json:"sessions"`
	TotalSessions    int                    `json:"total_sessions"`
	AllDeterministic bool                   `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded sessions and verify determinism",
		Long: `Re-drive recorded sessions against fresh targets and compare every step.

Each session's steps are replayed in seq order with the options they were
recorded under. A session is deterministic when every replayed step has the
same ID, result, bypass flag, error and proxy depth as the recorded one.

Exit codes:
  0 - All sessions are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  fluentchain replay --db ./chain.db
  fluentchain replay --db ./chain.db --session test-session-default
  fluentchain replay --db ./chain.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required unless set in config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)

	db := opts.database(opts.Database)
	if db == "" {
		return NewExitError(ExitCommandError, "required flag \"db\" not set")
	}

	st, err := store.Open(db)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var tokens []string
	if opts.Session != "" {
		tokens = []string{opts.Session}
	} else {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		for _, s := range sessions {
			tokens = append(tokens, s.Token)
		}
	}

	summary := ReplaySummary{
		Sessions:         make([]harness.ReplayResult, 0, len(tokens)),
		TotalSessions:    len(tokens),
		AllDeterministic: true,
	}
	for _, token := range tokens {
		formatter.VerboseLog("Replaying session %s", token)
		res, err := harness.Replay(ctx, st, token)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", token), err)
		}
		summary.Sessions = append(summary.Sessions, *res)
		if !res.Deterministic {
			summary.AllDeterministic = false
		}
	}

	if formatter.IsJSON() {
		return outputReplayJSON(formatter, summary)
	}
	return outputReplayText(cmd, summary, opts.Verbose)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, summary ReplaySummary) error {
	response := CLIResponse{
		Status: "ok",
		Data:   summary,
	}

	if !summary.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	if err := formatter.JSON(response); err != nil {
		return err
	}

	if !summary.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, summary ReplaySummary, verbose bool) error {
	w := cmd.OutOrStdout()

	if summary.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", summary.TotalSessions)
	fmt.Fprintln(w)

	for _, s := range summary.Sessions {
		status := "✓"
		if !s.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Session: %s (target %s, %d steps)\n", status, s.Session, s.Target, s.Steps)

		for _, m := range s.Mismatches {
			if verbose || len(s.Mismatches) <= 5 {
				fmt.Fprintf(w, "  seq %d %s: recorded %s, replayed %s\n",
					m.Seq, m.Field, formatValue(m.Recorded), formatValue(m.Replayed))
			}
		}
		fmt.Fprintln(w)
	}

	if summary.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
