package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fluentchain/internal/store"
	"github.com/roach88/fluentchain/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - all sessions when empty
	Key      string // optional - filter to one key
}

// TraceResult holds the trace of one session.
type TraceResult struct {
	Session  string         `json:"session"`
	Target   string         `json:"target"`
	Timeline []trace.Event  `json:"timeline"`
	Stored   map[string]any `json:"stored"`
	Stats    TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for the session.
type TraceStats struct {
	Steps    int   `json:"steps"`
	Resolves int   `json:"resolves"`
	Invokes  int   `json:"invokes"`
	Bypasses int   `json:"bypasses"`
	Errors   int   `json:"errors"`
	MaxDepth int   `json:"max_depth"`
	LastSeq  int64 `json:"last_seq"`
}

func newTraceStats(sum store.SessionSummary) TraceStats {
	return TraceStats{
		Steps:    sum.StepCount,
		Resolves: sum.StepCount - sum.InvokeCount,
		Invokes:  sum.InvokeCount,
		Bypasses: sum.BypassCount,
		Errors:   sum.ErrorCount,
		MaxDepth: sum.MaxDepth,
		LastSeq:  sum.LastSeq,
	}
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the recorded steps of a session",
		Long: `Show what a recorded chain did, step by step.

The output includes:
- Timeline: every resolve and invoke in seq order
- Stored: the values the chain stored by name
- Stats: step counts, bypassing calls and errors

Without --session, the recorded sessions are listed.

Examples:
  fluentchain trace --db ./chain.db
  fluentchain trace --db ./chain.db --session test-session-default
  fluentchain trace --db ./chain.db --session test-session-default --key create
  fluentchain trace --db ./chain.db --session test-session-default --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required unless set in config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to trace")
	cmd.Flags().StringVar(&opts.Key, "key", "", "filter to steps for one key")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
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

	if opts.Session == "" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		if formatter.IsJSON() {
			return formatter.JSON(CLIResponse{Status: "ok", Data: sessions})
		}
		if len(sessions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  target=%s\n", s.Token, s.Target)
		}
		return nil
	}

	sess, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, sql.ErrNoRows) {
		if formatter.IsJSON() {
			_ = formatter.Error(ErrCodeNotFound, "session not found: "+opts.Session, nil)
		}
		return NewExitError(ExitCommandError, "session not found: "+opts.Session)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	steps, err := st.ReadSteps(ctx, sess.Token)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read steps", err)
	}
	stored, err := st.ReadStoredValues(ctx, sess.Token)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read stored values", err)
	}
	summary, err := st.Summarize(ctx, sess.Token)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to summarize session", err)
	}

	result := TraceResult{
		Session:  sess.Token,
		Target:   sess.Target,
		Timeline: filterSteps(steps, opts.Key),
		Stored:   stored,
		Stats:    newTraceStats(summary),
	}

	if formatter.IsJSON() {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result, Session: sess.Token})
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

// filterSteps keeps the steps for key, or all of them when key is empty.
func filterSteps(steps []trace.Event, key string) []trace.Event {
	if key == "" {
		return steps
	}
	out := []trace.Event{}
	for _, ev := range steps {
		if ev.Key == key {
			out = append(out, ev)
		}
	}
	return out
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Session: %s (target %s)\n", result.Session, result.Target)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no steps)")
	}
	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "  %s\n", formatStep(ev))
		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", truncateID(ev.ID))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stored ===")
	if len(result.Stored) == 0 {
		fmt.Fprintln(w, "  (nothing stored)")
	} else {
		fmt.Fprintf(w, "  %s\n", formatArgs(result.Stored))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Steps:    %d\n", result.Stats.Steps)
	fmt.Fprintf(w, "  Resolves: %d\n", result.Stats.Resolves)
	fmt.Fprintf(w, "  Invokes:  %d\n", result.Stats.Invokes)
	fmt.Fprintf(w, "  Bypasses: %d\n", result.Stats.Bypasses)
	fmt.Fprintf(w, "  Errors:   %d\n", result.Stats.Errors)
	fmt.Fprintf(w, "  Depth:    %d\n", result.Stats.MaxDepth)

	return nil
}

// formatStep formats a single step on one line.
func formatStep(ev trace.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] ", ev.Seq)
	switch ev.Kind {
	case trace.KindResolve:
		fmt.Fprintf(&b, "GET %s", ev.Key)
	default:
		fmt.Fprintf(&b, "CALL %s", ev.Key)
		args, _ := ev.Args.([]any)
		kwargs, _ := ev.Kwargs.(map[string]any)
		parts := make([]string, 0, len(args)+len(kwargs))
		for _, a := range args {
			parts = append(parts, formatValue(a))
		}
		keys := make([]string, 0, len(kwargs))
		for k := range kwargs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+"="+formatValue(kwargs[k]))
		}
		fmt.Fprintf(&b, "(%s)", strings.Join(parts, ", "))
	}

	switch {
	case ev.Error != "":
		fmt.Fprintf(&b, " !! %s", ev.Error)
	case ev.Bypass:
		fmt.Fprintf(&b, " => %s (bypass)", formatValue(ev.Result))
	case ev.Result != nil:
		fmt.Fprintf(&b, " -> %s", formatValue(ev.Result))
	}
	if ev.ProxyDepth > 0 {
		fmt.Fprintf(&b, " [depth %d]", ev.ProxyDepth)
	}
	return b.String()
}

// formatArgs formats a map for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
