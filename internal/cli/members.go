package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fluentchain/internal/chain"
	"github.com/roach88/fluentchain/internal/harness"
)

// MembersResult lists what a chain over a target answers to.
type MembersResult struct {
	Target     string   `json:"target"`
	Prefix     string   `json:"prefix"`
	Operations []string `json:"operations"`
	Members    []string `json:"members"`
}

// NewMembersCommand creates the members command.
func NewMembersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members [target]",
		Short: "List the keys a chain over a target answers to",
		Long: `List the meta-operations and proxy members reachable from a chain.

Without a target, the registered target names are listed.

Examples:
  fluentchain members
  fluentchain members shapes
  fluentchain members square --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMembers(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runMembers(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if len(args) == 0 {
		targets := harness.Targets()
		if formatter.IsJSON() {
			return formatter.JSON(CLIResponse{Status: "ok", Data: targets})
		}
		return formatter.Success(strings.Join(targets, "\n"))
	}

	target, err := harness.NewTarget(args[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown target", err)
	}

	c := chain.New(target, opts.Config.ChainOptions()...)
	prefix := c.Engine().Options().Prefix

	result := MembersResult{Target: args[0], Prefix: prefix, Operations: []string{}, Members: []string{}}
	for _, name := range c.Members() {
		if strings.HasPrefix(name, prefix) {
			result.Operations = append(result.Operations, name)
		} else {
			result.Members = append(result.Members, name)
		}
	}

	if formatter.IsJSON() {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Target: %s\n", result.Target)
	fmt.Fprintf(w, "Operations (%d):\n", len(result.Operations))
	for _, name := range result.Operations {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintf(w, "Members (%d):\n", len(result.Members))
	for _, name := range result.Members {
		fmt.Fprintf(w, "  %s\n", name)
	}
	return nil
}
