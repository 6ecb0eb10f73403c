// Package cmd implements the weavec command tree: a root command plus a
// single compile subcommand (SPEC_FULL.md §10). It is patterned on
// cmd/cue/cmd's Command wrapper — a *cobra.Command embedded so callers
// get cobra's help/usage machinery for free, with a thin New/Main pair
// so main.go stays a one-liner.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Command is the currently active weavec command.
type Command struct {
	*cobra.Command
}

// New builds the weavec root command and attaches every subcommand.
func New(args []string) *Command {
	root := &cobra.Command{
		Use:           "weavec",
		Short:         "weavec compiles a resolved Weave declaration to Code",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	c := &Command{Command: root}

	root.AddCommand(newCompileCmd(c))
	root.SetArgs(args)
	return c
}

// Main runs weavec and returns the process exit code.
func Main() int {
	c := New(os.Args[1:])
	if err := c.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
