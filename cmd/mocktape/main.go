// mocktape CLI - inspect cassettes and run mock flows from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:           "mocktape",
		Short:         "Deterministic request/response virtualization for test suites",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCassetteCmd())
	root.AddCommand(newFlowCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mocktape %s (%s)\n", Version, Commit)
		},
	}
}
