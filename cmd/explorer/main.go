package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	backendFlag string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "explorer",
	Short: "Explorer - interactive objects & variables lessons",
	Long: `Explorer teaches variables, lists and tuples, dictionaries and ad-hoc
code execution through a web page, a terminal scratchpad and an MCP tool.

Snippets run in Starlark, a hermetic Python dialect, or in a Docker
container with CPython when the docker backend is selected.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Execution backend: starlark or docker (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log every run in terminal commands")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit exitError
		if !errors.As(err, &exit) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// exitError ends the process with a non-zero status after the command has
// already reported the problem itself.
type exitError struct{ reason string }

func (e exitError) Error() string { return e.reason }
