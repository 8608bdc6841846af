package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/explorer/internal/sandbox"
)

var runCmd = &cobra.Command{
	Use:   "run [file|-]",
	Short: "Run a snippet and print its output",
	Long: `Run a snippet from a file, or from stdin when the argument is "-" or
missing. Captured output goes to stdout. A failing snippet prints its error
message to stderr and exits with status 1.

Examples:
  explorer run grades.star
  echo 'print("hello")' | explorer run
  explorer run --backend docker script.py`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// readSource reads the snippet named by args, falling back to stdin.
func readSource(args []string, stdin io.Reader) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading snippet: %w", err)
	}
	return string(data), nil
}

func runRun(cmd *cobra.Command, args []string) error {
	code, err := readSource(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := sess.runner.Run(ctx, code, nil)
	return report(cmd.OutOrStdout(), os.Stderr, run.Result())
}

// report prints a result the way the terminal commands show it: output on
// stdout, failures and notes on stderr.
func report(stdout io.Writer, stderr *os.File, res sandbox.Result) error {
	p := newPainter(stderr)
	if !res.OK() {
		fmt.Fprintln(stderr, p.red("Error: "+res.Message))
		return exitError{reason: res.Message}
	}
	fmt.Fprint(stdout, res.Output)
	if res.Truncated {
		fmt.Fprintln(stderr, p.gray("[output truncated]"))
	}
	return nil
}
