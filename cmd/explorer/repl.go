package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/explorer/internal/lessons"
	"github.com/michaelbrown/explorer/internal/runner"
)

const (
	promptFirst = ">>> "
	promptMore  = "... "
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive scratchpad",
	Long: `Start an interactive scratchpad. Lines accumulate into a block; an empty
line runs the block. Every block runs on its own, so names defined in one
block are not visible in the next.

Examples:
  explorer repl
  explorer repl --backend docker`,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

// scratchpad is the state of one repl session.
type scratchpad struct {
	runner *runner.Runner
	block  []string
	out    io.Writer
	errOut *os.File

	mu     sync.Mutex
	cancel context.CancelFunc // in-flight run
}

func runRepl(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	pad := &scratchpad{runner: sess.runner, out: os.Stdout, errOut: os.Stderr}

	fmt.Printf("Explorer - Interactive Scratchpad\n")
	fmt.Printf("Backend: %s\n", sess.runner.Backend())
	fmt.Printf("Enter code, then an empty line to run it. Type /help for commands, /quit to exit\n\n")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptFirst,
		HistoryFile:     filepath.Join(os.TempDir(), "explorer_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	// Ctrl+C cancels the active run, not the whole app.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			pad.interrupt()
		}
	}()

	for {
		if len(pad.block) == 0 {
			rl.SetPrompt(promptFirst)
		} else {
			rl.SetPrompt(promptMore)
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) && len(pad.block) > 0 {
				pad.block = nil
				fmt.Println("(block cleared)")
				continue
			}
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		if quit := pad.handleLine(line); quit {
			fmt.Println("Goodbye!")
			return nil
		}
	}
}

// handleLine consumes one input line and reports whether the session should
// end.
func (p *scratchpad) handleLine(line string) bool {
	trimmed := strings.TrimSpace(line)

	if len(p.block) == 0 && strings.HasPrefix(trimmed, "/") {
		return p.handleCommand(trimmed)
	}

	if trimmed != "" {
		p.block = append(p.block, line)
		return false
	}
	if len(p.block) == 0 {
		return false
	}

	code := strings.Join(p.block, "\n") + "\n"
	p.block = nil
	p.execute(code)
	return false
}

func (p *scratchpad) handleCommand(input string) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit", "/q":
		return true
	case "/clear":
		p.block = nil
		fmt.Fprintln(p.out, "Block cleared.")
		fmt.Fprintln(p.out)
	case "/example":
		content, err := lessons.Load()
		if err != nil {
			fmt.Fprintln(p.errOut, newPainter(p.errOut).red("error: "+err.Error()))
			return false
		}
		fmt.Fprintln(p.out, newPainter(os.Stdout).cyan(strings.TrimRight(content.Playground, "\n")))
		fmt.Fprintln(p.out)
		p.execute(content.Playground)
	case "/help":
		fmt.Fprintln(p.out, "Commands:")
		fmt.Fprintln(p.out, "  /help     - Show this help")
		fmt.Fprintln(p.out, "  /clear    - Discard the block being typed")
		fmt.Fprintln(p.out, "  /example  - Run the playground example")
		fmt.Fprintln(p.out, "  /quit     - Exit")
		fmt.Fprintln(p.out)
	default:
		fmt.Fprintf(p.out, "Unknown command: %s (try /help)\n\n", input)
	}
	return false
}

// execute runs one block as an independent submission.
func (p *scratchpad) execute(code string) {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	run := p.runner.Run(ctx, code, nil)

	p.mu.Lock()
	p.cancel = nil
	p.mu.Unlock()
	cancel()

	// The error only carries the exit status for the run command.
	_ = report(p.out, p.errOut, run.Result())
	fmt.Fprintln(p.out)
}

func (p *scratchpad) interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}
