package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/explorer/internal/sandbox"
	"github.com/michaelbrown/explorer/internal/storage"
)

var (
	outcomeFilter string
	limitFlag     int
	exportFormat  string
	exportOutput  string
	forceFlag     bool
)

var runsCmd = &cobra.Command{
	Use:     "runs",
	Aliases: []string{"run-log", "r"},
	Short:   "Inspect the run journal",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's code and result",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsExport,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd, runsExportCmd)

	runsListCmd.Flags().StringVar(&outcomeFilter, "status", "", "Filter by outcome (success, failure)")
	runsListCmd.Flags().IntVar(&limitFlag, "limit", 20, "Max runs to show")

	runsExportCmd.Flags().StringVar(&exportFormat, "format", "md", "Export format: md or json")
	runsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	runsDeleteCmd.Flags().BoolVar(&forceFlag, "force", false, "Skip confirmation")
}

func openJournal() (storage.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Journal.Enabled {
		return nil, fmt.Errorf("the run journal is disabled (journal.enabled: false)")
	}
	return openStore(cfg)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	outcome := sandbox.Outcome(outcomeFilter)
	switch outcome {
	case "", sandbox.OutcomeSuccess, sandbox.OutcomeFailure:
	default:
		return fmt.Errorf("unknown status %q (want success or failure)", outcomeFilter)
	}

	store, err := openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), storage.RunListOptions{
		Outcome: outcome,
		Limit:   limitFlag,
	})
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	// Header
	fmt.Printf("%-10s %-9s %-9s %-8s %-42s %s\n", "ID", "OUTCOME", "BACKEND", "TIME", "CODE", "CREATED")
	fmt.Println(strings.Repeat("─", 95))

	for _, r := range runs {
		fmt.Printf("%-10s %-9s %-9s %-8s %-42s %s\n",
			shortID(r.ID), r.Outcome, r.Backend, fmt.Sprintf("%dms", r.DurationMS),
			firstLine(r.Source, 40), timeAgo(r.CreatedAt))
	}

	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Run:      %s\n", r.ID)
	fmt.Printf("Outcome:  %s\n", r.Outcome)
	fmt.Printf("Backend:  %s\n", r.Backend)
	fmt.Printf("Duration: %dms\n", r.DurationMS)
	fmt.Printf("Created:  %s\n", r.CreatedAt.Format(time.RFC3339))

	p := newPainter(os.Stdout)
	fmt.Printf("\nCode:\n")
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println(p.cyan(strings.TrimRight(r.Source, "\n")))
	fmt.Println(strings.Repeat("─", 60))

	if r.Outcome == sandbox.OutcomeFailure {
		fmt.Println(p.red("Error: " + r.Message))
		return nil
	}
	fmt.Print(r.Output)
	if r.Truncated {
		fmt.Println(p.gray("[output truncated]"))
	}
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	r, err := store.GetRun(ctx, args[0])
	if err != nil {
		return err
	}

	if !forceFlag {
		fmt.Printf("Delete run %s - %q? [y/N] ", shortID(r.ID), firstLine(r.Source, 40))
		var confirm string
		fmt.Scanln(&confirm)
		if strings.ToLower(confirm) != "y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := store.DeleteRun(ctx, r.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted run %s\n", shortID(r.ID))
	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	var output string
	switch exportFormat {
	case "json":
		data, err := storage.ExportJSON(r)
		if err != nil {
			return err
		}
		output = string(data) + "\n"
	case "md", "markdown":
		output = storage.ExportMarkdown(r)
	default:
		return fmt.Errorf("unknown format %q (want md or json)", exportFormat)
	}

	if exportOutput != "" {
		return os.WriteFile(exportOutput, []byte(output), 0o644)
	}

	fmt.Print(output)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// firstLine returns the first non-empty line of code, cut to maxLen.
func firstLine(code string, maxLen int) string {
	for _, line := range strings.Split(code, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return truncate(line, maxLen)
		}
	}
	return "(empty)"
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return s[:maxLen] + ".."
	}
	return s
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
