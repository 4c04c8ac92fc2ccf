package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ashutoshrp06/switchboard/internal/journal"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal [run-id]",
	Short: "Show recorded runs",
	Long: `Show recent runs from the run journal, or one run in full.

The journal is enabled by setting journal.driver (sqlite or mysql) and journal.dsn.

Examples:
  switchboard journal            # Most recent runs
  switchboard journal -n 50      # More runs
  switchboard journal <run-id>   # One run with its transcript`,
	Args: cobra.MaximumNArgs(1),
	Run:  runJournal,
}

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 10, "Number of runs to show")
}

func runJournal(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		printError("Could not load config", err)
		os.Exit(1)
	}
	if cfg.Journal.Driver == "" {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).
			Render("The run journal is disabled. Set journal.driver and journal.dsn to enable it."))
		return
	}

	store, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		printError("Failed to open journal", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(args) == 1 {
		run, err := store.Get(ctx, args[0])
		if err != nil {
			printError("Failed to read run", err)
			os.Exit(1)
		}
		printRun(run)
		return
	}

	runs, err := store.Recent(ctx, journalLimit)
	if err != nil {
		printError("Failed to read journal", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return
	}
	for _, run := range runs {
		fmt.Println(runSummary(run))
	}
}

var (
	journalDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	journalErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	journalHead = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true)
)

func runSummary(run journal.Run) string {
	status := "ok"
	if run.ErrorCode != "" {
		status = journalErr.Render(string(run.ErrorCode))
	}
	return fmt.Sprintf("%s  %s  %-12s %-8s %s\n    %s",
		journalDim.Render(run.CreatedAt.Format(time.DateTime)),
		journalHead.Render(run.ID),
		run.Mode,
		status,
		journalDim.Render(run.Duration.Round(time.Millisecond).String()),
		truncate(run.Input, 100))
}

func printRun(run journal.Run) {
	fmt.Println(runSummary(run))
	fmt.Println()
	fmt.Println(journalHead.Render("Answer"))
	fmt.Println(run.Answer)
	if run.Error != "" {
		fmt.Println(journalErr.Render("Error: " + run.Error))
	}

	if len(run.Steps) > 0 {
		fmt.Println()
		fmt.Println(journalHead.Render("Steps"))
		for _, s := range run.Steps {
			fmt.Printf("  %d. %s\n", s.Index+1, truncate(s.Content, 200))
		}
	}

	if len(run.Transcript) > 0 {
		fmt.Println()
		fmt.Println(journalHead.Render("Transcript"))
		for _, m := range run.Transcript {
			content := m.Content
			for _, c := range m.Calls {
				content += fmt.Sprintf(" [%s %v]", c.Name, c.Arguments)
			}
			fmt.Printf("  %s %s\n", journalDim.Render(string(m.Role)+":"), truncate(content, 200))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
