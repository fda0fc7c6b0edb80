// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/webpress/internal/display"
	"github.com/pdiddy/webpress/internal/history"
	"github.com/pdiddy/webpress/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded conversion runs from the history ledger",
	Long: `History lists recent conversion runs recorded in the SQLite ledger:
when they ran, how many files converted or failed, and how much space
each run saved. Pass a run ID to see the per-file detail for that run.

The ledger is written by convert (unless --no-history was given) and is
never consulted during conversion.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := ledgerPath(cmd)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("No history ledger at %s. Run a conversion first.\n", path)
		return nil
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")

	if len(args) == 1 {
		results, err := store.FilesFor(context.Background(), args[0])
		if err != nil {
			return err
		}
		return formatFilesOutput(args[0], results, jsonOutput)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	return formatRunsOutput(runs, jsonOutput)
}

func formatRunsOutput(runs []types.RunRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-16s  %-6s  %-6s  %-10s  %s\n",
		"ID", "Started", "Conv", "Failed", "Saved", "Input")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, rec := range runs {
		saved := "-"
		if s := rec.Stats.SpaceSaved(); s > 0 {
			saved = display.FormatBytes(s)
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-16s  %-6d  %-6d  %-10s  %s\n",
			rec.ID, rec.StartedAt.Local().Format("2006-01-02 15:04"),
			rec.Stats.Converted, rec.Stats.Failed, saved, rec.InputDir)
	}

	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

func formatFilesOutput(runID string, results []types.Result, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Printf("No files recorded for run %s.\n", runID)
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-30s  %-10s  %-22s  %-7s  %s\n",
		"File", "Status", "Size", "Saved", "Error")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, res := range results {
		name := filepath.Base(res.Job.InputPath)
		if len(name) > 30 {
			name = name[:27] + "..."
		}

		size := display.FormatBytes(res.OriginalBytes)
		saved := ""
		if res.Status == types.StatusConverted {
			size = fmt.Sprintf("%s -> %s", size, display.FormatBytes(res.ConvertedBytes))
			saved = fmt.Sprintf("%.1f%%", res.SavedPercent())
		}

		fmt.Fprintf(os.Stdout, "%-30s  %-10s  %-22s  %-7s  %s\n",
			name, res.Status, size, saved, res.Err)
	}

	fmt.Fprintf(os.Stdout, "\n%d files\n", len(results))
	return nil
}

// ledgerPath resolves the ledger location the same way convert does:
// explicit --db flag, then the configured history path, then the default
// spot inside the output folder.
func ledgerPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		return path
	}

	out, _ := cmd.Flags().GetString("output")
	cfg := types.ConvertConfig{
		OutputDir: out,
		History:   types.HistoryConfig{Path: viper.GetString("history.path")},
	}
	return cfg.HistoryPath()
}

func init() {
	historyCmd.Flags().String("db", "", "history ledger location (default <output>/.webpress/history.db)")
	historyCmd.Flags().String("output", types.DefaultOutputDir, "output folder the ledger lives under")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}
