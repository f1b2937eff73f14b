package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cutover/cutover/pkg/report"
	"github.com/cutover/cutover/pkg/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past deployment runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 10, "Maximum number of runs to show")
	historyCmd.Flags().String("run", "", "Show the full report for one run ID")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	runStore, err := store.Open(cfg.OutputDir)
	if err != nil {
		return err
	}
	defer runStore.Close()

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		run, err := runStore.GetRun(runID)
		if err != nil {
			return err
		}
		fmt.Print(report.Generate(run).Render())
		return nil
	}

	runs, err := runStore.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No deployment runs recorded")
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	for _, run := range runs {
		fmt.Printf("%s  %s  %s -> %s  steps=%d  %s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Outcome,
			run.SourceEnv,
			run.TargetEnv,
			len(run.Steps),
			run.ID,
		)
	}
	return nil
}
