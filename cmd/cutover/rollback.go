package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cutover/cutover/pkg/resolver"
	"github.com/cutover/cutover/pkg/rollback"
	"github.com/cutover/cutover/pkg/store"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Force an immediate traffic restore without a preceding migration",
	Long: `Rollback atomically points the router at a known-good environment.
Without --to it restores the environment the router's settled selector
names, which collapses any in-progress weighted split.`,
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().String("to", "", "Environment to restore (blue or green)")
	rollbackCmd.Flags().String("reason", "operator-initiated rollback", "Reason recorded in the rollback event")
	rollbackCmd.Flags().Bool("clear-stale-run", false, "Also release a stale active-run marker left by a crashed run")

	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	cfg, c, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	router := routerRef(cfg)
	envs := environments(cfg)

	target, _ := cmd.Flags().GetString("to")
	if target == "" {
		state, err := resolver.New(c, router, envs).State(ctx)
		if err != nil {
			return err
		}
		target = state.ActiveEnv
		if target == "" {
			return fmt.Errorf("router selector is unset; pass --to to choose an environment")
		}
	}
	env, ok := envs[target]
	if !ok {
		return fmt.Errorf("unknown environment %q", target)
	}

	reason, _ := cmd.Flags().GetString("reason")
	event, err := rollback.New(c, router, nil).Rollback(ctx, env, reason)
	if err != nil {
		return err
	}
	fmt.Printf("Traffic restored to %s at %s\n", event.RestoredEnv, event.TriggeredAt.Format("15:04:05"))

	if clear, _ := cmd.Flags().GetBool("clear-stale-run"); clear {
		runStore, err := store.Open(cfg.OutputDir)
		if err != nil {
			return err
		}
		defer runStore.Close()
		if err := runStore.ClearActive(); err != nil {
			return err
		}
		fmt.Println("Active-run marker cleared")
	}
	return nil
}
