package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cutover/cutover/pkg/resolver"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current active/idle environments without mutating anything",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, c, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	r := resolver.New(c, routerRef(cfg), environments(cfg))

	state, err := r.State(ctx)
	if err != nil {
		return err
	}
	active, idle, err := r.Resolve(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Active: %s (namespace %s)\n", active.Name, active.Namespace)
	fmt.Printf("Idle:   %s (namespace %s)\n", idle.Name, idle.Namespace)
	if state.Migrating() {
		fmt.Println("Migration in progress:")
		for env, weight := range state.Weights() {
			fmt.Printf("  %s: %d%%\n", env, weight)
		}
	}
	return nil
}
