package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cutover/cutover/pkg/monitor"
	"github.com/cutover/cutover/pkg/probe"
	"github.com/cutover/cutover/pkg/resolver"
	"github.com/cutover/cutover/pkg/validator"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [duration]",
	Short: "Run the stability monitor standalone against the active environment",
	Long: `Monitor polls health and readiness of the active environment at the
configured cadence, printing warnings without taking corrective action.
The optional duration argument overrides the configured window.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, c, err := setup(cmd)
	if err != nil {
		return err
	}

	window := cfg.Stability.Window.Std()
	if len(args) == 1 {
		window, err = time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", args[0], err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	active, _, err := resolver.New(c, routerRef(cfg), environments(cfg)).Resolve(ctx)
	if err != nil {
		return err
	}

	prober := probe.New(cfg.Validate.ProbeTimeout.Std(), probe.RetryPolicy{
		MaxRetries:      uint64(cfg.Validate.Retries),
		InitialInterval: cfg.Validate.RetryInterval.Std(),
		MaxInterval:     cfg.Validate.ProbeTimeout.Std(),
	})
	v := validator.New(prober, validator.Config{
		Concurrency:     cfg.Validate.Concurrency,
		ComplianceFloor: cfg.Validate.ComplianceFloor,
	})

	warnings := monitor.New(v, c, cfg.Services, monitor.Config{
		Interval:  cfg.Stability.Interval.Std(),
		SlowProbe: cfg.Stability.SlowProbe.Std(),
	}, nil).Run(ctx, active, window)

	if len(warnings) == 0 {
		fmt.Printf("No warnings for %s over %s\n", active.Name, window)
		return nil
	}
	fmt.Printf("%d warning(s) for %s:\n", len(warnings), active.Name)
	for _, w := range warnings {
		fmt.Printf("  [%s] %s %s\n", w.Source, w.ObservedAt.Format("15:04:05"), w.Message)
	}
	return nil
}
