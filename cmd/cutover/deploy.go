package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cutover/cutover/pkg/deployer"
	"github.com/cutover/cutover/pkg/events"
	"github.com/cutover/cutover/pkg/metrics"
	"github.com/cutover/cutover/pkg/migrator"
	"github.com/cutover/cutover/pkg/monitor"
	"github.com/cutover/cutover/pkg/probe"
	"github.com/cutover/cutover/pkg/report"
	"github.com/cutover/cutover/pkg/resolver"
	"github.com/cutover/cutover/pkg/rollback"
	"github.com/cutover/cutover/pkg/store"
	"github.com/cutover/cutover/pkg/validator"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run a full blue/green migration to completion or abort",
	Long: `Deploy promotes the candidate into the idle environment, validates it,
then shifts traffic in fixed steps (20/40/60/80/100%), re-validating
after each step's dwell period. Any failure signal aborts the run and,
if traffic has already moved, rolls back to the previous environment.

A second deploy while a run is in flight is rejected (exit code 3).`,
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, c, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			_ = http.ListenAndServe(cfg.MetricsAddr, mux)
		}()
	}

	runStore, err := store.Open(cfg.OutputDir)
	if err != nil {
		return err
	}
	defer runStore.Close()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for event := range sub {
			switch event.Type {
			case events.EventStepApplied:
				fmt.Printf("  %3d%% -> %s\n", event.Percentage, event.Environment)
			case events.EventValidationFailed:
				fmt.Printf("  validation failed: %s\n", event.Message)
			case events.EventRolledBack:
				fmt.Printf("  rolled back to %s\n", event.Environment)
			}
		}
	}()

	router := routerRef(cfg)
	envs := environments(cfg)

	prober := probe.New(cfg.Validate.ProbeTimeout.Std(), probe.RetryPolicy{
		MaxRetries:      uint64(cfg.Validate.Retries),
		InitialInterval: cfg.Validate.RetryInterval.Std(),
		MaxInterval:     cfg.Validate.ProbeTimeout.Std(),
	})
	v := validator.New(prober, validator.Config{
		Concurrency:     cfg.Validate.Concurrency,
		ComplianceFloor: cfg.Validate.ComplianceFloor,
	})

	m := migrator.New(migrator.Deps{
		Cluster:   c,
		Router:    router,
		Resolver:  resolver.New(c, router, envs),
		Deployer:  deployer.New(c, cfg.Services, cfg.Deploy.PollInterval.Std()),
		Validator: v,
		Rollback:  rollback.New(c, router, broker),
		Monitor: monitor.New(v, c, cfg.Services, monitor.Config{
			Interval:  cfg.Stability.Interval.Std(),
			SlowProbe: cfg.Stability.SlowProbe.Std(),
		}, broker),
		Store:    runStore,
		Broker:   broker,
		Services: cfg.Services,
	}, migrator.Config{
		DeployTimeout:   cfg.Deploy.Timeout.Std(),
		Dwell:           cfg.Migrate.Dwell.Std(),
		StabilityWindow: cfg.Stability.Window.Std(),
	})

	runCtx, cancel := context.WithTimeout(ctx, cfg.Migrate.RunTimeout.Std())
	defer cancel()

	run, runErr := m.Run(runCtx)
	if run == nil {
		return runErr
	}

	rep := report.Generate(run)
	path, err := report.NewWriter(cfg.OutputDir).Write(rep)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to write report: %v\n", err)
	} else {
		fmt.Printf("Report written to %s\n", path)
	}

	fmt.Print(rep.Render())
	if runErr != nil {
		return fmt.Errorf("deployment %s: %w", run.Outcome, runErr)
	}
	return nil
}
