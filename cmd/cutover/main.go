package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cutover/cutover/pkg/cluster"
	"github.com/cutover/cutover/pkg/config"
	"github.com/cutover/cutover/pkg/log"
	"github.com/cutover/cutover/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Exit codes. ExitMigrationInProgress is reserved so callers can tell an
// in-flight run apart from other fatal errors.
const (
	ExitOK                  = 0
	ExitError               = 1
	ExitMigrationInProgress = 3
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, types.ErrMigrationInProgress) {
			os.Exit(ExitMigrationInProgress)
		}
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cutover",
	Short: "Cutover - zero-downtime blue/green release orchestrator",
	Long: `Cutover promotes a candidate deployment into the idle environment,
gates promotion on health and policy-compliance checks, migrates live
traffic to the candidate in discrete steps, and automatically reverts
on any failure signal.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Cutover version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringP("config", "c", "cutover.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().String("kubeconfig", "", "Path to kubeconfig (default: in-cluster, then standard loading rules)")
}

// setup loads configuration, initializes logging, and builds the cluster
// client shared by all commands
func setup(cmd *cobra.Command) (*config.Config, cluster.Interface, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})

	kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
	c, err := cluster.NewKubeCluster(kubeconfig)
	if err != nil {
		return nil, nil, err
	}
	return cfg, c, nil
}

// routerRef converts the configured router reference
func routerRef(cfg *config.Config) cluster.RouterRef {
	return cluster.RouterRef{
		Name:      cfg.Router.Name,
		Namespace: cfg.Router.Namespace,
	}
}

// environments builds the typed environment map from configuration
func environments(cfg *config.Config) map[string]types.Environment {
	return map[string]types.Environment{
		types.EnvBlue:  cfg.Environment(types.EnvBlue),
		types.EnvGreen: cfg.Environment(types.EnvGreen),
	}
}
