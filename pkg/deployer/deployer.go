package deployer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cutover/cutover/pkg/cluster"
	"github.com/cutover/cutover/pkg/log"
	"github.com/cutover/cutover/pkg/types"
)

// Deployer applies the full workload set into the idle environment and
// blocks until every component reports ready or the deploy times out
type Deployer struct {
	cluster      cluster.Interface
	services     []types.ServiceSpec
	pollInterval time.Duration
}

// New creates a Deployer for the configured service set
func New(c cluster.Interface, services []types.ServiceSpec, pollInterval time.Duration) *Deployer {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Deployer{
		cluster:      c,
		services:     services,
		pollInterval: pollInterval,
	}
}

// Deploy applies shared infrastructure first, then application services,
// and polls readiness until timeout. Explicit failure states (crash-loop,
// image-pull error) surface as PartialFailureError without waiting out the
// timeout: they indicate a bad candidate, not transient slowness.
func (d *Deployer) Deploy(ctx context.Context, target types.Environment, timeout time.Duration) error {
	logger := log.WithComponent("deployer")

	for _, tier := range []types.ServiceTier{types.TierInfra, types.TierApp} {
		for _, svc := range d.services {
			if svc.Tier != tier {
				continue
			}
			manifest := cluster.BuildManifest(target, svc)
			if err := d.cluster.Apply(ctx, manifest); err != nil {
				return fmt.Errorf("failed to apply %s: %w", svc.Name, err)
			}
			logger.Info().
				Str("service", svc.Name).
				Str("tier", string(tier)).
				Str("environment", target.Name).
				Msg("workload applied")
		}
	}

	return d.awaitReadiness(ctx, target, timeout)
}

func (d *Deployer) awaitReadiness(ctx context.Context, target types.Environment, timeout time.Duration) error {
	logger := log.WithComponent("deployer")
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	selector := map[string]string{types.SelectorEnvKey: target.Name}
	for {
		status, err := d.cluster.GetReadiness(deadlineCtx, target.Namespace, selector)
		if err != nil && deadlineCtx.Err() == nil {
			return fmt.Errorf("failed to read readiness: %w", err)
		}

		if err == nil {
			if failed := status.Failed(); len(failed) > 0 {
				pf := &types.PartialFailureError{}
				for _, s := range failed {
					pf.Services = append(pf.Services, s.Service)
					pf.Reasons = append(pf.Reasons, s.FailureReasons...)
				}
				return pf
			}
			if d.allExpectedReady(status) {
				logger.Info().
					Str("environment", target.Name).
					Int("services", len(d.services)).
					Msg("candidate environment ready")
				return nil
			}
		}

		select {
		case <-ticker.C:
		case <-deadlineCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: readiness not reached within %s", types.ErrDeployTimeout, timeout)
		}
	}
}

// allExpectedReady requires every configured service to be present and
// fully ready; extra workloads in the namespace are ignored
func (d *Deployer) allExpectedReady(status cluster.ReadinessStatus) bool {
	ready := make(map[string]bool, len(status.Services))
	for _, s := range status.Services {
		ready[s.Service] = s.ReadyReplicas >= s.DesiredReplicas && s.DesiredReplicas > 0
	}
	for _, svc := range d.services {
		if !ready[svc.Name] {
			return false
		}
	}
	return true
}

// IsFatal reports whether a deploy error is a candidate failure rather
// than a cancellation
func IsFatal(err error) bool {
	var pf *types.PartialFailureError
	return errors.Is(err, types.ErrDeployTimeout) || errors.As(err, &pf)
}
