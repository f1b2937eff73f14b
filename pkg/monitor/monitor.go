package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/cutover/cutover/pkg/cluster"
	"github.com/cutover/cutover/pkg/events"
	"github.com/cutover/cutover/pkg/log"
	"github.com/cutover/cutover/pkg/metrics"
	"github.com/cutover/cutover/pkg/types"
	"github.com/cutover/cutover/pkg/validator"
)

// Monitor polls health and resource signals for a fixed post-migration
// window. It is observational only: warnings are accumulated and reported,
// never acted on, because traffic has already settled and reverting
// post-hoc is outside the migration state machine.
type Monitor struct {
	validator *validator.Validator
	cluster   cluster.Interface
	services  []types.ServiceSpec
	interval  time.Duration
	slowProbe time.Duration
	broker    *events.Broker
}

// Config tunes a Monitor
type Config struct {
	Interval  time.Duration
	SlowProbe time.Duration
}

// New creates a Monitor. The broker may be nil.
func New(v *validator.Validator, c cluster.Interface, services []types.ServiceSpec, cfg Config, broker *events.Broker) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.SlowProbe <= 0 {
		cfg.SlowProbe = 2 * time.Second
	}
	return &Monitor{
		validator: v,
		cluster:   c,
		services:  services,
		interval:  cfg.Interval,
		slowProbe: cfg.SlowProbe,
		broker:    broker,
	}
}

// Run polls env at the configured cadence for duration and returns every
// warning observed. An early context cancellation returns the warnings
// collected so far.
func (m *Monitor) Run(ctx context.Context, env types.Environment, duration time.Duration) []types.Warning {
	logger := log.WithComponent("monitor")
	logger.Info().
		Str("environment", env.Name).
		Dur("window", duration).
		Msg("stability monitoring started")

	windowCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var warnings []types.Warning
	for {
		warnings = append(warnings, m.poll(windowCtx, env)...)

		select {
		case <-ticker.C:
		case <-windowCtx.Done():
			logger.Info().
				Str("environment", env.Name).
				Int("warnings", len(warnings)).
				Msg("stability monitoring finished")
			return warnings
		}
	}
}

func (m *Monitor) poll(ctx context.Context, env types.Environment) []types.Warning {
	if ctx.Err() != nil {
		return nil
	}

	var warnings []types.Warning
	results, _ := m.validator.Validate(ctx, env, m.services)
	for _, r := range results {
		switch {
		case !r.Healthy:
			warnings = append(warnings, types.Warning{
				Source:     "health",
				Message:    fmt.Sprintf("%s: %s", r.Service, r.Message),
				ObservedAt: r.CheckedAt,
			})
		case r.LatencyMs > float64(m.slowProbe.Milliseconds()):
			warnings = append(warnings, types.Warning{
				Source:     "latency",
				Message:    fmt.Sprintf("%s: slow health check (%.0fms)", r.Service, r.LatencyMs),
				ObservedAt: r.CheckedAt,
			})
		}
	}

	selector := map[string]string{types.SelectorEnvKey: env.Name}
	status, err := m.cluster.GetReadiness(ctx, env.Namespace, selector)
	if err == nil {
		for _, s := range status.Services {
			if s.ReadyReplicas < s.DesiredReplicas {
				warnings = append(warnings, types.Warning{
					Source:     "resources",
					Message:    fmt.Sprintf("%s: %d/%d replicas ready", s.Service, s.ReadyReplicas, s.DesiredReplicas),
					ObservedAt: time.Now(),
				})
			}
		}
	}

	logger := log.WithComponent("monitor")
	for _, w := range warnings {
		metrics.StabilityWarnings.Inc()
		logger.Warn().
			Str("source", w.Source).
			Str("environment", env.Name).
			Msg(w.Message)
		if m.broker != nil {
			m.broker.Publish(&events.Event{
				Type:        events.EventStabilityWarning,
				Environment: env.Name,
				Message:     w.Message,
			})
		}
	}
	return warnings
}
