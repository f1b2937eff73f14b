package rollback

import (
	"context"
	"time"

	"github.com/cutover/cutover/pkg/cluster"
	"github.com/cutover/cutover/pkg/events"
	"github.com/cutover/cutover/pkg/log"
	"github.com/cutover/cutover/pkg/metrics"
	"github.com/cutover/cutover/pkg/types"
)

// Controller restores the router to a known-good environment in a single
// atomic patch. No gradual step-down: during a rollback the priority is
// minimizing blast radius, not smoothness.
type Controller struct {
	cluster cluster.Interface
	router  cluster.RouterRef
	broker  *events.Broker
}

// New creates a Controller. The broker may be nil.
func New(c cluster.Interface, router cluster.RouterRef, broker *events.Broker) *Controller {
	return &Controller{
		cluster: c,
		router:  router,
		broker:  broker,
	}
}

// Rollback atomically points the router back at to and records the
// emergency. A patch failure is RollbackFailureError and is never
// auto-retried: retrying a failed rollback risks flapping between
// environments, so it escalates to the operator instead.
func (c *Controller) Rollback(ctx context.Context, to types.Environment, reason string) (*types.RollbackEvent, error) {
	emergency := log.Emergency()
	emergency.Error().
		Str("restore_env", to.Name).
		Str("reason", reason).
		Msg("emergency rollback triggered")

	if c.broker != nil {
		c.broker.Publish(&events.Event{
			Type:        events.EventRollbackStarted,
			Environment: to.Name,
			Message:     reason,
		})
	}

	selector := types.RouterState{ActiveEnv: to.Name}.Selector()
	if err := c.cluster.PatchSelector(ctx, c.router, selector); err != nil {
		emergency.Error().
			Err(err).
			Str("restore_env", to.Name).
			Msg("rollback patch failed, manual intervention required")
		return nil, &types.RollbackFailureError{RestoreEnv: to.Name, Err: err}
	}

	metrics.RollbacksTotal.Inc()
	event := &types.RollbackEvent{
		Reason:      reason,
		TriggeredAt: time.Now(),
		RestoredEnv: to.Name,
	}

	emergency.Warn().
		Str("restore_env", to.Name).
		Msg("traffic restored")
	if c.broker != nil {
		c.broker.Publish(&events.Event{
			Type:        events.EventRolledBack,
			Environment: to.Name,
			Message:     reason,
		})
	}
	return event, nil
}
