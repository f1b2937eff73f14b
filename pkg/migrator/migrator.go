package migrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cutover/cutover/pkg/cluster"
	"github.com/cutover/cutover/pkg/deployer"
	"github.com/cutover/cutover/pkg/events"
	"github.com/cutover/cutover/pkg/log"
	"github.com/cutover/cutover/pkg/metrics"
	"github.com/cutover/cutover/pkg/monitor"
	"github.com/cutover/cutover/pkg/resolver"
	"github.com/cutover/cutover/pkg/rollback"
	"github.com/cutover/cutover/pkg/store"
	"github.com/cutover/cutover/pkg/types"
	"github.com/cutover/cutover/pkg/validator"
)

// State is one state of the migration machine
type State string

const (
	StateIdle        State = "idle"
	StateDeploying   State = "deploying"
	StateValidating  State = "validating"
	StateMigrating   State = "migrating"
	StateStabilizing State = "stabilizing"
	StateDone        State = "done"
	StateAborting    State = "aborting"
	StateRolledBack  State = "rolled_back"
)

// transitions encodes the legal state machine. Migrating repeats once per
// step of the fixed sequence; the Aborting branch is reachable from
// Validating and any Migrating step, never from Stabilizing.
var transitions = map[State][]State{
	StateIdle:        {StateDeploying},
	StateDeploying:   {StateValidating, StateAborting},
	StateValidating:  {StateMigrating, StateAborting},
	StateMigrating:   {StateMigrating, StateStabilizing, StateAborting},
	StateStabilizing: {StateDone},
	StateAborting:    {StateRolledBack},
	StateDone:        {},
	StateRolledBack:  {},
}

// Config tunes a Migrator
type Config struct {
	// DeployTimeout bounds the candidate deployment phase
	DeployTimeout time.Duration

	// Dwell is the wait between a router patch and the health re-check
	// that gates the next step
	Dwell time.Duration

	// StabilityWindow is how long to monitor after the final step
	StabilityWindow time.Duration
}

// Deps are the collaborators a Migrator drives
type Deps struct {
	Cluster   cluster.Interface
	Router    cluster.RouterRef
	Resolver  *resolver.Resolver
	Deployer  *deployer.Deployer
	Validator *validator.Validator
	Rollback  *rollback.Controller
	Monitor   *monitor.Monitor
	Store     *store.Store
	Broker    *events.Broker
	Services  []types.ServiceSpec
}

// Migrator drives the step-wise traffic-shifting state machine. One
// migrator executes sequentially; the router has exactly one writer at a
// time, so states never run concurrently.
type Migrator struct {
	deps   Deps
	cfg    Config
	state  State
	logger zerolog.Logger
}

// New creates a Migrator in the Idle state
func New(deps Deps, cfg Config) *Migrator {
	return &Migrator{
		deps:   deps,
		cfg:    cfg,
		state:  StateIdle,
		logger: log.WithComponent("migrator"),
	}
}

// State returns the current machine state
func (m *Migrator) State() State {
	return m.state
}

func (m *Migrator) transition(to State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == to {
			m.logger.Debug().
				Str("from", string(m.state)).
				Str("to", string(to)).
				Msg("state transition")
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s", m.state, to)
}

// Run executes one full migration from the active environment to the idle
// one. The returned DeploymentRun is always finalized, even on failure;
// the error carries the fatal cause, if any.
func (m *Migrator) Run(ctx context.Context) (*types.DeploymentRun, error) {
	active, idle, err := m.deps.Resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	run := &types.DeploymentRun{
		ID:        uuid.NewString(),
		SourceEnv: active.Name,
		TargetEnv: idle.Name,
		StartedAt: time.Now(),
	}
	if m.deps.Store != nil {
		if err := m.deps.Store.BeginRun(run); err != nil {
			return nil, err
		}
	}

	m.logger = log.WithComponent("migrator").With().Str("run_id", run.ID).Logger()
	m.logger.Info().
		Str("source", active.Name).
		Str("target", idle.Name).
		Msg("migration started")
	m.publish(events.EventRunStarted, run.ID, idle.Name, 0,
		fmt.Sprintf("migrating %s -> %s", active.Name, idle.Name))

	runErr := m.execute(ctx, run, active, idle)

	run.FinishedAt = time.Now()
	metrics.RunsTotal.WithLabelValues(string(run.Outcome)).Inc()
	metrics.RunDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())

	if m.deps.Store != nil {
		if err := m.deps.Store.FinishRun(run); err != nil {
			m.logger.Error().Err(err).Msg("failed to persist run")
		}
	}
	m.publish(events.EventRunFinished, run.ID, idle.Name, 0, string(run.Outcome))
	m.logger.Info().
		Str("outcome", string(run.Outcome)).
		Int("steps", len(run.Steps)).
		Msg("migration finished")
	return run, runErr
}

func (m *Migrator) execute(ctx context.Context, run *types.DeploymentRun, from, to types.Environment) error {
	if err := m.transition(StateDeploying); err != nil {
		return err
	}
	if err := m.deps.Deployer.Deploy(ctx, to, m.cfg.DeployTimeout); err != nil {
		return m.abort(ctx, run, from, false, err)
	}
	m.publish(events.EventCandidateReady, run.ID, to.Name, 0, "candidate environment ready")

	if err := m.transition(StateValidating); err != nil {
		return err
	}
	results, pass := m.deps.Validator.Validate(ctx, to, m.deps.Services)
	if ctx.Err() != nil {
		return m.abort(ctx, run, from, false, ctx.Err())
	}
	if !pass {
		verr := &types.ValidationError{Environment: to.Name, Failed: validator.Failing(results)}
		m.publish(events.EventValidationFailed, run.ID, to.Name, 0, verr.Error())
		return m.abort(ctx, run, from, false, verr)
	}
	m.publish(events.EventValidationPassed, run.ID, to.Name, 0, "pre-migration validation passed")

	// The sequence is fixed and monotonic: no skipping ahead, no retrying
	// a failed step. A health regression under partial traffic means the
	// candidate is unsafe, not that the check was noisy.
	trafficMoved := false
	for _, percentage := range types.MigrationSteps {
		if err := m.transition(StateMigrating); err != nil {
			return err
		}
		stepStart := time.Now()
		step := types.MigrationStep{Percentage: percentage, AppliedAt: stepStart}

		if err := m.deps.Cluster.PatchSelector(ctx, m.deps.Router, stepSelector(from, to, percentage)); err != nil {
			step.Status = types.StepStatusFailed
			run.Steps = append(run.Steps, step)
			metrics.StepsApplied.WithLabelValues(string(types.StepStatusFailed)).Inc()
			return m.abort(ctx, run, from, trafficMoved, fmt.Errorf("failed to shift traffic to %d%%: %w", percentage, err))
		}
		trafficMoved = true
		m.logger.Info().
			Int("percentage", percentage).
			Str("target", to.Name).
			Msg("traffic shifted")
		m.publish(events.EventStepApplied, run.ID, to.Name, percentage, "traffic shifted")

		// Dwell before re-validating; the patch strictly happens-before
		// this check.
		if err := m.dwell(ctx); err != nil {
			step.Status = types.StepStatusFailed
			run.Steps = append(run.Steps, step)
			metrics.StepsApplied.WithLabelValues(string(types.StepStatusFailed)).Inc()
			return m.abort(ctx, run, from, true, err)
		}

		results, pass := m.deps.Validator.Validate(ctx, to, m.deps.Services)
		step.Validation = results
		if ctx.Err() != nil {
			step.Status = types.StepStatusFailed
			run.Steps = append(run.Steps, step)
			metrics.StepsApplied.WithLabelValues(string(types.StepStatusFailed)).Inc()
			return m.abort(ctx, run, from, true, ctx.Err())
		}
		if !pass {
			step.Status = types.StepStatusFailed
			run.Steps = append(run.Steps, step)
			metrics.StepsApplied.WithLabelValues(string(types.StepStatusFailed)).Inc()
			verr := &types.ValidationError{Environment: to.Name, Failed: validator.Failing(results)}
			m.publish(events.EventValidationFailed, run.ID, to.Name, percentage, verr.Error())
			return m.abort(ctx, run, from, true, verr)
		}

		step.Status = types.StepStatusOK
		run.Steps = append(run.Steps, step)
		metrics.StepsApplied.WithLabelValues(string(types.StepStatusOK)).Inc()
		metrics.StepDuration.Observe(time.Since(stepStart).Seconds())
	}

	if err := m.transition(StateStabilizing); err != nil {
		return err
	}
	if m.deps.Monitor != nil && m.cfg.StabilityWindow > 0 {
		// Warnings during stabilization never revert the migration:
		// traffic has fully settled by now.
		run.Warnings = m.deps.Monitor.Run(ctx, to, m.cfg.StabilityWindow)
	}

	if err := m.transition(StateDone); err != nil {
		return err
	}
	run.Outcome = types.OutcomeSuccess
	return nil
}

// abort terminates the run. When traffic has partially moved a rollback is
// mandatory; otherwise nothing was touched and the abort is a no-op
// restore.
func (m *Migrator) abort(ctx context.Context, run *types.DeploymentRun, restore types.Environment, trafficMoved bool, cause error) error {
	if err := m.transition(StateAborting); err != nil {
		return err
	}
	run.Failure = cause.Error()

	if !trafficMoved {
		_ = m.transition(StateRolledBack)
		run.Outcome = types.OutcomeAborted
		m.logger.Warn().
			Err(cause).
			Msg("run aborted before any traffic moved")
		return cause
	}

	// The restore must proceed even when the run context was cancelled.
	event, err := m.deps.Rollback.Rollback(context.WithoutCancel(ctx), restore, cause.Error())
	_ = m.transition(StateRolledBack)
	if err != nil {
		run.Outcome = types.OutcomeAborted
		run.Failure = fmt.Sprintf("%s; %s", cause.Error(), err.Error())
		return err
	}

	run.Outcome = types.OutcomeRolledBack
	run.RollbackEvent = event
	return cause
}

// dwell waits the configured period, returning early on cancellation
func (m *Migrator) dwell(ctx context.Context) error {
	if m.cfg.Dwell <= 0 {
		return nil
	}
	timer := time.NewTimer(m.cfg.Dwell)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stepSelector encodes the router selector for a given step. The final
// step settles the selector on the target environment.
func stepSelector(from, to types.Environment, percentage int) map[string]string {
	if percentage >= 100 {
		return types.RouterState{ActiveEnv: to.Name}.Selector()
	}
	return types.RouterState{
		ActiveEnv:       from.Name,
		MigrationTarget: to.Name,
		MigrationWeight: percentage,
	}.Selector()
}

func (m *Migrator) publish(eventType events.EventType, runID, env string, percentage int, message string) {
	if m.deps.Broker == nil {
		return
	}
	m.deps.Broker.Publish(&events.Event{
		Type:        eventType,
		RunID:       runID,
		Environment: env,
		Percentage:  percentage,
		Message:     message,
	})
}
