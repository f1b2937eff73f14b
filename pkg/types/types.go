package types

import (
	"fmt"
	"strconv"
	"time"
)

// EnvBlue and EnvGreen are the two environment names. Exactly one of them
// serves production traffic at any settled point in time.
const (
	EnvBlue  = "blue"
	EnvGreen = "green"
)

// Environment represents one of the two blue/green environments
type Environment struct {
	Name      string `json:"name" yaml:"name"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Active    bool   `json:"active" yaml:"-"`
}

// ServiceTier determines apply ordering during a candidate deployment
type ServiceTier string

const (
	// TierInfra services (database, cache, policy engine) are applied first
	TierInfra ServiceTier = "infra"

	// TierApp services are applied after all infra services
	TierApp ServiceTier = "app"
)

// ServiceSpec describes one workload in the deployment set.
// Loaded from configuration; immutable during a run.
type ServiceSpec struct {
	Name       string      `json:"name" yaml:"name"`
	Image      string      `json:"image" yaml:"image"`
	Replicas   int         `json:"replicas" yaml:"replicas"`
	Port       int         `json:"port" yaml:"port"`
	HealthPath string      `json:"healthPath" yaml:"healthPath"`
	Tier       ServiceTier `json:"tier" yaml:"tier"`

	// Compliance indicates the service exposes POST /validate returning
	// a compliance_score that gates migration progression
	Compliance bool `json:"compliance" yaml:"compliance"`
}

// HealthCheckResult is the outcome of one service probe against one
// environment. Produced fresh on every validation; never mutated.
type HealthCheckResult struct {
	Service         string    `json:"service"`
	Environment     string    `json:"environment"`
	Healthy         bool      `json:"healthy"`
	LatencyMs       float64   `json:"latencyMs"`
	ComplianceScore *float64  `json:"complianceScore,omitempty"`
	Message         string    `json:"message,omitempty"`
	CheckedAt       time.Time `json:"checkedAt"`
}

// StepStatus is the terminal status of one migration step
type StepStatus string

const (
	StepStatusOK     StepStatus = "ok"
	StepStatusFailed StepStatus = "failed"
)

// MigrationSteps is the fixed traffic-shift sequence. Steps are never
// skipped or retried; a failed step aborts the whole run.
var MigrationSteps = []int{20, 40, 60, 80, 100}

// MigrationStep records one applied traffic percentage and the validation
// that followed its dwell period
type MigrationStep struct {
	Percentage int                 `json:"percentage"`
	AppliedAt  time.Time           `json:"appliedAt"`
	Validation []HealthCheckResult `json:"validation,omitempty"`
	Status     StepStatus          `json:"status"`
}

// Outcome is the terminal result of a deployment run
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomeAborted    Outcome = "aborted"
)

// RollbackEvent records an emergency traffic restore. Created only when a
// rollback patch succeeds; never updated after creation.
type RollbackEvent struct {
	Reason      string    `json:"reason"`
	TriggeredAt time.Time `json:"triggeredAt"`
	RestoredEnv string    `json:"restoredEnv"`
}

// Warning is a non-fatal observation raised during stability monitoring
type Warning struct {
	Source     string    `json:"source"`
	Message    string    `json:"message"`
	ObservedAt time.Time `json:"observedAt"`
}

// DeploymentRun is the aggregate record of one migration attempt.
// Finalized (immutable) when the run terminates.
type DeploymentRun struct {
	ID            string          `json:"id"`
	SourceEnv     string          `json:"sourceEnv"`
	TargetEnv     string          `json:"targetEnv"`
	Steps         []MigrationStep `json:"steps,omitempty"`
	Outcome       Outcome         `json:"outcome"`
	Failure       string          `json:"failure,omitempty"`
	RollbackEvent *RollbackEvent  `json:"rollbackEvent,omitempty"`
	Warnings      []Warning       `json:"warnings,omitempty"`
	StartedAt     time.Time       `json:"startedAt"`
	FinishedAt    time.Time       `json:"finishedAt"`
}

// Router selector keys. A settled router carries only SelectorEnvKey;
// during a migration step the migration keys describe the weighted split.
const (
	SelectorEnvKey    = "environment"
	SelectorTargetKey = "migration-target"
	SelectorWeightKey = "migration-weight"
)

// RouterState is the decoded router selector
type RouterState struct {
	// ActiveEnv is the environment holding the settled selector. During a
	// migration it is the environment traffic is shifting away from.
	ActiveEnv string

	// MigrationTarget and MigrationWeight describe an in-progress split.
	// MigrationTarget is empty when the router is settled.
	MigrationTarget string
	MigrationWeight int
}

// Migrating reports whether the router currently represents a weighted split
func (s RouterState) Migrating() bool {
	return s.MigrationTarget != ""
}

// Weights returns the traffic weight per environment. Components always
// sum to exactly 100.
func (s RouterState) Weights() map[string]int {
	if !s.Migrating() {
		return map[string]int{s.ActiveEnv: 100}
	}
	return map[string]int{
		s.ActiveEnv:       100 - s.MigrationWeight,
		s.MigrationTarget: s.MigrationWeight,
	}
}

// ParseRouterState decodes a router selector map. An empty selector (or one
// without the environment key) is the valid first-ever-deployment state and
// yields an empty ActiveEnv.
func ParseRouterState(selector map[string]string) (RouterState, error) {
	state := RouterState{ActiveEnv: selector[SelectorEnvKey]}

	target, ok := selector[SelectorTargetKey]
	if !ok {
		return state, nil
	}

	weight, err := strconv.Atoi(selector[SelectorWeightKey])
	if err != nil {
		return RouterState{}, fmt.Errorf("invalid %s %q: %w", SelectorWeightKey, selector[SelectorWeightKey], err)
	}
	if weight < 0 || weight > 100 {
		return RouterState{}, fmt.Errorf("%s %d out of range", SelectorWeightKey, weight)
	}

	state.MigrationTarget = target
	state.MigrationWeight = weight
	return state, nil
}

// Selector encodes the router state back into selector labels
func (s RouterState) Selector() map[string]string {
	selector := map[string]string{SelectorEnvKey: s.ActiveEnv}
	if s.Migrating() {
		selector[SelectorTargetKey] = s.MigrationTarget
		selector[SelectorWeightKey] = strconv.Itoa(s.MigrationWeight)
	}
	return selector
}
