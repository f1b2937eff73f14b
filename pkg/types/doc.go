/*
Package types defines the core data model shared by every cutover component.

The model is deliberately small: two named environments (blue and green), a
static set of ServiceSpecs loaded from configuration, and one append-only
DeploymentRun aggregate per migration attempt.

# Data Model

	┌──────────────────────────────────────────────────────┐
	│                   DeploymentRun                      │
	│  id, sourceEnv, targetEnv, outcome                   │
	│    ├── []MigrationStep  {20,40,60,80,100}            │
	│    │     └── []HealthCheckResult (per dwell check)   │
	│    ├── RollbackEvent    (only when rolled_back)      │
	│    └── []Warning        (stability observations)     │
	└──────────────────────────────────────────────────────┘

RouterState decodes the live router selector, which is the single source of
truth for which environment serves traffic. A settled router carries only
the environment label; during a migration step two extra labels describe
the weighted split, whose components always sum to 100.

# Invariants

  - A DeploymentRun has steps only if the candidate deployed and passed its
    pre-migration validation.
  - A RollbackEvent exists if and only if outcome is "rolled_back", and the
    router then points at RestoredEnv.
  - Step percentages are strictly increasing and drawn from MigrationSteps.

The error types in this package form the run-terminating taxonomy:
RouterUnreadable, DeployTimeout, PartialFailure, validation failures
(including compliance violations), MigrationInProgress and RollbackFailure.
Transient probe errors are retried inside the validator and never surface
here.
*/
package types
