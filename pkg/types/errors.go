package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure modes that terminate a run. All of them
// are fatal to the current run; none is retried.
var (
	// ErrRouterUnreadable means the router resource could not be read at
	// all. Distinct from an unset selector, which is a valid bootstrap
	// state.
	ErrRouterUnreadable = errors.New("router unreadable")

	// ErrDeployTimeout means the candidate did not reach readiness within
	// the deploy timeout
	ErrDeployTimeout = errors.New("deploy timeout")

	// ErrMigrationInProgress rejects a new deployment while a prior run is
	// in a non-terminal state. The in-flight run is unaffected.
	ErrMigrationInProgress = errors.New("migration already in progress")
)

// PartialFailureError reports workloads the cluster flagged as explicitly
// failed (crash-loop, image-pull error) before the deploy timeout. Treated
// as fatal rather than retried: it indicates a bad candidate, not slowness.
type PartialFailureError struct {
	Services []string
	Reasons  []string
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial deployment failure: %s (%s)",
		strings.Join(e.Services, ", "), strings.Join(e.Reasons, "; "))
}

// ValidationError reports a failed health validation. It carries every
// failing result so the rollback reason can name the offending service.
type ValidationError struct {
	Environment string
	Failed      []HealthCheckResult
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, r := range e.Failed {
		if r.ComplianceScore != nil {
			parts = append(parts, fmt.Sprintf("%s compliance_score=%.4f", r.Service, *r.ComplianceScore))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", r.Service, r.Message))
	}
	return fmt.Sprintf("health validation failed on %s: %s", e.Environment, strings.Join(parts, ", "))
}

// ComplianceViolation reports whether any failing service was rejected on
// its compliance score rather than liveness. Reported with elevated
// severity: the floor corresponds to a policy-violation risk.
func (e *ValidationError) ComplianceViolation() bool {
	for _, r := range e.Failed {
		if r.ComplianceScore != nil {
			return true
		}
	}
	return false
}

// RollbackFailureError means the emergency router restore itself failed.
// Never auto-retried; escalated for operator intervention, since retrying
// risks leaving traffic split indefinitely.
type RollbackFailureError struct {
	RestoreEnv string
	Err        error
}

func (e *RollbackFailureError) Error() string {
	return fmt.Sprintf("rollback to %s failed, manual intervention required: %v", e.RestoreEnv, e.Err)
}

func (e *RollbackFailureError) Unwrap() error { return e.Err }
