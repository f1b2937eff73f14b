package cluster

import (
	"context"

	"github.com/cutover/cutover/pkg/types"
)

// RouterRef identifies the traffic router resource
type RouterRef struct {
	Name      string
	Namespace string
}

// Manifest is one workload to apply into an environment
type Manifest struct {
	Namespace  string
	Name       string
	Image      string
	Replicas   int
	Port       int
	HealthPath string
	Labels     map[string]string
}

// BuildManifest renders a ServiceSpec into a Manifest targeting env
func BuildManifest(env types.Environment, svc types.ServiceSpec) Manifest {
	return Manifest{
		Namespace:  env.Namespace,
		Name:       svc.Name,
		Image:      svc.Image,
		Replicas:   svc.Replicas,
		Port:       svc.Port,
		HealthPath: svc.HealthPath,
		Labels: map[string]string{
			"app":                svc.Name,
			types.SelectorEnvKey: env.Name,
		},
	}
}

// ServiceReadiness is the readiness of one workload
type ServiceReadiness struct {
	Service         string
	ReadyReplicas   int
	DesiredReplicas int

	// FailureReasons holds explicit failure states reported by the cluster
	// (crash-loop, image-pull error). Non-empty reasons are fatal to a
	// deploy: they indicate a bad candidate, not transient slowness.
	FailureReasons []string
}

// ReadinessStatus aggregates readiness across a workload set
type ReadinessStatus struct {
	Services []ServiceReadiness
}

// AllReady reports whether every workload has all replicas ready
func (r ReadinessStatus) AllReady() bool {
	if len(r.Services) == 0 {
		return false
	}
	for _, s := range r.Services {
		if s.ReadyReplicas < s.DesiredReplicas {
			return false
		}
	}
	return true
}

// Failed returns the workloads in an explicit failure state
func (r ReadinessStatus) Failed() []ServiceReadiness {
	var failed []ServiceReadiness
	for _, s := range r.Services {
		if len(s.FailureReasons) > 0 {
			failed = append(failed, s)
		}
	}
	return failed
}

// Interface is the abstract cluster control plane the orchestrator
// consumes. Any conforming cluster-management API satisfies it.
type Interface interface {
	// Apply creates or updates a workload
	Apply(ctx context.Context, manifest Manifest) error

	// GetReadiness reports readiness of the workloads matching selector
	GetReadiness(ctx context.Context, namespace string, selector map[string]string) (ReadinessStatus, error)

	// GetSelector reads the router's current selector labels
	GetSelector(ctx context.Context, router RouterRef) (map[string]string, error)

	// PatchSelector atomically replaces the router's selector labels
	PatchSelector(ctx context.Context, router RouterRef, selector map[string]string) error
}
