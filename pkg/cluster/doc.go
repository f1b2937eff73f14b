/*
Package cluster abstracts the control plane the orchestrator mutates.

The orchestrator only needs four capabilities: apply a workload, read
readiness for a label selector, and read or atomically patch the traffic
router's selector. Interface captures exactly those, so any conforming
cluster-management API can back it.

# Implementations

KubeCluster maps the contract onto Kubernetes:

	Apply          → create-or-update of an apps/v1 Deployment
	GetReadiness   → Deployment status plus pod container waiting states
	GetSelector    → the router core/v1 Service's spec.selector
	PatchSelector  → one merge patch replacing the selector, removing
	                 stale keys with nulls in the same request

Fake is the in-memory implementation tests drive; it records applies and
selector patches in order and lets tests script readiness responses and
failures.

The router Service is the durable record of which environment is live.
This package never caches its selector: every read goes to the cluster,
so an operator patching the router mid-run is observed, not overwritten
from a stale copy.
*/
package cluster
