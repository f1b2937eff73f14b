// Package report renders a finalized DeploymentRun into the structured
// deployment record and writes it as a timestamped JSON artifact. The
// artifact is the orchestrator's canonical durable record of a run; which
// environment is live remains the router's state, owned by the cluster.
package report
