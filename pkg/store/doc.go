/*
Package store persists the deployment run history in BoltDB.

Two buckets exist: "runs" holds finalized DeploymentRun records as JSON,
and "active" holds the single marker claimed by an in-flight run. Claiming
and checking the marker happen inside one write transaction, which is what
rejects a second `deploy` with MigrationInProgress while a run is live.

The JSON report artifact written per run remains the canonical durable
record; this database is an index over those runs for `history` and the
in-progress guard.
*/
package store
