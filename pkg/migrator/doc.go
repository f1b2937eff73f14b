/*
Package migrator drives the blue/green traffic migration state machine.

# States

	Idle ──► Deploying ──► Validating ──► Migrating(20..100) ──► Stabilizing ──► Done
	              │             │               │
	              └─────────────┴───────────────┴──► Aborting ──► RolledBack

Transitions are table-driven; an illegal transition is unrepresentable in
a run because every move is checked against the table. The Migrating state
repeats once per entry of the fixed percentage sequence {20,40,60,80,100},
strictly increasing, never skipped and never retried: a failed step aborts
the whole run, since a health regression under partial traffic is treated
as evidence the candidate is unsafe.

The abort branch distinguishes whether traffic moved. Before the first
router patch an abort is a no-op (outcome "aborted"); after it, the
rollback controller must restore the source environment (outcome
"rolled_back"). A rollback failure is terminal and escalated, never
retried.

One migrator runs at a time: the run store's active marker rejects a
second StartMigration with MigrationInProgress while a run is in a
non-terminal state. Within a run, every cluster mutation is synchronous
and router patches are strictly ordered before the dwell-period re-check
that follows them.
*/
package migrator
