// Package rollback restores live traffic to the last known-good
// environment with one atomic router patch. Every rollback is recorded as
// a RollbackEvent and logged on the dedicated emergency channel. A failed
// rollback is never retried automatically; it is escalated for operator
// intervention.
package rollback
