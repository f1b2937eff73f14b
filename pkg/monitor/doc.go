// Package monitor watches a freshly promoted environment for a fixed
// window after migration. It re-runs the health battery and readiness
// checks at a fixed cadence and accumulates warnings (failed checks, slow
// probes, replica dips) without ever taking corrective action.
package monitor
