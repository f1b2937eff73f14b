/*
Package validator runs the per-service health and compliance battery.

For each service the validator issues a liveness probe and, for services
that expose one, a compliance probe. Probes run concurrently with bounded
parallelism (default 16 in flight); they are read-only and independent, so
parallelism is safe while the surrounding state machine stays sequential.

The overall verdict passes only when all services are live and every
exposed compliance score is at or above the floor (default 0.95,
inclusive). The floor is a hard gate: it corresponds to policy-violation
risk, not to a tunable performance target.
*/
package validator
