/*
Package probe implements the per-service Probe API client.

Two probe kinds exist:

  - Liveness: GET {healthPath}; only HTTP 200 signals a live service.
  - Compliance: POST /validate with a JSON context payload; the response
    must carry a numeric compliance_score in [0,1].

Both share one RetryPolicy: a bounded, exponential, jittered backoff that
absorbs transient network blips. The budget is deliberately small (2
retries by default) and scoped to a single probe; exhausting it marks that
service as failing rather than aborting the whole validation.

Schema handling is strict by design: a response without a well-formed
compliance_score field is a probe failure, not something to extract
best-effort from loose text.
*/
package probe
