/*
Package deployer applies the candidate workload set into the idle
environment.

Apply order is fixed: shared infrastructure (database, cache, policy
engine, metrics) first, then application services. After applying, the
deployer polls cluster readiness at a fixed interval under a context
deadline. Two distinct failure modes exist:

  - DeployTimeout: readiness was not reached in time.
  - PartialFailure: the cluster reported an explicit failure state
    (crash-loop, image-pull error) before the timeout. This is fatal and
    never retried, since it indicates a bad candidate.

No traffic has moved when either occurs, so the surrounding state machine
treats both as a no-op abort.
*/
package deployer
