package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/cutover/cutover/pkg/log"
	"github.com/cutover/cutover/pkg/metrics"
	"github.com/cutover/cutover/pkg/probe"
	"github.com/cutover/cutover/pkg/types"
)

// Endpoints maps a service in an environment to its base URL
type Endpoints func(env types.Environment, svc types.ServiceSpec) string

// ClusterEndpoints resolves services through cluster-internal DNS
func ClusterEndpoints(env types.Environment, svc types.ServiceSpec) string {
	return fmt.Sprintf("http://%s.%s.svc.cluster.local:%d", svc.Name, env.Namespace, svc.Port)
}

// Config tunes a Validator
type Config struct {
	// Concurrency caps in-flight probes. Probes are read-only and
	// independent, so they run in parallel up to this limit.
	Concurrency int

	// ComplianceFloor is the inclusive minimum compliance score. A score
	// below it is a policy-violation risk, not a performance metric, so
	// the floor is a hard gate.
	ComplianceFloor float64

	// Endpoints overrides service endpoint resolution (tests point this
	// at local listeners). Defaults to ClusterEndpoints.
	Endpoints Endpoints
}

// Validator runs the fixed per-service battery of liveness and compliance
// probes against a target environment
type Validator struct {
	prober      *probe.Prober
	endpoints   Endpoints
	concurrency int
	floor       float64
}

// New creates a Validator
func New(prober *probe.Prober, cfg Config) *Validator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	if cfg.ComplianceFloor == 0 {
		cfg.ComplianceFloor = 0.95
	}
	if cfg.Endpoints == nil {
		cfg.Endpoints = ClusterEndpoints
	}
	return &Validator{
		prober:      prober,
		endpoints:   cfg.Endpoints,
		concurrency: cfg.Concurrency,
		floor:       cfg.ComplianceFloor,
	}
}

// Validate probes every service in env concurrently and returns per-service
// results plus the overall verdict. The verdict passes only when every
// service is live and every exposed compliance score meets the floor.
// Partial-service degradation never silently passes.
func (v *Validator) Validate(ctx context.Context, env types.Environment, services []types.ServiceSpec) ([]types.HealthCheckResult, bool) {
	results := make([]types.HealthCheckResult, len(services))

	wp := workerpool.New(v.concurrency)
	for i, svc := range services {
		i, svc := i, svc
		wp.Submit(func() {
			results[i] = v.checkService(ctx, env, svc)
		})
	}
	wp.StopWait()

	pass := true
	logger := log.WithComponent("validator")
	for _, r := range results {
		if !r.Healthy {
			pass = false
			logger.Warn().
				Str("service", r.Service).
				Str("environment", r.Environment).
				Str("reason", r.Message).
				Msg("service failed validation")
		}
	}
	return results, pass
}

// Failing filters a result set down to the failing services
func Failing(results []types.HealthCheckResult) []types.HealthCheckResult {
	var failed []types.HealthCheckResult
	for _, r := range results {
		if !r.Healthy {
			failed = append(failed, r)
		}
	}
	return failed
}

func (v *Validator) checkService(ctx context.Context, env types.Environment, svc types.ServiceSpec) types.HealthCheckResult {
	result := types.HealthCheckResult{
		Service:     svc.Name,
		Environment: env.Name,
		CheckedAt:   time.Now(),
	}
	base := v.endpoints(env, svc)

	latency, err := v.prober.Liveness(ctx, base+svc.HealthPath)
	result.LatencyMs = latency
	metrics.ProbeLatency.WithLabelValues("liveness").Observe(latency / 1000)
	if err != nil {
		result.Message = fmt.Sprintf("liveness: %v", err)
		return result
	}
	result.Healthy = true

	if !svc.Compliance {
		return result
	}

	score, latency, err := v.prober.Compliance(ctx, base+"/validate", svc.Name, env.Name)
	metrics.ProbeLatency.WithLabelValues("compliance").Observe(latency / 1000)
	if err != nil {
		result.Healthy = false
		result.Message = fmt.Sprintf("compliance: %v", err)
		return result
	}

	result.ComplianceScore = &score
	if score < v.floor {
		result.Healthy = false
		result.Message = fmt.Sprintf("compliance_score %.4f below floor %.2f", score, v.floor)
	}
	return result
}
