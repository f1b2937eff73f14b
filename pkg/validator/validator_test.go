package validator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutover/cutover/pkg/probe"
	"github.com/cutover/cutover/pkg/types"
)

func testProber() *probe.Prober {
	return probe.New(time.Second, probe.RetryPolicy{
		MaxRetries:      0,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	})
}

// serviceHandler scripts one service's health and compliance endpoints
type serviceHandler struct {
	healthStatus int
	score        float64
}

func newTestEnv(t *testing.T, handlers map[string]*serviceHandler) (Endpoints, func()) {
	t.Helper()
	servers := make(map[string]*httptest.Server, len(handlers))
	for name, h := range handlers {
		h := h
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(h.healthStatus)
		})
		mux.HandleFunc("/validate", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"compliance_score": %g}`, h.score)
		})
		servers[name] = httptest.NewServer(mux)
	}

	endpoints := func(_ types.Environment, svc types.ServiceSpec) string {
		return servers[svc.Name].URL
	}
	cleanup := func() {
		for _, s := range servers {
			s.Close()
		}
	}
	return endpoints, cleanup
}

func TestValidateAllHealthy(t *testing.T) {
	endpoints, cleanup := newTestEnv(t, map[string]*serviceHandler{
		"api":      {healthStatus: http.StatusOK, score: 0.99},
		"worker":   {healthStatus: http.StatusOK},
		"policydb": {healthStatus: http.StatusOK},
	})
	defer cleanup()

	services := []types.ServiceSpec{
		{Name: "api", HealthPath: "/health", Compliance: true},
		{Name: "worker", HealthPath: "/health"},
		{Name: "policydb", HealthPath: "/health", Tier: types.TierInfra},
	}

	v := New(testProber(), Config{Endpoints: endpoints})
	results, pass := v.Validate(context.Background(), types.Environment{Name: "green", Namespace: "green"}, services)

	assert.True(t, pass)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Healthy, "service %s", r.Service)
		assert.Equal(t, "green", r.Environment)
	}
	assert.Empty(t, Failing(results))
}

func TestValidateLivenessFailureFailsVerdict(t *testing.T) {
	endpoints, cleanup := newTestEnv(t, map[string]*serviceHandler{
		"api":    {healthStatus: http.StatusOK},
		"worker": {healthStatus: http.StatusServiceUnavailable},
	})
	defer cleanup()

	services := []types.ServiceSpec{
		{Name: "api", HealthPath: "/health"},
		{Name: "worker", HealthPath: "/health"},
	}

	v := New(testProber(), Config{Endpoints: endpoints})
	results, pass := v.Validate(context.Background(), types.Environment{Name: "green"}, services)

	assert.False(t, pass, "one unhealthy service must fail the whole verdict")
	failed := Failing(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "worker", failed[0].Service)
	assert.Contains(t, failed[0].Message, "liveness")
}

func TestComplianceFloorIsInclusive(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		pass  bool
	}{
		{"score exactly at floor passes", 0.95, true},
		{"score just below floor fails", 0.9499, false},
		{"score well above floor passes", 1.0, true},
		{"score well below floor fails", 0.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoints, cleanup := newTestEnv(t, map[string]*serviceHandler{
				"api": {healthStatus: http.StatusOK, score: tt.score},
			})
			defer cleanup()

			services := []types.ServiceSpec{
				{Name: "api", HealthPath: "/health", Compliance: true},
			}

			v := New(testProber(), Config{Endpoints: endpoints, ComplianceFloor: 0.95})
			results, pass := v.Validate(context.Background(), types.Environment{Name: "green"}, services)

			assert.Equal(t, tt.pass, pass)
			require.Len(t, results, 1)
			require.NotNil(t, results[0].ComplianceScore)
			assert.Equal(t, tt.score, *results[0].ComplianceScore)
			if !tt.pass {
				assert.Contains(t, results[0].Message, "below floor")
			}
		})
	}
}

func TestComplianceSkippedForPlainServices(t *testing.T) {
	// No /validate route at all: the probe would fail if issued
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	endpoints := func(_ types.Environment, _ types.ServiceSpec) string { return server.URL }
	services := []types.ServiceSpec{{Name: "cache", HealthPath: "/health"}}

	v := New(testProber(), Config{Endpoints: endpoints})
	results, pass := v.Validate(context.Background(), types.Environment{Name: "blue"}, services)

	assert.True(t, pass)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].ComplianceScore)
}

func TestValidateBoundedConcurrency(t *testing.T) {
	// More services than workers; all must still be probed exactly once
	handlers := make(map[string]*serviceHandler)
	var services []types.ServiceSpec
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("svc-%d", i)
		handlers[name] = &serviceHandler{healthStatus: http.StatusOK}
		services = append(services, types.ServiceSpec{Name: name, HealthPath: "/health"})
	}
	endpoints, cleanup := newTestEnv(t, handlers)
	defer cleanup()

	v := New(testProber(), Config{Endpoints: endpoints, Concurrency: 3})
	results, pass := v.Validate(context.Background(), types.Environment{Name: "green"}, services)

	assert.True(t, pass)
	require.Len(t, results, 20)
	seen := make(map[string]bool)
	for _, r := range results {
		assert.True(t, r.Healthy)
		seen[r.Service] = true
	}
	assert.Len(t, seen, 20, "every service probed exactly once")
}
