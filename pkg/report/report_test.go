package report

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutover/cutover/pkg/types"
)

func successfulRun() *types.DeploymentRun {
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	run := &types.DeploymentRun{
		ID:         "4f9c2b1a-0000-0000-0000-000000000000",
		SourceEnv:  "blue",
		TargetEnv:  "green",
		Outcome:    types.OutcomeSuccess,
		StartedAt:  started,
		FinishedAt: started.Add(12 * time.Minute),
	}
	for _, p := range types.MigrationSteps {
		run.Steps = append(run.Steps, types.MigrationStep{
			Percentage: p,
			AppliedAt:  started,
			Status:     types.StepStatusOK,
		})
	}
	return run
}

func TestGenerateSuccess(t *testing.T) {
	r := Generate(successfulRun())

	assert.Equal(t, types.OutcomeSuccess, r.Outcome)
	assert.Equal(t, map[string]int{"green": 100}, r.FinalWeights)
	assert.Equal(t, "12m0s", r.Duration)
	require.Len(t, r.Steps, 5)
	for i, p := range types.MigrationSteps {
		assert.Equal(t, p, r.Steps[i].Percentage)
		assert.Equal(t, types.StepStatusOK, r.Steps[i].Status)
		assert.Empty(t, r.Steps[i].FailedServices)
	}
	assert.Nil(t, r.RollbackEvent)
}

func TestGenerateRolledBack(t *testing.T) {
	score := 0.82
	run := successfulRun()
	run.Outcome = types.OutcomeRolledBack
	run.Failure = "health validation failed on green: api compliance_score=0.8200"
	run.Steps = run.Steps[:3]
	run.Steps[2].Status = types.StepStatusFailed
	run.Steps[2].Validation = []types.HealthCheckResult{
		{Service: "api", Healthy: false, ComplianceScore: &score},
		{Service: "worker", Healthy: true},
	}
	run.RollbackEvent = &types.RollbackEvent{
		Reason:      run.Failure,
		TriggeredAt: run.FinishedAt,
		RestoredEnv: "blue",
	}

	r := Generate(run)

	assert.Equal(t, map[string]int{"blue": 100}, r.FinalWeights,
		"rolled-back runs report the restored environment at full weight")
	require.Len(t, r.Steps, 3)
	assert.Equal(t, types.StepStatusFailed, r.Steps[2].Status)
	assert.Equal(t, []string{"api"}, r.Steps[2].FailedServices)
	require.NotNil(t, r.RollbackEvent)
	assert.Equal(t, "blue", r.RollbackEvent.RestoredEnv)
}

func TestGenerateAborted(t *testing.T) {
	run := successfulRun()
	run.Outcome = types.OutcomeAborted
	run.Steps = nil
	run.Failure = "deploy timeout: readiness not reached within 10m0s"

	r := Generate(run)

	assert.Equal(t, map[string]int{"blue": 100}, r.FinalWeights,
		"aborted-before-traffic runs leave the source environment at full weight")
	assert.Empty(t, r.Steps)
	assert.Nil(t, r.RollbackEvent)
	assert.Contains(t, r.Failure, "deploy timeout")
}

func TestGenerateIsPure(t *testing.T) {
	run := successfulRun()
	first := Generate(run)
	second := Generate(run)

	assert.Equal(t, first.FinalWeights, second.FinalWeights)
	assert.Equal(t, first.Steps, second.Steps)
	assert.Equal(t, types.OutcomeSuccess, run.Outcome, "generation must not mutate the run")
	assert.Len(t, run.Steps, 5)
}

func TestRender(t *testing.T) {
	run := successfulRun()
	run.Warnings = []types.Warning{
		{Source: "latency", Message: "api: slow health check (2400ms)"},
	}
	out := Generate(run).Render()

	assert.Contains(t, out, run.ID)
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "blue -> green")
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "1 during stabilization")
}

func TestWriterPersistsArtifact(t *testing.T) {
	dir := t.TempDir()
	r := Generate(successfulRun())

	path, err := NewWriter(dir).Write(r)
	require.NoError(t, err)
	assert.Contains(t, path, "run-20250601T101200Z-4f9c2b1a.json")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Report
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, r.RunID, loaded.RunID)
	assert.Equal(t, r.FinalWeights, loaded.FinalWeights)
}
