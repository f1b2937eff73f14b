package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutover/cutover/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginRunClaimsMarker(t *testing.T) {
	s := openTestStore(t)

	run := &types.DeploymentRun{ID: "run-1", StartedAt: time.Now()}
	require.NoError(t, s.BeginRun(run))

	active, err := s.ActiveRun()
	require.NoError(t, err)
	assert.Equal(t, "run-1", active)
}

func TestBeginRunRejectsConcurrentRun(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.BeginRun(&types.DeploymentRun{ID: "run-1"}))

	err := s.BeginRun(&types.DeploymentRun{ID: "run-2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMigrationInProgress)
	assert.Contains(t, err.Error(), "run-1")

	// The in-flight run keeps its marker
	active, err := s.ActiveRun()
	require.NoError(t, err)
	assert.Equal(t, "run-1", active)
}

func TestFinishRunReleasesOwnMarker(t *testing.T) {
	s := openTestStore(t)

	run := &types.DeploymentRun{
		ID:        "run-1",
		SourceEnv: "blue",
		TargetEnv: "green",
		Outcome:   types.OutcomeSuccess,
		StartedAt: time.Now(),
	}
	require.NoError(t, s.BeginRun(run))
	require.NoError(t, s.FinishRun(run))

	active, err := s.ActiveRun()
	require.NoError(t, err)
	assert.Empty(t, active)

	loaded, err := s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSuccess, loaded.Outcome)
	assert.Equal(t, "green", loaded.TargetEnv)
}

func TestFinishRunLeavesForeignMarker(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.BeginRun(&types.DeploymentRun{ID: "run-1"}))
	require.NoError(t, s.FinishRun(&types.DeploymentRun{ID: "run-other"}))

	active, err := s.ActiveRun()
	require.NoError(t, err)
	assert.Equal(t, "run-1", active, "finishing an unrelated run must not release another run's marker")
}

func TestClearActive(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.BeginRun(&types.DeploymentRun{ID: "crashed-run"}))
	require.NoError(t, s.ClearActive())

	active, err := s.ActiveRun()
	require.NoError(t, err)
	assert.Empty(t, active)

	// A new run can now claim the marker
	assert.NoError(t, s.BeginRun(&types.DeploymentRun{ID: "run-2"}))
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetRun("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestListRunsMostRecentFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		run := &types.DeploymentRun{
			ID:        id,
			Outcome:   types.OutcomeSuccess,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.FinishRun(run))
	}

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Equal(t, "old", runs[2].ID)
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(&types.DeploymentRun{ID: "run-1", Outcome: types.OutcomeRolledBack}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	run, err := s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeRolledBack, run.Outcome)
}
