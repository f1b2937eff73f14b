package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutover/cutover/pkg/cluster"
	"github.com/cutover/cutover/pkg/types"
)

func testEnvironments() map[string]types.Environment {
	return map[string]types.Environment{
		types.EnvBlue:  {Name: types.EnvBlue, Namespace: "app-blue"},
		types.EnvGreen: {Name: types.EnvGreen, Namespace: "app-green"},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		selector   map[string]string
		wantActive string
		wantIdle   string
	}{
		{
			name:       "settled on blue",
			selector:   map[string]string{types.SelectorEnvKey: "blue"},
			wantActive: "blue",
			wantIdle:   "green",
		},
		{
			name:       "settled on green",
			selector:   map[string]string{types.SelectorEnvKey: "green"},
			wantActive: "green",
			wantIdle:   "blue",
		},
		{
			name:       "unset selector defaults to blue active",
			selector:   map[string]string{},
			wantActive: "blue",
			wantIdle:   "green",
		},
		{
			name: "mid-migration selector resolves to settled source",
			selector: map[string]string{
				types.SelectorEnvKey:    "blue",
				types.SelectorTargetKey: "green",
				types.SelectorWeightKey: "40",
			},
			wantActive: "blue",
			wantIdle:   "green",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := cluster.NewFake(tt.selector)
			r := New(fake, cluster.RouterRef{Name: "app-router"}, testEnvironments())

			active, idle, err := r.Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, active.Name)
			assert.True(t, active.Active)
			assert.Equal(t, tt.wantIdle, idle.Name)
			assert.False(t, idle.Active)
			assert.NotEqual(t, active.Namespace, idle.Namespace)
		})
	}
}

func TestResolveIsReadOnly(t *testing.T) {
	fake := cluster.NewFake(map[string]string{types.SelectorEnvKey: "green"})
	r := New(fake, cluster.RouterRef{Name: "app-router"}, testEnvironments())

	for i := 0; i < 3; i++ {
		active, _, err := r.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "green", active.Name)
	}
	assert.Empty(t, fake.SelectorHistory, "resolution must never mutate the router")
	assert.Empty(t, fake.Applied)
}

func TestResolveRouterUnreadable(t *testing.T) {
	fake := &cluster.Fake{} // nil RouterSelector simulates a missing router
	r := New(fake, cluster.RouterRef{Name: "app-router"}, testEnvironments())

	_, _, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRouterUnreadable)
}

func TestResolveCorruptSelector(t *testing.T) {
	fake := cluster.NewFake(map[string]string{
		types.SelectorEnvKey:    "blue",
		types.SelectorTargetKey: "green",
		types.SelectorWeightKey: "not-a-number",
	})
	r := New(fake, cluster.RouterRef{Name: "app-router"}, testEnvironments())

	_, _, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, types.ErrRouterUnreadable)
}

func TestResolveUnknownEnvironment(t *testing.T) {
	fake := cluster.NewFake(map[string]string{types.SelectorEnvKey: "purple"})
	r := New(fake, cluster.RouterRef{Name: "app-router"}, testEnvironments())

	_, _, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purple")
}

func TestStateExposesWeights(t *testing.T) {
	fake := cluster.NewFake(map[string]string{
		types.SelectorEnvKey:    "blue",
		types.SelectorTargetKey: "green",
		types.SelectorWeightKey: "80",
	})
	r := New(fake, cluster.RouterRef{Name: "app-router"}, testEnvironments())

	state, err := r.State(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Migrating())
	assert.Equal(t, map[string]int{"blue": 20, "green": 80}, state.Weights())
}
