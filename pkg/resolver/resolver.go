package resolver

import (
	"context"
	"fmt"

	"github.com/cutover/cutover/pkg/cluster"
	"github.com/cutover/cutover/pkg/types"
)

// Resolver determines which environment is active and which is idle by
// reading the live traffic router. The router is the single source of
// truth; nothing is cached between calls, so an operator patching the
// router mid-run is observed rather than raced.
type Resolver struct {
	cluster      cluster.Interface
	router       cluster.RouterRef
	environments map[string]types.Environment
}

// New creates a Resolver over the two configured environments
func New(c cluster.Interface, router cluster.RouterRef, environments map[string]types.Environment) *Resolver {
	return &Resolver{
		cluster:      c,
		router:       router,
		environments: environments,
	}
}

// State reads and decodes the router's current selector
func (r *Resolver) State(ctx context.Context) (types.RouterState, error) {
	selector, err := r.cluster.GetSelector(ctx, r.router)
	if err != nil {
		return types.RouterState{}, fmt.Errorf("%w: %v", types.ErrRouterUnreadable, err)
	}
	state, err := types.ParseRouterState(selector)
	if err != nil {
		return types.RouterState{}, fmt.Errorf("%w: %v", types.ErrRouterUnreadable, err)
	}
	return state, nil
}

// Resolve returns the active and idle environments. An unset selector is
// the valid first-ever-deployment state and deterministically defaults to
// blue active, green idle.
func (r *Resolver) Resolve(ctx context.Context) (types.Environment, types.Environment, error) {
	state, err := r.State(ctx)
	if err != nil {
		return types.Environment{}, types.Environment{}, err
	}

	activeName := state.ActiveEnv
	if activeName == "" {
		activeName = types.EnvBlue
	}

	active, ok := r.environments[activeName]
	if !ok {
		return types.Environment{}, types.Environment{},
			fmt.Errorf("router selector resolves to unknown environment %q", activeName)
	}

	idleName := types.EnvGreen
	if activeName == types.EnvGreen {
		idleName = types.EnvBlue
	}
	idle := r.environments[idleName]

	active.Active = true
	return active, idle, nil
}
