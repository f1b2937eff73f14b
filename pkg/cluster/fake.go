package cluster

import (
	"context"
	"errors"
	"sync"
)

// ErrNoRouter simulates a missing router resource
var ErrNoRouter = errors.New("router resource not found")

// Fake is an in-memory Interface implementation for tests. It records
// every apply and selector patch and lets tests script readiness and
// error behavior.
type Fake struct {
	mu sync.Mutex

	// RouterSelector is the current router selector. Nil simulates an
	// unreadable router.
	RouterSelector map[string]string

	// SelectorHistory records every patched selector in order
	SelectorHistory []map[string]string

	// Applied records every manifest passed to Apply in order
	Applied []Manifest

	// ReadinessFn overrides readiness reporting. When nil, every applied
	// manifest in the namespace reports fully ready.
	ReadinessFn func(namespace string, selector map[string]string) (ReadinessStatus, error)

	ApplyErr error
	PatchErr error
}

// NewFake returns a Fake whose router carries the given selector
func NewFake(selector map[string]string) *Fake {
	return &Fake{RouterSelector: selector}
}

// Apply records the manifest
func (f *Fake) Apply(_ context.Context, manifest Manifest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ApplyErr != nil {
		return f.ApplyErr
	}
	f.Applied = append(f.Applied, manifest)
	return nil
}

// GetReadiness reports scripted or derived readiness
func (f *Fake) GetReadiness(_ context.Context, namespace string, selector map[string]string) (ReadinessStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadinessFn != nil {
		return f.ReadinessFn(namespace, selector)
	}

	var status ReadinessStatus
	for _, m := range f.Applied {
		if m.Namespace != namespace {
			continue
		}
		status.Services = append(status.Services, ServiceReadiness{
			Service:         m.Name,
			ReadyReplicas:   m.Replicas,
			DesiredReplicas: m.Replicas,
		})
	}
	return status, nil
}

// GetSelector returns a copy of the current router selector
func (f *Fake) GetSelector(_ context.Context, _ RouterRef) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RouterSelector == nil {
		return nil, ErrNoRouter
	}
	copied := make(map[string]string, len(f.RouterSelector))
	for k, v := range f.RouterSelector {
		copied[k] = v
	}
	return copied, nil
}

// PatchSelector replaces the router selector and records it
func (f *Fake) PatchSelector(_ context.Context, _ RouterRef, selector map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PatchErr != nil {
		return f.PatchErr
	}
	copied := make(map[string]string, len(selector))
	for k, v := range selector {
		copied[k] = v
	}
	f.RouterSelector = copied
	f.SelectorHistory = append(f.SelectorHistory, copied)
	return nil
}
