package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Component is a long-lived part of the bot process (gatekeeper workers,
// the sweeper, the admin panel server).
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Runtime struct {
	components []Component
}

func NewRuntime(components ...Component) *Runtime {
	return &Runtime{components: components}
}

func (r *Runtime) Register(component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, component)
}

// Start brings components up in registration order. A failed start tears
// down whatever already started, in reverse.
func (r *Runtime) Start(ctx context.Context) error {
	for i, component := range r.components {
		if component == nil {
			continue
		}
		if err := component.Start(ctx); err != nil {
			stopErr := stopAll(ctx, r.components[:i])
			return errors.Join(fmt.Errorf("start component %d: %w", i, err), stopErr)
		}
	}
	return nil
}

// Stop shuts components down concurrently; the slowest one bounds shutdown,
// components must not depend on each other during Stop.
func (r *Runtime) Stop(ctx context.Context) error {
	return stopAll(ctx, r.components)
}

func stopAll(ctx context.Context, components []Component) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, component := range components {
		if component == nil {
			continue
		}
		g.Go(func() error {
			return component.Stop(ctx)
		})
	}
	return g.Wait()
}
