package agent

import (
	"context"
	"fmt"
)

// ExternalState is the shape a non-core strategy expects. The
// engine never uses runtime type inspection to bridge between shapes:
// each external agent kind registers a pair of pure translation
// functions, selected by a stable agentKind tag.
type ExternalState any

// ShapeAdapter translates the core's GameState into a wrapped
// strategy's own view and its returned value back into a Move. It is
// the one supported way to plug in a strategy whose GameState layout
// diverges from the core's, replacing reflective adaptation.
type ShapeAdapter interface {
	Kind() string
	ToExternal(GameState) ExternalState
	FromExternal(any) (Move, error)
}

// ExternalStrategy is the shape an externally-loaded strategy exposes;
// it is wrapped together with a registered ShapeAdapter to form an
// Agent. The strategy only needs these four functions; adaptation of the
// GameState/Move types happens through the adapter, never reflection.
type ExternalStrategy interface {
	RPSLS(ctx context.Context, s ExternalState) (any, error)
	Blotto(ctx context.Context, s ExternalState) (any, error)
	Penalty(ctx context.Context, s ExternalState) (any, error)
	Security(ctx context.Context, s ExternalState) (any, error)
}

type externalAgent struct {
	teamName string
	strategy ExternalStrategy
	adapter  ShapeAdapter
}

// NewExternalAgent builds an Agent that bridges a differently-shaped
// wrapped strategy through adapter.
func NewExternalAgent(teamName string, strategy ExternalStrategy, adapter ShapeAdapter) Agent {
	return &externalAgent{teamName: teamName, strategy: strategy, adapter: adapter}
}

func (e *externalAgent) TeamName() string { return e.teamName }

func (e *externalAgent) MakeMoveRPSLS(ctx context.Context, state GameState) (Move, error) {
	out, err := e.strategy.RPSLS(ctx, e.adapter.ToExternal(state))
	if err != nil {
		return Move{}, err
	}
	return e.adapter.FromExternal(out)
}

func (e *externalAgent) AllocateTroops(ctx context.Context, state GameState) (Move, error) {
	out, err := e.strategy.Blotto(ctx, e.adapter.ToExternal(state))
	if err != nil {
		return Move{}, err
	}
	return e.adapter.FromExternal(out)
}

func (e *externalAgent) PenaltyDecision(ctx context.Context, state GameState) (Move, error) {
	out, err := e.strategy.Penalty(ctx, e.adapter.ToExternal(state))
	if err != nil {
		return Move{}, err
	}
	return e.adapter.FromExternal(out)
}

func (e *externalAgent) SecurityMove(ctx context.Context, state GameState) (Move, error) {
	out, err := e.strategy.Security(ctx, e.adapter.ToExternal(state))
	if err != nil {
		return Move{}, err
	}
	return e.adapter.FromExternal(out)
}

// AdapterRegistry maps a stable agentKind tag to its ShapeAdapter so
// loaders can select the right bridge without inspecting the wrapped
// value's runtime type. Scoped per tournament (no process-wide
// singletons); callers construct one and hand it down via context.
type AdapterRegistry struct {
	adapters map[string]ShapeAdapter
}

func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[string]ShapeAdapter)}
}

func (r *AdapterRegistry) Register(a ShapeAdapter) {
	r.adapters[a.Kind()] = a
}

func (r *AdapterRegistry) Get(kind string) (ShapeAdapter, error) {
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("agent: no shape adapter registered for kind %q", kind)
	}
	return a, nil
}
