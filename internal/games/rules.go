// Package games implements the per-game rule sets the match executor
// dispatches to: validity predicates, round-scoring, and game-specific
// input synthesis into GameState.Extra.
package games

import (
	"math/rand"

	"github.com/arcane-tourneys/botarena/internal/agent"
)

// Rules is what the match executor's dispatch registry needs from a
// game to drive one round. Each implementation owns (a) the validity
// predicate, (b) per-round scoring, (c) game-specific Extra synthesis.
type Rules interface {
	GameType() agent.GameType

	// SetupMatch is called once per match before any round, e.g. to
	// randomly assign roles (Penalty shooter, Security attacker). The
	// returned map seeds the match-wide Extra carried into every round.
	SetupMatch(rng *rand.Rand) map[string]interface{}

	// PrepareRound augments matchExtra with this round's inputs
	// (battlefield values, target values, role for this round). The
	// returned map becomes GameState.Extra for round `round`.
	PrepareRound(round, totalRounds int, matchExtra map[string]interface{}, rng *rand.Rand) map[string]interface{}

	// Validate reports whether m is a legal move given roundExtra, and
	// if not, why. isBot1 distinguishes the two sides for games whose
	// validity predicate depends on an assigned role (Security).
	Validate(m agent.Move, roundExtra map[string]interface{}, isBot1 bool) error

	// Score applies the round's scoring function to both moves,
	// returning each side's score delta and round result.
	Score(m1, m2 agent.Move, roundExtra map[string]interface{}) (delta1, delta2 int, r1, r2 agent.RoundResult)
}

// Registry maps GameType to its Rules implementation.
type Registry struct {
	rules map[agent.GameType]Rules
}

func NewRegistry(rules ...Rules) *Registry {
	r := &Registry{rules: make(map[agent.GameType]Rules, len(rules))}
	for _, ru := range rules {
		r.rules[ru.GameType()] = ru
	}
	return r
}

func (r *Registry) Get(gt agent.GameType) (Rules, bool) {
	ru, ok := r.rules[gt]
	return ru, ok
}

// DefaultRegistry wires all four games with the engine's documented defaults.
func DefaultRegistry(blottoTroops, blottoBattlefields, securityTargets, securityTroops int) *Registry {
	return NewRegistry(
		NewRPSLS(),
		NewBlotto(blottoTroops, blottoBattlefields),
		NewPenalty(),
		NewSecurity(securityTargets, securityTroops),
	)
}
