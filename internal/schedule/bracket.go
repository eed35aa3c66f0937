package schedule

import (
	"context"
	"math/rand"
	"sort"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/arcane-tourneys/botarena/internal/match"
)

// bracketPositions recursively interleaves seed slots so that higher
// seeds meet lower seeds as late as possible, the same construction
// a bracket-building library would use for single-elimination fixtures
// (createBracketPositions), generalised here to the tiebreaker
// bracket's bye handling.
func bracketPositions(size int) []int {
	if size <= 1 {
		return []int{0}
	}
	if size == 2 {
		return []int{0, 1}
	}
	half := size / 2
	left := bracketPositions(half)

	positions := make([]int, size)
	for i := 0; i < half; i++ {
		positions[i*2] = left[i]
		positions[i*2+1] = size - 1 - left[i]
	}
	return positions
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// Bracket runs the single-elimination tiebreaker adjudication spec
// seeds the tied set in seed order with byes to the top
// seeds, play tiebreakerGameType matches, replay draws/double-errors up
// to maxRematches, and fall back to name-ascending order as the
// terminal rule so the bracket can never loop forever.
type Bracket struct {
	cfg      Config
	executor *match.Executor
	byName   map[string]*agent.Handle
}

func NewBracket(cfg Config, executor *match.Executor, byName map[string]*agent.Handle) *Bracket {
	return &Bracket{cfg: cfg, executor: executor, byName: byName}
}

// Resolve orders tiedSeedNames (already in seed order: original group
// ranking, then name) with the bracket winner placed first and the
// rest retaining their tied order below it. It returns the ordering
// plus every match played while resolving it.
func (b *Bracket) Resolve(ctx context.Context, tiedSeedNames []string, rng *rand.Rand) ([]string, []match.Result, error) {
	t := len(tiedSeedNames)
	if t < 2 {
		return tiedSeedNames, nil, nil
	}

	size := nextPowerOfTwo(t)
	positions := bracketPositions(size)

	// slot[i] holds the seed index positions[i] seated in bracket slot i,
	// or -1 for a bye. Seeds t..size-1 do not exist, and each sits
	// opposite one of the top size-t seeds, so those seeds get the byes.
	slot := make([]int, size)
	for i, seed := range positions {
		slot[i] = -1
		if seed < t {
			slot[i] = seed
		}
	}

	var played []match.Result
	for len(slot) > 1 {
		next := make([]int, 0, len(slot)/2)
		for i := 0; i < len(slot); i += 2 {
			a, bIdx := slot[i], slot[i+1]
			switch {
			case a == -1 && bIdx == -1:
				next = append(next, -1)
			case a == -1:
				next = append(next, bIdx)
			case bIdx == -1:
				next = append(next, a)
			default:
				winnerSeed, results, err := b.playSeries(ctx, tiedSeedNames[a], tiedSeedNames[bIdx], a, bIdx, rng)
				if err != nil {
					return nil, played, err
				}
				played = append(played, results...)
				next = append(next, winnerSeed)
			}
		}
		slot = next
	}

	championSeed := slot[0]
	ordered := make([]string, 0, t)
	ordered = append(ordered, tiedSeedNames[championSeed])
	for i, name := range tiedSeedNames {
		if i != championSeed {
			ordered = append(ordered, name)
		}
	}
	return ordered, played, nil
}

// playSeries plays one bracket match, replaying on Draw/BothError up
// to maxTiebreakerRematches, then falling back to name-ascending order.
func (b *Bracket) playSeries(ctx context.Context, nameA, nameB string, seedA, seedB int, rng *rand.Rand) (int, []match.Result, error) {
	handleA, handleB := b.byName[nameA], b.byName[nameB]
	var results []match.Result

	for attempt := 0; attempt <= b.cfg.MaxTiebreakerRematches; attempt++ {
		result, err := b.executor.Run(ctx, handleA, handleB, b.cfg.TiebreakerGameType, rng)
		if err != nil {
			return 0, results, err
		}
		results = append(results, result)

		switch result.Outcome {
		case match.Bot1Wins, match.Bot2Error:
			return seedA, results, nil
		case match.Bot2Wins, match.Bot1Error:
			return seedB, results, nil
		default:
			// Draw or BothError: replay.
		}
	}

	// Terminal fallback: name-ascending order, never an infinite loop.
	names := []string{nameA, nameB}
	sort.Strings(names)
	if names[0] == nameA {
		return seedA, results, nil
	}
	return seedB, results, nil
}
