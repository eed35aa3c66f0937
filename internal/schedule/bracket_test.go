package schedule

import (
	"context"
	"math/rand"
	"testing"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/arcane-tourneys/botarena/internal/games"
	"github.com/arcane-tourneys/botarena/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBracketPositions_PlacesSeedsForLatestPossibleMeeting(t *testing.T) {
	assert.Equal(t, []int{0}, bracketPositions(1))
	assert.Equal(t, []int{0, 1}, bracketPositions(2))
	// for a bracket of 4, seed 1 (index 1) must land opposite seed 0's half.
	positions := bracketPositions(4)
	assert.Len(t, positions, 4)
}

func TestNextPowerOfTwo(t *testing.T) {
	assert.Equal(t, 1, nextPowerOfTwo(1))
	assert.Equal(t, 4, nextPowerOfTwo(3))
	assert.Equal(t, 4, nextPowerOfTwo(4))
	assert.Equal(t, 8, nextPowerOfTwo(5))
}

func TestBracket_ResolveSingleEntryReturnsUnchanged(t *testing.T) {
	cfg := DefaultConfig()
	b := NewBracket(cfg, nil, nil)
	ordered, played, err := b.Resolve(context.Background(), []string{"solo"}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, ordered)
	assert.Empty(t, played)
}

func TestBracket_ResolveTwoEntriesPlaysOneMatchAndPlacesWinnerFirst(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TiebreakerGameType = agent.RPSLS
	cfg.MaxTiebreakerRematches = 2

	registry := games.DefaultRegistry(100, 5, 4, 100)
	matchCfg := match.DefaultConfig()
	matchCfg.TotalRoundsRPSLS = 1
	executor, err := match.NewExecutor(matchCfg, registry, nil, nil)
	require.NoError(t, err)

	rockBot := agent.NewHandle("rock", &scriptedBracketAgent{move: agent.MoveString("Rock")}, 0)
	scissorsBot := agent.NewHandle("scissors", &scriptedBracketAgent{move: agent.MoveString("Scissors")}, 0)

	byName := map[string]*agent.Handle{"rock": rockBot, "scissors": scissorsBot}
	b := NewBracket(cfg, executor, byName)

	ordered, played, err := b.Resolve(context.Background(), []string{"rock", "scissors"}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, played, 1)
	assert.Equal(t, "rock", ordered[0], "rock beats scissors, so rock must be seeded first")
}

type scriptedBracketAgent struct{ move agent.Move }

func (s *scriptedBracketAgent) TeamName() string { return "" }
func (s *scriptedBracketAgent) MakeMoveRPSLS(ctx context.Context, st agent.GameState) (agent.Move, error) {
	return s.move, nil
}
func (s *scriptedBracketAgent) AllocateTroops(ctx context.Context, st agent.GameState) (agent.Move, error) {
	return s.move, nil
}
func (s *scriptedBracketAgent) PenaltyDecision(ctx context.Context, st agent.GameState) (agent.Move, error) {
	return s.move, nil
}
func (s *scriptedBracketAgent) SecurityMove(ctx context.Context, st agent.GameState) (agent.Move, error) {
	return s.move, nil
}
