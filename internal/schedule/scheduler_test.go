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

func rockAgent(name string) *agent.Handle {
	return agent.NewHandle(name, &scriptedBracketAgent{move: agent.MoveString("Rock")}, 0)
}

func TestNewScheduler_RejectsNilExecutor(t *testing.T) {
	_, err := NewScheduler(DefaultConfig(), nil, nil)
	assert.Error(t, err)
}

func TestNewScheduler_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GroupCount = 0
	registry := games.DefaultRegistry(100, 5, 4, 100)
	executor, err := match.NewExecutor(match.DefaultConfig(), registry, nil, nil)
	require.NoError(t, err)

	_, err = NewScheduler(cfg, executor, nil)
	assert.Error(t, err)
}

func TestRunEvent_GroupOfFourProducesCompleteRankingAndWinner(t *testing.T) {
	registry := games.DefaultRegistry(100, 5, 4, 100)
	matchCfg := match.DefaultConfig()
	matchCfg.TotalRoundsRPSLS = 3
	executor, err := match.NewExecutor(matchCfg, registry, nil, nil)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.GroupCount = 1
	cfg.FinalistsPerGroup = 1
	cfg.MaxParallelMatches = 2
	cfg.TiebreakerGameType = agent.RPSLS

	scheduler, err := NewScheduler(cfg, executor, nil)
	require.NoError(t, err)

	bots := []*agent.Handle{rockAgent("a"), rockAgent("b"), rockAgent("c"), rockAgent("d")}

	result, err := scheduler.RunEvent(context.Background(), bots, agent.RPSLS, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Len(t, result.Groups, 1)
	assert.NotEmpty(t, result.Winner, "every identical-strategy group must still resolve to a single winner")
	// every bot plays every other bot once in the round robin: 4*3/2 = 6 matches,
	// plus the one-bot "final group" stage (no matches since FinalistsPerGroup=1).
	assert.GreaterOrEqual(t, len(result.Matches), 6)
}

func TestRunEvent_PropagatesSchedulingImpossibleError(t *testing.T) {
	registry := games.DefaultRegistry(100, 5, 4, 100)
	executor, err := match.NewExecutor(match.DefaultConfig(), registry, nil, nil)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.GroupCount = 5
	scheduler, err := NewScheduler(cfg, executor, nil)
	require.NoError(t, err)

	_, err = scheduler.RunEvent(context.Background(), []*agent.Handle{rockAgent("solo")}, agent.RPSLS, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrSchedulingImpossible)
}
