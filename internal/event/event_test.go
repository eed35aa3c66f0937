package event

import (
	"context"
	"math/rand"
	"testing"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/arcane-tourneys/botarena/internal/bus"
	"github.com/arcane-tourneys/botarena/internal/games"
	"github.com/arcane-tourneys/botarena/internal/match"
	"github.com/arcane-tourneys/botarena/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedMoveAgent struct {
	name string
	move agent.Move
}

func (f *fixedMoveAgent) TeamName() string { return f.name }
func (f *fixedMoveAgent) MakeMoveRPSLS(ctx context.Context, s agent.GameState) (agent.Move, error) {
	return f.move, nil
}
func (f *fixedMoveAgent) AllocateTroops(ctx context.Context, s agent.GameState) (agent.Move, error) {
	return agent.MoveInts([]int{20, 20, 20, 20, 20}), nil
}
func (f *fixedMoveAgent) PenaltyDecision(ctx context.Context, s agent.GameState) (agent.Move, error) {
	return agent.MoveString("Left"), nil
}
func (f *fixedMoveAgent) SecurityMove(ctx context.Context, s agent.GameState) (agent.Move, error) {
	return agent.MoveInts([]int{0}), nil
}

func fixedBots(n int, move agent.Move) []*agent.Handle {
	out := make([]*agent.Handle, n)
	for i := 0; i < n; i++ {
		name := string(rune('a' + i))
		out[i] = agent.NewHandle(name, &fixedMoveAgent{name: name, move: move}, 0)
	}
	return out
}

func smallConfigs() (Config, schedule.Config, match.Config) {
	eventCfg := Config{GameOrder: []agent.GameType{agent.RPSLS, agent.Blotto}}
	scheduleCfg := schedule.DefaultConfig()
	scheduleCfg.GroupCount = 1
	scheduleCfg.FinalistsPerGroup = 1
	scheduleCfg.MaxParallelMatches = 2
	matchCfg := match.DefaultConfig()
	matchCfg.TotalRoundsRPSLS = 1
	matchCfg.TotalRoundsBlotto = 1
	return eventCfg, scheduleCfg, matchCfg
}

func TestConfig_ValidateRejectsEmptyGameOrder(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsDuplicateGameType(t *testing.T) {
	cfg := Config{GameOrder: []agent.GameType{agent.RPSLS, agent.RPSLS}}
	assert.Error(t, cfg.Validate())
}

func TestRunTournament_PlaysEveryConfiguredGameAndPicksAChampion(t *testing.T) {
	eventCfg, scheduleCfg, matchCfg := smallConfigs()
	registry := games.DefaultRegistry(100, 5, 4, 100)
	eventBus := bus.New(nil)

	orch, err := NewOrchestrator(eventCfg, scheduleCfg, matchCfg, registry, eventBus, nil, nil)
	require.NoError(t, err)

	bots := fixedBots(4, agent.MoveString("Rock"))
	info, err := orch.RunTournament(context.Background(), "t1", bots, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	assert.Equal(t, Completed, info.State)
	assert.NotEmpty(t, info.Champion)
	assert.Len(t, info.Events, 2)
	assert.Contains(t, info.Events, agent.RPSLS)
	assert.Contains(t, info.Events, agent.Blotto)
}

func TestRunTournament_ReloaderFailureAbortsTheTournament(t *testing.T) {
	eventCfg, scheduleCfg, matchCfg := smallConfigs()
	registry := games.DefaultRegistry(100, 5, 4, 100)

	failingReloader := reloaderFunc(func(ctx context.Context, handles []*agent.Handle) ([]*agent.Handle, error) {
		return nil, assert.AnError
	})

	orch, err := NewOrchestrator(eventCfg, scheduleCfg, matchCfg, registry, nil, nil, failingReloader)
	require.NoError(t, err)

	bots := fixedBots(4, agent.MoveString("Rock"))
	_, err = orch.RunTournament(context.Background(), "t1", bots, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

type reloaderFunc func(ctx context.Context, handles []*agent.Handle) ([]*agent.Handle, error)

func (f reloaderFunc) ReloadAll(ctx context.Context, handles []*agent.Handle) ([]*agent.Handle, error) {
	return f(ctx, handles)
}
