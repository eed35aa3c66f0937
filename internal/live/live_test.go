package live

import (
	"context"
	"testing"
	"time"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/arcane-tourneys/botarena/internal/bus"
	"github.com/arcane-tourneys/botarena/internal/event"
	"github.com/arcane-tourneys/botarena/internal/match"
	"github.com/arcane-tourneys/botarena/internal/schedule"
	"github.com/arcane-tourneys/botarena/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_TournamentStartedSetsCurrentTournament(t *testing.T) {
	a := NewAggregator(bus.New(nil), nil)
	a.apply(bus.TopicTournamentStarted, bus.Event{Payload: "tourn-1"})
	assert.Equal(t, "tourn-1", a.CurrentTournament())
}

func TestApply_EventStartedSetsCurrentEvent(t *testing.T) {
	a := NewAggregator(bus.New(nil), nil)
	a.apply(bus.TopicEventStarted, bus.Event{Payload: schedule.EventStartedPayload{GameType: agent.RPSLS, GroupCount: 2}})
	assert.Equal(t, string(agent.RPSLS), a.CurrentEvent())
}

func TestApply_GroupStandingsUpdateRecomputesOverallLeaders(t *testing.T) {
	a := NewAggregator(bus.New(nil), nil)
	a.apply(bus.TopicEventStarted, bus.Event{Payload: schedule.EventStartedPayload{GameType: agent.RPSLS}})
	a.apply(bus.TopicGroupStandingsUpdate, bus.Event{Payload: schedule.GroupStandingsPayload{
		GroupID: "g1",
		Standings: []scoring.Standing{
			{BotName: "alpha", Points: 9},
			{BotName: "beta", Points: 3},
		},
	}})

	leaders := a.OverallLeaders()
	require.Len(t, leaders, 2)
	assert.Equal(t, "alpha", leaders[0].BotName)

	standings := a.GroupStandings(string(agent.RPSLS), "g1")
	require.Len(t, standings, 2)
}

func TestApply_MatchCompletedAppendsToRecentMatchesWindow(t *testing.T) {
	a := NewAggregator(bus.New(nil), nil)
	a.apply(bus.TopicEventStarted, bus.Event{Payload: schedule.EventStartedPayload{GameType: agent.Blotto}})

	for i := 0; i < recentMatchWindow+3; i++ {
		a.apply(bus.TopicMatchCompleted, bus.Event{Payload: match.Result{MatchID: "m"}})
	}

	recent := a.RecentMatches(string(agent.Blotto))
	assert.Len(t, recent, recentMatchWindow)
}

func TestApply_TournamentCompletedIncrementsTournamentsPlayed(t *testing.T) {
	a := NewAggregator(bus.New(nil), nil)
	a.apply(bus.TopicTournamentCompleted, bus.Event{Payload: event.TournamentInfo{TournamentID: "t1"}})

	_, played := a.SeriesProgress()
	assert.Equal(t, 1, played)
}

func TestApply_SeriesStartedResetsTournamentsPlayed(t *testing.T) {
	a := NewAggregator(bus.New(nil), nil)
	a.apply(bus.TopicTournamentCompleted, bus.Event{Payload: event.TournamentInfo{TournamentID: "t1"}})
	a.apply(bus.TopicSeriesStarted, bus.Event{Payload: "series-1"})

	seriesID, played := a.SeriesProgress()
	assert.Equal(t, "series-1", seriesID)
	assert.Equal(t, 0, played)
}

func TestTakeSnapshot_ReturnsIndependentCopy(t *testing.T) {
	a := NewAggregator(bus.New(nil), nil)
	a.apply(bus.TopicTournamentStarted, bus.Event{Payload: "tourn-1"})

	snap := a.TakeSnapshot()
	assert.Equal(t, "tourn-1", snap.TournamentID)

	a.apply(bus.TopicTournamentStarted, bus.Event{Payload: "tourn-2"})
	assert.Equal(t, "tourn-1", snap.TournamentID, "snapshot must not reflect subsequent state changes")
}

func TestStartAndStop_ConsumesPublishedEventsUntilStopped(t *testing.T) {
	b := bus.New(nil)
	a := NewAggregator(b, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)
	defer a.Stop()

	b.Publish(bus.TopicTournamentStarted, "tourn-live")

	require.Eventually(t, func() bool {
		return a.CurrentTournament() == "tourn-live"
	}, time.Second, 10*time.Millisecond)
}
