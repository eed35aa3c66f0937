// Package live materialises a single coherent snapshot of the running
// tournament by subscribing to the event bus. Every query
// returns an independently-owned copy; callers never observe a torn
// read, but concurrent callers are not synchronised against each other
// beyond that.
package live

import (
	"context"
	"sync"

	"github.com/arcane-tourneys/botarena/internal/bus"
	"github.com/arcane-tourneys/botarena/internal/event"
	"github.com/arcane-tourneys/botarena/internal/match"
	"github.com/arcane-tourneys/botarena/internal/schedule"
	"github.com/arcane-tourneys/botarena/internal/scoring"
	"go.uber.org/zap"
)

const recentMatchWindow = 10

// GroupKey identifies one group's standings within a running event.
type GroupKey struct {
	EventID string
	GroupID string
}

// state is the aggregator's live view, guarded by mu. Fields are
// plain data; callers only ever see copies via the query methods.
type state struct {
	currentTournamentID string
	currentEventID      string

	groupStandings map[GroupKey][]scoring.Standing
	recentMatches  map[string][]match.Result // keyed by eventId
	overallLeaders []scoring.Standing

	seriesID          string
	tournamentsPlayed int
}

// Aggregator subscribes to the bus and serves read-only live queries.
type Aggregator struct {
	mu    sync.RWMutex
	state state

	bus    *bus.Bus
	logger *zap.SugaredLogger
	subs   []*bus.Subscription
}

func NewAggregator(eventBus *bus.Bus, logger *zap.SugaredLogger) *Aggregator {
	return &Aggregator{
		bus:    eventBus,
		logger: logger,
		state: state{
			groupStandings: make(map[GroupKey][]scoring.Standing),
			recentMatches:  make(map[string][]match.Result),
		},
	}
}

// Start subscribes to every lifecycle topic the aggregator tracks and
// runs its consumption loop until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) {
	topics := []bus.Topic{
		bus.TopicEventStarted,
		bus.TopicEventCompleted,
		bus.TopicGroupStandingsUpdate,
		bus.TopicMatchCompleted,
		bus.TopicSeriesStarted,
		bus.TopicSeriesCompleted,
		bus.TopicTournamentStarted,
		bus.TopicTournamentCompleted,
	}

	for _, topic := range topics {
		sub := a.bus.Subscribe(topic, 0)
		a.subs = append(a.subs, sub)
		go a.consume(ctx, topic, sub)
	}
}

// Stop cancels every subscription the aggregator opened.
func (a *Aggregator) Stop() {
	for _, s := range a.subs {
		s.Cancel()
	}
}

func (a *Aggregator) consume(ctx context.Context, topic bus.Topic, sub *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.Events:
			if !ok {
				return
			}
			a.apply(topic, evt)
		}
	}
}

func (a *Aggregator) apply(topic bus.Topic, evt bus.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch topic {
	case bus.TopicTournamentStarted:
		if id, ok := evt.Payload.(string); ok {
			a.state.currentTournamentID = id
		}
	case bus.TopicTournamentCompleted:
		if info, ok := evt.Payload.(event.TournamentInfo); ok {
			a.state.currentTournamentID = info.TournamentID
			a.state.tournamentsPlayed++
		}
	case bus.TopicSeriesStarted:
		if id, ok := evt.Payload.(string); ok {
			a.state.seriesID = id
			a.state.tournamentsPlayed = 0
		}
	case bus.TopicSeriesCompleted:
		// terminal event; tournamentsPlayed already reflects the final count
	case bus.TopicEventStarted:
		if payload, ok := evt.Payload.(schedule.EventStartedPayload); ok {
			a.state.currentEventID = string(payload.GameType)
		}
	case bus.TopicEventCompleted:
		// currentEventID is left set until the next EventStarted so late
		// readers still see which event just finished.
	case bus.TopicGroupStandingsUpdate:
		if payload, ok := evt.Payload.(schedule.GroupStandingsPayload); ok {
			key := GroupKey{EventID: a.state.currentEventID, GroupID: payload.GroupID}
			a.state.groupStandings[key] = append([]scoring.Standing(nil), payload.Standings...)
			a.recomputeLeadersLocked()
		}
	case bus.TopicMatchCompleted:
		if result, ok := evt.Payload.(match.Result); ok {
			eventID := a.state.currentEventID
			window := append(a.state.recentMatches[eventID], result)
			if len(window) > recentMatchWindow {
				window = window[len(window)-recentMatchWindow:]
			}
			a.state.recentMatches[eventID] = window
		}
	}
}

// recomputeLeadersLocked folds every tracked group's standings into a
// single cross-group leaderboard, ranked by the same four-key rule.
// Callers must hold a.mu.
func (a *Aggregator) recomputeLeadersLocked() {
	totals := make(map[string]scoring.Standing)
	for _, standings := range a.state.groupStandings {
		for _, s := range standings {
			acc, ok := totals[s.BotName]
			if !ok {
				acc = scoring.Standing{BotName: s.BotName}
			}
			acc.Points += s.Points
			acc.Wins += s.Wins
			acc.Losses += s.Losses
			acc.Draws += s.Draws
			acc.GoalDiff += s.GoalDiff
			totals[s.BotName] = acc
		}
	}
	flat := make([]scoring.Standing, 0, len(totals))
	for _, s := range totals {
		flat = append(flat, s)
	}
	a.state.overallLeaders = scoring.RankGroup(flat)

	if a.bus != nil {
		a.bus.Publish(bus.TopicStandingsUpdated, append([]scoring.Standing(nil), a.state.overallLeaders...))
	}
}

// Snapshot is a coherent point-in-time copy of everything the
// aggregator tracks, suitable for publishing as a coalescable
// TopicStateSnapshot event for newly-connected dashboard clients.
type Snapshot struct {
	TournamentID   string
	EventID        string
	OverallLeaders []scoring.Standing
	SeriesID       string
	TournamentsPlayed int
}

// TakeSnapshot returns an independent copy of the aggregator's current
// view.
func (a *Aggregator) TakeSnapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		TournamentID:      a.state.currentTournamentID,
		EventID:           a.state.currentEventID,
		OverallLeaders:    append([]scoring.Standing(nil), a.state.overallLeaders...),
		SeriesID:          a.state.seriesID,
		TournamentsPlayed: a.state.tournamentsPlayed,
	}
}

// CurrentTournament returns the tournament ID currently in progress,
// or "" if none has started.
func (a *Aggregator) CurrentTournament() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.currentTournamentID
}

// CurrentEvent returns the game type currently in progress (as its
// string form), or "" if none has started.
func (a *Aggregator) CurrentEvent() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.currentEventID
}

// GroupStandings returns an independent copy of one group's current
// standings, or nil if that group is unknown to the aggregator.
func (a *Aggregator) GroupStandings(eventID, groupID string) []scoring.Standing {
	a.mu.RLock()
	defer a.mu.RUnlock()
	standings := a.state.groupStandings[GroupKey{EventID: eventID, GroupID: groupID}]
	return append([]scoring.Standing(nil), standings...)
}

// RecentMatches returns the last (up to 10) completed matches for
// eventID, oldest first.
func (a *Aggregator) RecentMatches(eventID string) []match.Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	window := a.state.recentMatches[eventID]
	return append([]match.Result(nil), window...)
}

// OverallLeaders returns the current cross-group leaderboard.
func (a *Aggregator) OverallLeaders() []scoring.Standing {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]scoring.Standing(nil), a.state.overallLeaders...)
}

// SeriesProgress reports tournaments played so far in the active
// series.
func (a *Aggregator) SeriesProgress() (seriesID string, played int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.seriesID, a.state.tournamentsPlayed
}
