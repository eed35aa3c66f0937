// Package event orchestrates the four games of one tournament in
// sequence, aggregating cross-event match-win totals into a champion.
package event

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/arcane-tourneys/botarena/internal/bus"
	"github.com/arcane-tourneys/botarena/internal/games"
	"github.com/arcane-tourneys/botarena/internal/match"
	"github.com/arcane-tourneys/botarena/internal/schedule"
	"github.com/arcane-tourneys/botarena/internal/scoring"
	"go.uber.org/zap"
)

// State is a game's lifecycle stage within a tournament. Transitions
// are monotone: Pending -> InProgress -> Completed, never backwards.
type State string

const (
	Pending    State = "Pending"
	InProgress State = "InProgress"
	Completed  State = "Completed"
)

// Info is one game's record within a tournament.
type Info struct {
	EventID    string
	GameType   agent.GameType
	State      State
	Groups     []*schedule.Group
	FinalGroup *schedule.Group
	Matches    []match.Result
	Winner     string
}

// TournamentInfo is the full record of one tournament: every event in
// configured order, plus the cross-event champion once decided.
type TournamentInfo struct {
	TournamentID   string
	State          State
	Events         map[agent.GameType]*Info
	EventOrder     []agent.GameType
	RegisteredBots []string
	Champion       string
	StartedAt      time.Time
	EndedAt        time.Time
}

// Reloader is the agent-loader collaborator's optional reload contract
// A nil Reloader means agents persist unchanged
// across events within the tournament.
type Reloader interface {
	ReloadAll(ctx context.Context, handles []*agent.Handle) ([]*agent.Handle, error)
}

// Config is the subset of the configuration surface the
// event orchestrator needs beyond what it delegates to match.Config
// and schedule.Config.
type Config struct {
	GameOrder []agent.GameType
}

func DefaultConfig() Config {
	return Config{GameOrder: []agent.GameType{agent.RPSLS, agent.Blotto, agent.Penalty, agent.Security}}
}

func (c Config) Validate() error {
	if len(c.GameOrder) == 0 {
		return fmt.Errorf("event: gameOrder must not be empty")
	}
	seen := make(map[agent.GameType]bool, len(c.GameOrder))
	for _, gt := range c.GameOrder {
		if !gt.Valid() {
			return fmt.Errorf("event: invalid game type %q in gameOrder", gt)
		}
		if seen[gt] {
			return fmt.Errorf("event: duplicate game type %q in gameOrder", gt)
		}
		seen[gt] = true
	}
	return nil
}

// Orchestrator runs one tournament's four events in sequence. It is
// reused across tournaments within a series; all per-tournament state
// lives in the returned TournamentInfo, not on the Orchestrator itself.
type Orchestrator struct {
	eventCfg    Config
	scheduleCfg schedule.Config
	matchCfg    match.Config
	registry    *games.Registry
	bus         *bus.Bus
	logger      *zap.SugaredLogger
	reloader    Reloader
}

func NewOrchestrator(eventCfg Config, scheduleCfg schedule.Config, matchCfg match.Config, registry *games.Registry, eventBus *bus.Bus, logger *zap.SugaredLogger, reloader Reloader) (*Orchestrator, error) {
	if err := eventCfg.Validate(); err != nil {
		return nil, err
	}
	if err := scheduleCfg.Validate(); err != nil {
		return nil, err
	}
	if err := matchCfg.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		eventCfg:    eventCfg,
		scheduleCfg: scheduleCfg,
		matchCfg:    matchCfg,
		registry:    registry,
		bus:         eventBus,
		logger:      logger,
		reloader:    reloader,
	}, nil
}

// RunTournament plays every configured game in order against bots,
// aggregating cross-event match-win totals into a single champion.
func (o *Orchestrator) RunTournament(ctx context.Context, tournamentID string, bots []*agent.Handle, rng *rand.Rand) (TournamentInfo, error) {
	names := make([]string, len(bots))
	for i, h := range bots {
		names[i] = h.TeamName
	}

	info := TournamentInfo{
		TournamentID:   tournamentID,
		State:          InProgress,
		Events:         make(map[agent.GameType]*Info, len(o.eventCfg.GameOrder)),
		EventOrder:     append([]agent.GameType(nil), o.eventCfg.GameOrder...),
		RegisteredBots: names,
		StartedAt:      time.Now(),
	}

	if o.bus != nil {
		o.bus.Publish(bus.TopicTournamentStarted, tournamentID)
	}

	crossEventWins := make(map[string]int, len(bots))
	for _, name := range names {
		crossEventWins[name] = 0
	}

	executor, err := match.NewExecutor(o.matchCfg, o.registry, o.bus, o.logger)
	if err != nil {
		return info, err
	}

	currentBots := bots
	for idx, gt := range o.eventCfg.GameOrder {
		if err := ctx.Err(); err != nil {
			return info, err
		}

		if o.reloader != nil {
			reloaded, rerr := o.reloader.ReloadAll(ctx, currentBots)
			if rerr != nil {
				return info, fmt.Errorf("event: reload before %s: %w", gt, rerr)
			}
			currentBots = reloaded
			for _, h := range currentBots {
				h.ResetMemory()
			}
		}

		eventInfo, err := o.runEvent(ctx, gt, idx, len(o.eventCfg.GameOrder), currentBots, crossEventWins, rng)
		if err != nil {
			return info, err
		}
		info.Events[gt] = eventInfo
	}

	totals := make([]scoring.Standing, 0, len(names))
	for _, name := range names {
		wins := crossEventWins[name]
		totals = append(totals, scoring.Standing{BotName: name, Points: wins, Wins: wins})
	}
	ranked := scoring.RankAggregate(totals)
	champion := ranked[0].BotName

	tied := scoring.TiedGroup(ranked)
	if len(tied) > 1 {
		byName := make(map[string]*agent.Handle, len(currentBots))
		for _, h := range currentBots {
			byName[h.TeamName] = h
		}
		tiedNames := make([]string, len(tied))
		for i, t := range tied {
			tiedNames[i] = t.BotName
		}
		resolved, bracketResults, err := schedule.NewBracket(o.scheduleCfg, executor, byName).Resolve(ctx, tiedNames, rng)
		if err != nil {
			return info, err
		}
		if tb, ok := info.Events[o.scheduleCfg.TiebreakerGameType]; ok {
			tb.Matches = append(tb.Matches, bracketResults...)
		}
		champion = resolved[0]
	}

	info.Champion = champion
	info.State = Completed
	info.EndedAt = time.Now()

	if o.bus != nil {
		o.bus.Publish(bus.TopicTournamentCompleted, info)
	}

	return info, nil
}

func (o *Orchestrator) runEvent(ctx context.Context, gt agent.GameType, index, total int, bots []*agent.Handle, crossEventWins map[string]int, rng *rand.Rand) (*Info, error) {
	eventInfo := &Info{
		EventID:  fmt.Sprintf("event-%d-%s", index, gt),
		GameType: gt,
		State:    InProgress,
	}

	if o.bus != nil {
		o.bus.Publish(bus.TopicEventStarted, schedule.EventStartedPayload{GameType: gt, GroupCount: o.scheduleCfg.GroupCount})
	}

	executor, err := match.NewExecutor(o.matchCfg, o.registry, o.bus, o.logger)
	if err != nil {
		return nil, err
	}
	scheduler, err := schedule.NewScheduler(o.scheduleCfg, executor, o.bus)
	if err != nil {
		return nil, err
	}

	result, err := scheduler.RunEvent(ctx, bots, gt, rng)
	if err != nil {
		return nil, err
	}

	eventInfo.Groups = result.Groups
	eventInfo.FinalGroup = result.FinalGroup
	eventInfo.Matches = result.Matches
	eventInfo.Winner = result.Winner
	eventInfo.State = Completed

	for _, m := range result.Matches {
		switch m.Outcome {
		case match.Bot1Wins:
			crossEventWins[m.Bot1Name]++
		case match.Bot2Wins:
			crossEventWins[m.Bot2Name]++
		}
	}

	if o.bus != nil {
		o.bus.Publish(bus.TopicEventCompleted, schedule.EventCompletedPayload{GameType: gt, Winner: result.Winner})
	}

	return eventInfo, nil
}
