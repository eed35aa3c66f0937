package schedule

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/arcane-tourneys/botarena/internal/bus"
	"github.com/arcane-tourneys/botarena/internal/match"
	"github.com/arcane-tourneys/botarena/internal/scoring"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// EventStage distinguishes the group stage from the single final group
// advancers play, for the EventStageChanged event.
type EventStage string

const (
	StageGroup    EventStage = "groupStage"
	StagePlayoff  EventStage = "playoffGroup"
)

// EventResult is everything the event orchestrator needs from
// one game type's group stage + final group.
type EventResult struct {
	GameType   agent.GameType
	Groups     []*Group
	FinalGroup *Group
	Matches    []match.Result
	Winner     string
}

// EventStartedPayload, StageChangedPayload, EventCompletedPayload, and
// GroupStandingsPayload are the bus payloads this package publishes.
type EventStartedPayload struct {
	GameType   agent.GameType
	GroupCount int
}

type StageChangedPayload struct {
	GameType agent.GameType
	From     EventStage
	To       EventStage
}

type EventCompletedPayload struct {
	GameType agent.GameType
	Winner   string
}

type GroupStandingsPayload struct {
	GroupID   string
	Standings []scoring.Standing
}

type matchJob struct {
	group *Group
	pair  [2]*agent.Handle
}

// Scheduler drives the round-robin group stage, advancement, and
// tiebreaker brackets for one game type. It never fails
// because an agent faulted — only a malformed configuration or an
// agent set that shrinks below 2 mid-group surfaces as an error.
type Scheduler struct {
	cfg      Config
	executor *match.Executor
	bus      *bus.Bus
	gate     *AdmissionGate
}

func NewScheduler(cfg Config, executor *match.Executor, eventBus *bus.Bus) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if executor == nil {
		return nil, fmt.Errorf("schedule: executor must not be nil")
	}
	return &Scheduler{cfg: cfg, executor: executor, bus: eventBus, gate: NewAdmissionGate()}, nil
}

// RunEvent plays the full group-stage-then-final-group lifecycle for
// one game type across bots.
func (s *Scheduler) RunEvent(ctx context.Context, bots []*agent.Handle, gt agent.GameType, rng *rand.Rand) (EventResult, error) {
	byName := make(map[string]*agent.Handle, len(bots))
	for _, h := range bots {
		byName[h.TeamName] = h
	}

	groups, err := BuildGroups(bots, s.cfg.GroupCount, rng)
	if err != nil {
		return EventResult{}, err
	}

	s.publish(bus.TopicEventStarted, EventStartedPayload{GameType: gt, GroupCount: len(groups)})

	allResults, err := s.runGroupStage(ctx, groups, gt, rng)
	if err != nil {
		return EventResult{}, err
	}

	for _, g := range groups {
		g.Complete = true
	}

	finalists, finalistResults, err := s.advance(ctx, groups, byName, rng)
	if err != nil {
		return EventResult{}, err
	}
	allResults = append(allResults, finalistResults...)

	s.publish(bus.TopicEventStageChanged, StageChangedPayload{GameType: gt, From: StageGroup, To: StagePlayoff})

	finalGroup := newGroup("final", finalists)
	finalResults, err := s.runRoundRobin(ctx, finalGroup, gt, rng)
	if err != nil {
		return EventResult{}, err
	}
	allResults = append(allResults, finalResults...)
	finalGroup.Complete = true

	ranked := finalGroup.Ranked()
	tied := scoring.TiedGroup(ranked)
	winner := ranked[0].BotName
	if len(tied) > 1 {
		resolvedNames, bracketResults, err := NewBracket(s.cfg, s.executor, byName).Resolve(ctx, seedOrder(tied), rng)
		if err != nil {
			return EventResult{}, err
		}
		allResults = append(allResults, bracketResults...)
		winner = resolvedNames[0]
	}

	s.publish(bus.TopicEventCompleted, EventCompletedPayload{GameType: gt, Winner: winner})

	return EventResult{
		GameType:   gt,
		Groups:     groups,
		FinalGroup: finalGroup,
		Matches:    allResults,
		Winner:     winner,
	}, nil
}

// runGroupStage plays every group's round robin concurrently, bounded
// by maxParallelMatches overall: pull a batch of up to
// maxParallelMatches pending matches and run them concurrently.
func (s *Scheduler) runGroupStage(ctx context.Context, groups []*Group, gt agent.GameType, rng *rand.Rand) ([]match.Result, error) {
	var jobs []matchJob
	for _, g := range groups {
		for _, pair := range Pairings(g.Bots) {
			jobs = append(jobs, matchJob{group: g, pair: pair})
		}
	}

	return s.execute(ctx, jobs, gt, rng)
}

func (s *Scheduler) runRoundRobin(ctx context.Context, g *Group, gt agent.GameType, rng *rand.Rand) ([]match.Result, error) {
	var jobs []matchJob
	for _, pair := range Pairings(g.Bots) {
		jobs = append(jobs, matchJob{group: g, pair: pair})
	}
	return s.execute(ctx, jobs, gt, rng)
}

// execute runs every job with at most maxParallelMatches in flight at
// once, using a weighted semaphore to bound concurrency and an
// errgroup to fan the first failure back out and cancel the rest
// (pull a batch of up to maxParallelMatches pending matches and run
// them concurrently).
func (s *Scheduler) execute(ctx context.Context, jobs []matchJob, gt agent.GameType, rng *rand.Rand) ([]match.Result, error) {
	sem := semaphore.NewWeighted(int64(s.cfg.MaxParallelMatches))
	results := make([]match.Result, len(jobs))

	group, groupCtx := errgroup.WithContext(ctx)
	var rngMu sync.Mutex

	for i, j := range jobs {
		i, j := i, j

		if err := sem.Acquire(groupCtx, 1); err != nil {
			return nil, err
		}

		group.Go(func() error {
			defer sem.Release(1)

			release := s.gate.Acquire(j.pair[0].TeamName, j.pair[1].TeamName)
			defer release()

			rngMu.Lock()
			matchSeed := rng.Int63()
			rngMu.Unlock()
			matchRNG := rand.New(rand.NewSource(matchSeed))

			result, err := s.executor.Run(groupCtx, j.pair[0], j.pair[1], gt, matchRNG)
			if err != nil {
				return err
			}
			results[i] = result

			applyErr := j.group.applyResultLocked(func(st *scoring.Standings) error {
				return st.ApplyResult(result)
			})
			if applyErr != nil && applyErr != scoring.ErrAlreadyApplied {
				return applyErr
			}

			s.publish(bus.TopicGroupStandingsUpdate, GroupStandingsPayload{
				GroupID:   j.group.GroupID,
				Standings: j.group.Standings(),
			})
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// advance selects the top finalistsPerGroup from each completed group,
// running a tiebreaker bracket whenever the advancement boundary is
// ambiguous ("if the group's top entries tie, run a tiebreaker").
func (s *Scheduler) advance(ctx context.Context, groups []*Group, byName map[string]*agent.Handle, rng *rand.Rand) ([]*agent.Handle, []match.Result, error) {
	var finalists []*agent.Handle
	var played []match.Result

	for _, g := range groups {
		ranked := g.Ranked()
		tied := scoring.TiedGroup(ranked)

		if len(tied) > 1 {
			resolvedNames, bracketResults, err := NewBracket(s.cfg, s.executor, byName).Resolve(ctx, seedOrder(tied), rng)
			if err != nil {
				return nil, nil, err
			}
			played = append(played, bracketResults...)

			reordered := make([]scoring.Standing, 0, len(ranked))
			tiedSet := make(map[string]bool, len(tied))
			for _, t := range tied {
				tiedSet[t.BotName] = true
			}
			byName2 := make(map[string]scoring.Standing, len(ranked))
			for _, r := range ranked {
				byName2[r.BotName] = r
			}
			for _, name := range resolvedNames {
				reordered = append(reordered, byName2[name])
			}
			for _, r := range ranked {
				if !tiedSet[r.BotName] {
					reordered = append(reordered, r)
				}
			}
			ranked = reordered
		}

		n := s.cfg.FinalistsPerGroup
		if n > len(ranked) {
			n = len(ranked)
		}
		for _, r := range ranked[:n] {
			finalists = append(finalists, byName[r.BotName])
		}
	}

	return finalists, played, nil
}

func (s *Scheduler) publish(topic bus.Topic, payload interface{}) {
	if s.bus != nil {
		s.bus.Publish(topic, payload)
	}
}
