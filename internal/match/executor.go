package match

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/arcane-tourneys/botarena/internal/bus"
	"github.com/arcane-tourneys/botarena/internal/games"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrCancelled is returned when the match context is cancelled
// mid-match. No MatchResult is emitted for a cancelled match.
var ErrCancelled = errors.New("match: cancelled")

// RoundStartedPayload is published on TopicRoundStarted at the top of
// every round, before either agent is invoked.
type RoundStartedPayload struct {
	MatchID  string
	GameType agent.GameType
	Round    int
}

// Executor runs one match of one game to a final outcome under the
// configured per-move timeout and memory ceiling. It never returns an
// error for agent misbehaviour — every agent fault is reflected in the
// returned Result's Outcome/Errors — and only returns an error for
// internal invariant violations or cancellation.
type Executor struct {
	cfg      Config
	registry *games.Registry
	bus      *bus.Bus
	logger   *zap.SugaredLogger
}

func NewExecutor(cfg Config, registry *games.Registry, eventBus *bus.Bus, logger *zap.SugaredLogger) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("match: registry must not be nil")
	}
	return &Executor{cfg: cfg, registry: registry, bus: eventBus, logger: logger}, nil
}

// Run drives one match between bot1 and bot2 of game type gt to
// completion. rng supplies all the match's randomness (role
// assignment, per-round inputs) so that a fixed seed yields a fully
// deterministic run, as required by the maxParallelMatches=1 boundary
// behaviour.
func (e *Executor) Run(ctx context.Context, bot1, bot2 *agent.Handle, gt agent.GameType, rng *rand.Rand) (Result, error) {
	rules, ok := e.registry.Get(gt)
	if !ok {
		return Result{}, fmt.Errorf("match: no rules registered for game type %q", gt)
	}
	totalRounds, err := e.cfg.TotalRoundsFor(gt)
	if err != nil {
		return Result{}, err
	}
	if bot1 == nil || bot2 == nil {
		return Result{}, fmt.Errorf("match: both bot handles are required")
	}
	if bot1.TeamName == bot2.TeamName {
		return Result{}, fmt.Errorf("match: a bot cannot play itself (%s)", bot1.TeamName)
	}

	matchID := uuid.NewString()
	startedAt := time.Now()

	matchExtra := rules.SetupMatch(rng)
	state1 := agent.GameState{GameType: gt, TotalRounds: totalRounds}
	state2 := agent.GameState{GameType: gt, TotalRounds: totalRounds}

	var pendingFault1, pendingFault2 Fault
	var roundLog []RoundLogEntry
	var errs []string
	var bot1Fault, bot2Fault Fault

	for round := 1; round <= totalRounds; round++ {
		if err := ctx.Err(); err != nil {
			return Result{}, ErrCancelled
		}

		roundExtra := rules.PrepareRound(round, totalRounds, matchExtra, rng)
		state1.RoundNumber, state2.RoundNumber = round, round
		state1.Extra, state2.Extra = roundExtra, roundExtra

		if e.bus != nil {
			e.bus.Publish(bus.TopicRoundStarted, RoundStartedPayload{MatchID: matchID, GameType: gt, Round: round})
		}

		var move1, move2 agent.Move
		bot1Fault, bot2Fault = pendingFault1, pendingFault2
		pendingFault1, pendingFault2 = Fault{}, Fault{}

		if !bot1Fault.IsFault() && !bot2Fault.IsFault() {
			// Both agents are invoked concurrently, each under its own deadline.
			var a1 moveAttempt
			view1, view2 := state1.Clone(), state2.Clone()
			done1 := make(chan struct{})
			go func() {
				defer close(done1)
				a1 = e.invoke(ctx, bot1, gt, view1)
			}()
			a2 := e.invoke(ctx, bot2, gt, view2)
			<-done1

			bot1.AddMemory(a1.memDelta)
			bot2.AddMemory(a2.memDelta)
			if bot1.ExceedsLimit() {
				pendingFault1 = Fault{Kind: FaultMemoryExceeded, Detail: "cumulative memory exceeded limit"}
			}
			if bot2.ExceedsLimit() {
				pendingFault2 = Fault{Kind: FaultMemoryExceeded, Detail: "cumulative memory exceeded limit"}
			}

			bot1Fault, move1 = a1.fault, a1.move
			bot2Fault, move2 = a2.fault, a2.move

			if !bot1Fault.IsFault() {
				if verr := rules.Validate(move1, roundExtra, true); verr != nil {
					bot1Fault = Fault{Kind: FaultInvalidOutput, Detail: verr.Error()}
				}
			}
			if !bot2Fault.IsFault() {
				if verr := rules.Validate(move2, roundExtra, false); verr != nil {
					bot2Fault = Fault{Kind: FaultInvalidOutput, Detail: verr.Error()}
				}
			}
		}

		entry := RoundLogEntry{Round: round}

		if bot1Fault.IsFault() || bot2Fault.IsFault() {
			entry.Bot1Fault, entry.Bot2Fault = bot1Fault.Kind, bot2Fault.Kind
			if bot1Fault.IsFault() {
				errs = append(errs, fmt.Sprintf("%s round %d: %s: %s", bot1.TeamName, round, bot1Fault.Kind, bot1Fault.Detail))
			}
			if bot2Fault.IsFault() {
				errs = append(errs, fmt.Sprintf("%s round %d: %s: %s", bot2.TeamName, round, bot2Fault.Kind, bot2Fault.Detail))
			}
			roundLog = append(roundLog, entry)
			break
		}

		d1, d2, r1, r2 := rules.Score(move1, move2, roundExtra)
		entry.Bot1Move, entry.Bot2Move = &move1, &move2
		entry.Bot1Delta, entry.Bot2Delta = d1, d2
		roundLog = append(roundLog, entry)

		state1.CurrentScoreSelf += d1
		state1.CurrentScoreOpp += d2
		state2.CurrentScoreSelf += d2
		state2.CurrentScoreOpp += d1

		state1.RoundHistory = append(state1.RoundHistory, agent.RoundEntry{Round: round, MyMove: move1, OpponentMove: move2, Result: r1})
		state2.RoundHistory = append(state2.RoundHistory, agent.RoundEntry{Round: round, MyMove: move2, OpponentMove: move1, Result: r2})
	}

	outcome, winner := classify(bot1Fault.IsFault(), bot2Fault.IsFault(), bot1.TeamName, bot2.TeamName, state1.CurrentScoreSelf, state2.CurrentScoreSelf)

	result := Result{
		MatchID:    matchID,
		GameType:   gt,
		Bot1Name:   bot1.TeamName,
		Bot2Name:   bot2.TeamName,
		Outcome:    outcome,
		WinnerName: winner,
		Bot1Score:  state1.CurrentScoreSelf,
		Bot2Score:  state2.CurrentScoreSelf,
		StartedAt:  startedAt,
		EndedAt:    time.Now(),
		RoundLog:   roundLog,
		Errors:     errs,
	}

	if e.bus != nil {
		e.bus.Publish(bus.TopicMatchCompleted, result)
	}

	return result, nil
}

// classify implements the per-round outcome rule.
func classify(fault1, fault2 bool, name1, name2 string, score1, score2 int) (Outcome, string) {
	switch {
	case fault1 && fault2:
		return BothError, ""
	case fault1:
		return Bot1Error, name2
	case fault2:
		return Bot2Error, name1
	case score1 > score2:
		return Bot1Wins, name1
	case score2 > score1:
		return Bot2Wins, name2
	default:
		return Draw, ""
	}
}

type moveAttempt struct {
	move     agent.Move
	fault    Fault
	memDelta int64
}

// invoke runs one agent operation in isolation under the configured
// per-move deadline. An agent that does not return within the deadline
// is abandoned: its goroutine is left to finish on its own time (this
// is the best-effort, non-sandboxed timeout; a production deployment
// would replace it with a true process-kill once agents run
// out-of-process).
func (e *Executor) invoke(ctx context.Context, h *agent.Handle, gt agent.GameType, state agent.GameState) moveAttempt {
	var sampler memSampler
	before := sampler.baseline()

	moveCtx, cancel := context.WithTimeout(ctx, e.cfg.MoveTimeout)
	defer cancel()

	type outcome struct {
		mv  agent.Move
		err error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		mv, err := agent.Dispatch(moveCtx, h.Wrapped, gt, state)
		ch <- outcome{mv: mv, err: err}
	}()

	select {
	case o := <-ch:
		after := sampler.sample()
		memDelta := delta(before, after)
		if o.err != nil {
			return moveAttempt{fault: Fault{Kind: FaultThrew, Detail: o.err.Error()}, memDelta: memDelta}
		}
		return moveAttempt{move: o.mv, memDelta: memDelta}
	case <-moveCtx.Done():
		after := sampler.sample()
		memDelta := delta(before, after)
		return moveAttempt{
			fault:    Fault{Kind: FaultTimedOut, Detail: fmt.Sprintf("no move within %s", e.cfg.MoveTimeout)},
			memDelta: memDelta,
		}
	}
}
