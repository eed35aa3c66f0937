// Package agent defines the abstract contract the match executor drives
// against untrusted strategy implementations.
package agent

import (
	"context"
	"fmt"
)

// GameType is the closed enum of games the engine can run.
type GameType string

const (
	RPSLS    GameType = "RPSLS"
	Blotto   GameType = "Blotto"
	Penalty  GameType = "Penalty"
	Security GameType = "Security"
)

func (g GameType) Valid() bool {
	switch g {
	case RPSLS, Blotto, Penalty, Security:
		return true
	}
	return false
}

// RoundResult classifies one round from one side's point of view.
type RoundResult string

const (
	Win  RoundResult = "Win"
	Loss RoundResult = "Loss"
	Draw RoundResult = "Draw"
)

// RoundEntry is one row of a GameState's round history.
type RoundEntry struct {
	Round          int         `json:"round"`
	MyMove         Move        `json:"myMove"`
	OpponentMove   Move        `json:"opponentMove"`
	Result         RoundResult `json:"result"`
}

// GameState is the read-only snapshot an agent receives each turn.
type GameState struct {
	GameType         GameType               `json:"gameType"`
	RoundNumber      int                    `json:"roundNumber"`
	TotalRounds      int                    `json:"totalRounds"`
	CurrentScoreSelf int                    `json:"currentScoreSelf"`
	CurrentScoreOpp  int                    `json:"currentScoreOpp"`
	RoundHistory     []RoundEntry           `json:"roundHistory"`
	Extra            map[string]interface{} `json:"extra"`
}

// Clone returns a deep-enough copy safe to hand to an agent without
// letting it observe or mutate the executor's live state.
func (gs GameState) Clone() GameState {
	hist := make([]RoundEntry, len(gs.RoundHistory))
	copy(hist, gs.RoundHistory)

	extra := make(map[string]interface{}, len(gs.Extra))
	for k, v := range gs.Extra {
		extra[k] = v
	}

	return GameState{
		GameType:         gs.GameType,
		RoundNumber:      gs.RoundNumber,
		TotalRounds:      gs.TotalRounds,
		CurrentScoreSelf: gs.CurrentScoreSelf,
		CurrentScoreOpp:  gs.CurrentScoreOpp,
		RoundHistory:     hist,
		Extra:            extra,
	}
}

// Move is an opaque, game-specific payload. RPSLS/Penalty/Security use a
// string move name; Blotto uses an integer allocation vector.
type Move struct {
	String string `json:"string,omitempty"`
	Ints   []int  `json:"ints,omitempty"`
}

func MoveString(s string) Move { return Move{String: s} }
func MoveInts(v []int) Move    { return Move{Ints: append([]int(nil), v...)} }

// Agent is the capability set every tournament participant exposes. A
// single agent handles all four games; the executor never calls an
// agent reentrantly but may call it from two concurrent matches unless
// the admission gate (see schedule.AdmissionGate) forbids it.
type Agent interface {
	TeamName() string
	MakeMoveRPSLS(ctx context.Context, state GameState) (Move, error)
	AllocateTroops(ctx context.Context, state GameState) (Move, error)
	PenaltyDecision(ctx context.Context, state GameState) (Move, error)
	SecurityMove(ctx context.Context, state GameState) (Move, error)
}

// Dispatch invokes the operation for gt. Centralising the switch here
// keeps new GameType wiring to one place instead of scattering it
// across the executor and every adapter.
func Dispatch(ctx context.Context, a Agent, gt GameType, state GameState) (Move, error) {
	switch gt {
	case RPSLS:
		return a.MakeMoveRPSLS(ctx, state)
	case Blotto:
		return a.AllocateTroops(ctx, state)
	case Penalty:
		return a.PenaltyDecision(ctx, state)
	case Security:
		return a.SecurityMove(ctx, state)
	default:
		return Move{}, fmt.Errorf("agent: unknown game type %q", gt)
	}
}

// Handle is the immutable-after-creation record the engine schedules.
// MemoryUsed is the sole mutable field, owned by the match executor's
// per-agent memory accumulation (see AddMemory, called by match.Executor).
type Handle struct {
	TeamName     string
	Wrapped      Agent
	MemoryLimit  int64 // bytes
	memoryUsed   int64
}

func NewHandle(teamName string, wrapped Agent, memoryLimitBytes int64) *Handle {
	return &Handle{TeamName: teamName, Wrapped: wrapped, MemoryLimit: memoryLimitBytes}
}

func (h *Handle) MemoryUsed() int64 { return h.memoryUsed }

func (h *Handle) AddMemory(delta int64) int64 {
	if delta > 0 {
		h.memoryUsed += delta
	}
	return h.memoryUsed
}

func (h *Handle) ResetMemory() { h.memoryUsed = 0 }

func (h *Handle) ExceedsLimit() bool {
	return h.MemoryLimit > 0 && h.memoryUsed > h.MemoryLimit
}
