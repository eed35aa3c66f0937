package match

import (
	"time"

	"github.com/arcane-tourneys/botarena/internal/agent"
)

// Outcome is the closed enum of final match dispositions.
type Outcome string

const (
	Bot1Wins  Outcome = "Bot1Wins"
	Bot2Wins  Outcome = "Bot2Wins"
	Draw      Outcome = "Draw"
	Bot1Error Outcome = "Bot1Error"
	Bot2Error Outcome = "Bot2Error"
	BothError Outcome = "BothError"
)

// FaultKind classifies why an agent's move was rejected for a round.
type FaultKind string

const (
	FaultNone           FaultKind = ""
	FaultTimedOut       FaultKind = "TimedOut"
	FaultThrew          FaultKind = "Threw"
	FaultInvalidOutput  FaultKind = "InvalidOutput"
	FaultMemoryExceeded FaultKind = "MemoryExceeded"
)

// Fault is the classification of one side's move attempt in a round.
type Fault struct {
	Kind   FaultKind
	Detail string
}

func (f Fault) IsFault() bool { return f.Kind != FaultNone }

// RoundLogEntry records one round of a completed match for both sides.
type RoundLogEntry struct {
	Round        int         `json:"round"`
	Bot1Move     *agent.Move `json:"bot1Move,omitempty"`
	Bot2Move     *agent.Move `json:"bot2Move,omitempty"`
	Bot1Fault    FaultKind   `json:"bot1Fault,omitempty"`
	Bot2Fault    FaultKind   `json:"bot2Fault,omitempty"`
	Bot1Delta    int         `json:"bot1Delta"`
	Bot2Delta    int         `json:"bot2Delta"`
}

// Result is the immutable record of one completed match.
type Result struct {
	MatchID    string
	GameType   agent.GameType
	Bot1Name   string
	Bot2Name   string
	Outcome    Outcome
	WinnerName string
	Bot1Score  int
	Bot2Score  int
	StartedAt  time.Time
	EndedAt    time.Time
	RoundLog   []RoundLogEntry
	Errors     []string
}
