package games

import (
	"fmt"
	"math/rand"

	"github.com/arcane-tourneys/botarena/internal/agent"
)

// beats[a][b] is true when move a defeats move b in classic RPSLS.
var beats = map[string]map[string]bool{
	"Rock":     {"Scissors": true, "Lizard": true},
	"Paper":    {"Rock": true, "Spock": true},
	"Scissors": {"Paper": true, "Lizard": true},
	"Lizard":   {"Spock": true, "Paper": true},
	"Spock":    {"Scissors": true, "Rock": true},
}

var rpslsMoves = map[string]bool{
	"Rock": true, "Paper": true, "Scissors": true, "Lizard": true, "Spock": true,
}

type rpsls struct{}

func NewRPSLS() Rules { return rpsls{} }

func (rpsls) GameType() agent.GameType { return agent.RPSLS }

func (rpsls) SetupMatch(rng *rand.Rand) map[string]interface{} {
	return map[string]interface{}{}
}

func (rpsls) PrepareRound(round, totalRounds int, matchExtra map[string]interface{}, rng *rand.Rand) map[string]interface{} {
	return map[string]interface{}{}
}

func (rpsls) Validate(m agent.Move, roundExtra map[string]interface{}, isBot1 bool) error {
	if !rpslsMoves[m.String] {
		return fmt.Errorf("invalid RPSLS move %q: must be one of Rock, Paper, Scissors, Lizard, Spock", m.String)
	}
	return nil
}

func (rpsls) Score(m1, m2 agent.Move, roundExtra map[string]interface{}) (int, int, agent.RoundResult, agent.RoundResult) {
	if m1.String == m2.String {
		return 0, 0, agent.Draw, agent.Draw
	}
	if beats[m1.String][m2.String] {
		return 1, 0, agent.Win, agent.Loss
	}
	return 0, 1, agent.Loss, agent.Win
}
