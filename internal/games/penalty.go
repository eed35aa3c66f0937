package games

import (
	"fmt"
	"math/rand"

	"github.com/arcane-tourneys/botarena/internal/agent"
)

var penaltyDirections = map[string]bool{"Left": true, "Center": true, "Right": true}

type penalty struct{}

func NewPenalty() Rules { return penalty{} }

func (penalty) GameType() agent.GameType { return agent.Penalty }

// SetupMatch randomly picks which side shoots for the entire match.
func (penalty) SetupMatch(rng *rand.Rand) map[string]interface{} {
	return map[string]interface{}{
		"shooterIsBot1": rng.Intn(2) == 0,
	}
}

func (penalty) PrepareRound(round, totalRounds int, matchExtra map[string]interface{}, rng *rand.Rand) map[string]interface{} {
	extra := make(map[string]interface{}, len(matchExtra)+1)
	for k, v := range matchExtra {
		extra[k] = v
	}
	shooterIsBot1, _ := matchExtra["shooterIsBot1"].(bool)
	if shooterIsBot1 {
		extra["role"] = map[string]string{"bot1": "shooter", "bot2": "goalkeeper"}
	} else {
		extra["role"] = map[string]string{"bot1": "goalkeeper", "bot2": "shooter"}
	}
	return extra
}

func (penalty) Validate(m agent.Move, roundExtra map[string]interface{}, isBot1 bool) error {
	if !penaltyDirections[m.String] {
		return fmt.Errorf("invalid Penalty direction %q: must be one of Left, Center, Right", m.String)
	}
	return nil
}

func (penalty) Score(m1, m2 agent.Move, roundExtra map[string]interface{}) (int, int, agent.RoundResult, agent.RoundResult) {
	shooterIsBot1, _ := roundExtra["shooterIsBot1"].(bool)

	var shooterMove, keeperMove string
	if shooterIsBot1 {
		shooterMove, keeperMove = m1.String, m2.String
	} else {
		shooterMove, keeperMove = m2.String, m1.String
	}

	saved := shooterMove == keeperMove

	var shooterDelta, keeperDelta int
	var shooterResult, keeperResult agent.RoundResult
	if saved {
		keeperDelta = 2
		shooterResult, keeperResult = agent.Loss, agent.Win
	} else {
		shooterDelta = 1
		shooterResult, keeperResult = agent.Win, agent.Loss
	}

	if shooterIsBot1 {
		return shooterDelta, keeperDelta, shooterResult, keeperResult
	}
	return keeperDelta, shooterDelta, keeperResult, shooterResult
}
