package games

import (
	"fmt"
	"math/rand"

	"github.com/arcane-tourneys/botarena/internal/agent"
)

type security struct {
	targets         int
	availableTroops int
}

func NewSecurity(targets, availableTroops int) Rules {
	return security{targets: targets, availableTroops: availableTroops}
}

func (security) GameType() agent.GameType { return agent.Security }

// SetupMatch randomly assigns attacker/defender for the whole match.
func (security) SetupMatch(rng *rand.Rand) map[string]interface{} {
	return map[string]interface{}{
		"attackerIsBot1": rng.Intn(2) == 0,
	}
}

func (s security) PrepareRound(round, totalRounds int, matchExtra map[string]interface{}, rng *rand.Rand) map[string]interface{} {
	extra := make(map[string]interface{}, len(matchExtra)+2)
	for k, v := range matchExtra {
		extra[k] = v
	}

	values := make([]int, s.targets)
	for i := range values {
		values[i] = 10 + rng.Intn(91) // published target values, 10..100
	}
	extra["targetValues"] = values
	extra["availableTroops"] = s.availableTroops
	return extra
}

func (s security) Validate(m agent.Move, roundExtra map[string]interface{}, isBot1 bool) error {
	attackerIsBot1, _ := roundExtra["attackerIsBot1"].(bool)
	isAttacker := attackerIsBot1 == isBot1

	if isAttacker {
		if len(m.Ints) != 1 {
			return fmt.Errorf("invalid Security attack move: expected a single target index")
		}
		idx := m.Ints[0]
		if idx < 0 || idx >= s.targets {
			return fmt.Errorf("invalid Security attack move: target index %d out of range [0,%d)", idx, s.targets)
		}
		return nil
	}

	if len(m.Ints) != s.targets {
		return fmt.Errorf("invalid Security defense distribution: expected %d entries, got %d", s.targets, len(m.Ints))
	}
	sum := 0
	for _, v := range m.Ints {
		if v < 0 {
			return fmt.Errorf("invalid Security defense distribution: negative allocation %d", v)
		}
		sum += v
	}
	if sum > s.availableTroops {
		return fmt.Errorf("invalid Security defense distribution: allocated %d exceeds available %d", sum, s.availableTroops)
	}
	return nil
}

func (s security) Score(m1, m2 agent.Move, roundExtra map[string]interface{}) (int, int, agent.RoundResult, agent.RoundResult) {
	attackerIsBot1, _ := roundExtra["attackerIsBot1"].(bool)
	values, _ := roundExtra["targetValues"].([]int)

	var attackMove, defenseMove agent.Move
	if attackerIsBot1 {
		attackMove, defenseMove = m1, m2
	} else {
		attackMove, defenseMove = m2, m1
	}

	idx := 0
	if len(attackMove.Ints) == 1 {
		idx = attackMove.Ints[0]
	}

	var defense int
	if idx >= 0 && idx < len(defenseMove.Ints) {
		defense = defenseMove.Ints[idx]
	}
	var value int
	if idx >= 0 && idx < len(values) {
		value = values[idx]
	}

	attackerPayoff := value - defense
	if attackerPayoff < 0 {
		attackerPayoff = 0
	}
	defenderPayoff := defense
	if defenderPayoff > value {
		defenderPayoff = value
	}

	var attackerResult, defenderResult agent.RoundResult
	switch {
	case attackerPayoff > defenderPayoff:
		attackerResult, defenderResult = agent.Win, agent.Loss
	case defenderPayoff > attackerPayoff:
		attackerResult, defenderResult = agent.Loss, agent.Win
	default:
		attackerResult, defenderResult = agent.Draw, agent.Draw
	}

	if attackerIsBot1 {
		return attackerPayoff, defenderPayoff, attackerResult, defenderResult
	}
	return defenderPayoff, attackerPayoff, defenderResult, attackerResult
}
