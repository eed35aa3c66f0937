package games

import (
	"fmt"
	"math/rand"

	"github.com/arcane-tourneys/botarena/internal/agent"
)

type blotto struct {
	troops       int
	battlefields int
}

func NewBlotto(troops, battlefields int) Rules {
	return blotto{troops: troops, battlefields: battlefields}
}

func (blotto) GameType() agent.GameType { return agent.Blotto }

func (b blotto) SetupMatch(rng *rand.Rand) map[string]interface{} {
	return map[string]interface{}{
		"troops":       b.troops,
		"battlefields": b.battlefields,
	}
}

func (b blotto) PrepareRound(round, totalRounds int, matchExtra map[string]interface{}, rng *rand.Rand) map[string]interface{} {
	// Identical round each time — the same battlefield
	// configuration is reused, Blotto has a single round by default.
	extra := make(map[string]interface{}, len(matchExtra))
	for k, v := range matchExtra {
		extra[k] = v
	}
	return extra
}

func (b blotto) Validate(m agent.Move, roundExtra map[string]interface{}, isBot1 bool) error {
	if len(m.Ints) != b.battlefields {
		return fmt.Errorf("invalid Blotto allocation: expected %d battlefields, got %d", b.battlefields, len(m.Ints))
	}
	sum := 0
	for _, v := range m.Ints {
		if v < 0 {
			return fmt.Errorf("invalid Blotto allocation: negative value %d", v)
		}
		sum += v
	}
	if sum != b.troops {
		return fmt.Errorf("invalid Blotto allocation: allocated %d troops, expected exactly %d", sum, b.troops)
	}
	return nil
}

func (b blotto) Score(m1, m2 agent.Move, roundExtra map[string]interface{}) (int, int, agent.RoundResult, agent.RoundResult) {
	fields1, fields2 := 0, 0
	for i := 0; i < b.battlefields && i < len(m1.Ints) && i < len(m2.Ints); i++ {
		switch {
		case m1.Ints[i] > m2.Ints[i]:
			fields1++
		case m2.Ints[i] > m1.Ints[i]:
			fields2++
		}
	}

	switch {
	case fields1 > fields2:
		return fields1, fields2, agent.Win, agent.Loss
	case fields2 > fields1:
		return fields1, fields2, agent.Loss, agent.Win
	default:
		return fields1, fields2, agent.Draw, agent.Draw
	}
}
