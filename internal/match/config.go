package match

import (
	"fmt"
	"time"

	"github.com/arcane-tourneys/botarena/internal/agent"
)

// Config is the subset of the configuration surface the
// match executor needs to run one match.
type Config struct {
	MoveTimeout time.Duration

	TotalRoundsRPSLS    int
	TotalRoundsBlotto   int
	TotalRoundsPenalty  int
	TotalRoundsSecurity int

	BlottoTroops       int
	BlottoBattlefields int

	SecurityTargets        int
	SecurityAvailableTroops int

	MemoryLimitMB int
}

// DefaultConfig mirrors the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		MoveTimeout:             time.Second,
		TotalRoundsRPSLS:        50,
		TotalRoundsBlotto:       1,
		TotalRoundsPenalty:      9,
		TotalRoundsSecurity:     5,
		BlottoTroops:            100,
		BlottoBattlefields:      5,
		SecurityTargets:         4,
		SecurityAvailableTroops: 100,
		MemoryLimitMB:           512,
	}
}

func (c Config) Validate() error {
	if c.MoveTimeout <= 0 {
		return fmt.Errorf("match: moveTimeout must be positive")
	}
	if c.TotalRoundsRPSLS <= 0 || c.TotalRoundsBlotto <= 0 || c.TotalRoundsPenalty <= 0 || c.TotalRoundsSecurity <= 0 {
		return fmt.Errorf("match: all totalRounds settings must be positive")
	}
	if c.BlottoTroops <= 0 || c.BlottoBattlefields <= 0 {
		return fmt.Errorf("match: blotto troops/battlefields must be positive")
	}
	if c.MemoryLimitMB <= 0 {
		return fmt.Errorf("match: memoryLimitMB must be positive")
	}
	return nil
}

func (c Config) TotalRoundsFor(gt agent.GameType) (int, error) {
	switch gt {
	case agent.RPSLS:
		return c.TotalRoundsRPSLS, nil
	case agent.Blotto:
		return c.TotalRoundsBlotto, nil
	case agent.Penalty:
		return c.TotalRoundsPenalty, nil
	case agent.Security:
		return c.TotalRoundsSecurity, nil
	default:
		return 0, fmt.Errorf("match: unknown game type %q", gt)
	}
}

func (c Config) MemoryLimitBytes() int64 {
	return int64(c.MemoryLimitMB) * 1024 * 1024
}
