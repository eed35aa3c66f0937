package schedule

import (
	"fmt"

	"github.com/arcane-tourneys/botarena/internal/agent"
)

// Config is the subset of the configuration surface the
// group scheduler needs.
type Config struct {
	GroupCount             int
	FinalistsPerGroup      int
	MaxParallelMatches     int
	TiebreakerGameType     agent.GameType
	MaxTiebreakerRematches int
}

func DefaultConfig() Config {
	return Config{
		GroupCount:             10,
		FinalistsPerGroup:      1,
		MaxParallelMatches:     4,
		TiebreakerGameType:     agent.Blotto,
		MaxTiebreakerRematches: 3,
	}
}

func (c Config) Validate() error {
	if c.GroupCount < 1 {
		return fmt.Errorf("schedule: groupCount must be >= 1")
	}
	if c.FinalistsPerGroup < 1 {
		return fmt.Errorf("schedule: finalistsPerGroup must be >= 1")
	}
	if c.MaxParallelMatches < 1 || c.MaxParallelMatches > 64 {
		return fmt.Errorf("schedule: maxParallelMatches must be in [1,64]")
	}
	if c.MaxTiebreakerRematches < 0 {
		return fmt.Errorf("schedule: maxTiebreakerRematches must be >= 0")
	}
	if !c.TiebreakerGameType.Valid() {
		return fmt.Errorf("schedule: invalid tiebreakerGameType %q", c.TiebreakerGameType)
	}
	return nil
}

// ErrSchedulingImpossible surfaces when the agent set cannot be split
// into groups of at least 2.
var ErrSchedulingImpossible = fmt.Errorf("schedule: configuration yields a group of fewer than 2 bots")
