package match

import (
	"testing"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfig_ValidateRejectsNonPositiveMoveTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MoveTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsNonPositiveRounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TotalRoundsPenalty = 0
	assert.Error(t, cfg.Validate())
}

func TestConfig_TotalRoundsForEachGameType(t *testing.T) {
	cfg := DefaultConfig()
	got, err := cfg.TotalRoundsFor(agent.RPSLS)
	require.NoError(t, err)
	assert.Equal(t, cfg.TotalRoundsRPSLS, got)

	_, err = cfg.TotalRoundsFor(agent.GameType("Chess"))
	assert.Error(t, err)
}

func TestConfig_MemoryLimitBytesConvertsFromMB(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MemoryLimitMB = 2
	assert.Equal(t, int64(2*1024*1024), cfg.MemoryLimitBytes())
}
