package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameType_Valid(t *testing.T) {
	assert.True(t, RPSLS.Valid())
	assert.True(t, Blotto.Valid())
	assert.True(t, Penalty.Valid())
	assert.True(t, Security.Valid())
	assert.False(t, GameType("Chess").Valid())
}

func TestGameState_CloneIsIndependentOfOriginal(t *testing.T) {
	original := GameState{
		RoundHistory: []RoundEntry{{Round: 1, MyMove: MoveString("Rock")}},
		Extra:        map[string]interface{}{"k": "v"},
	}
	clone := original.Clone()
	clone.RoundHistory[0].Round = 99
	clone.Extra["k"] = "mutated"

	assert.Equal(t, 1, original.RoundHistory[0].Round)
	assert.Equal(t, "v", original.Extra["k"])
}

func TestMoveConstructors(t *testing.T) {
	assert.Equal(t, Move{String: "Rock"}, MoveString("Rock"))
	ints := []int{1, 2, 3}
	mv := MoveInts(ints)
	ints[0] = 99
	assert.Equal(t, []int{1, 2, 3}, mv.Ints, "MoveInts must copy, not alias, the slice")
}

type fakeAgent struct{ name string }

func (f fakeAgent) TeamName() string { return f.name }
func (f fakeAgent) MakeMoveRPSLS(ctx context.Context, s GameState) (Move, error) {
	return MoveString("Rock"), nil
}
func (f fakeAgent) AllocateTroops(ctx context.Context, s GameState) (Move, error) {
	return MoveInts([]int{1}), nil
}
func (f fakeAgent) PenaltyDecision(ctx context.Context, s GameState) (Move, error) {
	return MoveString("Left"), nil
}
func (f fakeAgent) SecurityMove(ctx context.Context, s GameState) (Move, error) {
	return MoveInts([]int{0}), nil
}

func TestDispatch_RoutesToCorrectOperation(t *testing.T) {
	a := fakeAgent{name: "bot"}
	mv, err := Dispatch(context.Background(), a, RPSLS, GameState{})
	require.NoError(t, err)
	assert.Equal(t, "Rock", mv.String)

	mv, err = Dispatch(context.Background(), a, Blotto, GameState{})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, mv.Ints)
}

func TestDispatch_UnknownGameTypeErrors(t *testing.T) {
	a := fakeAgent{name: "bot"}
	_, err := Dispatch(context.Background(), a, GameType("Chess"), GameState{})
	require.Error(t, err)
}

func TestHandle_MemoryAccumulatesAndClampsNegativeDeltas(t *testing.T) {
	h := NewHandle("bot", fakeAgent{name: "bot"}, 100)
	h.AddMemory(40)
	h.AddMemory(-1000) // negative delta must not reduce usage
	assert.Equal(t, int64(40), h.MemoryUsed())
	assert.False(t, h.ExceedsLimit())

	h.AddMemory(70)
	assert.True(t, h.ExceedsLimit())

	h.ResetMemory()
	assert.Equal(t, int64(0), h.MemoryUsed())
	assert.False(t, h.ExceedsLimit())
}

func TestHandle_ZeroLimitNeverExceeds(t *testing.T) {
	h := NewHandle("bot", fakeAgent{name: "bot"}, 0)
	h.AddMemory(1 << 30)
	assert.False(t, h.ExceedsLimit())
}

type fakeExternalStrategy struct{}

func (fakeExternalStrategy) RPSLS(ctx context.Context, s ExternalState) (any, error) {
	return "Rock", nil
}
func (fakeExternalStrategy) Blotto(ctx context.Context, s ExternalState) (any, error) {
	return "Rock", nil
}
func (fakeExternalStrategy) Penalty(ctx context.Context, s ExternalState) (any, error) {
	return "Rock", nil
}
func (fakeExternalStrategy) Security(ctx context.Context, s ExternalState) (any, error) {
	return "Rock", nil
}

type fakeAdapter struct{}

func (fakeAdapter) Kind() string                    { return "fake" }
func (fakeAdapter) ToExternal(s GameState) ExternalState { return s }
func (fakeAdapter) FromExternal(v any) (Move, error) {
	return MoveString(v.(string)), nil
}

func TestExternalAgent_BridgesThroughAdapter(t *testing.T) {
	a := NewExternalAgent("bot", fakeExternalStrategy{}, fakeAdapter{})
	mv, err := a.MakeMoveRPSLS(context.Background(), GameState{})
	require.NoError(t, err)
	assert.Equal(t, "Rock", mv.String)
}

func TestAdapterRegistry_GetUnknownKindErrors(t *testing.T) {
	r := NewAdapterRegistry()
	r.Register(fakeAdapter{})

	got, err := r.Get("fake")
	require.NoError(t, err)
	assert.Equal(t, "fake", got.Kind())

	_, err = r.Get("missing")
	require.Error(t, err)
}
