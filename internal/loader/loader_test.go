package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgent struct{ name string }

func (s *stubAgent) TeamName() string { return s.name }
func (s *stubAgent) MakeMoveRPSLS(ctx context.Context, st agent.GameState) (agent.Move, error) {
	return agent.MoveString("Rock"), nil
}
func (s *stubAgent) AllocateTroops(ctx context.Context, st agent.GameState) (agent.Move, error) {
	return agent.MoveInts(nil), nil
}
func (s *stubAgent) PenaltyDecision(ctx context.Context, st agent.GameState) (agent.Move, error) {
	return agent.MoveString("Left"), nil
}
func (s *stubAgent) SecurityMove(ctx context.Context, st agent.GameState) (agent.Move, error) {
	return agent.MoveInts(nil), nil
}

type stubProvider struct {
	failFor map[string]bool
}

func (p *stubProvider) Build(teamName string, files []SourceFile) (agent.Agent, error) {
	if p.failFor != nil && p.failFor[teamName] {
		return nil, errors.New("build failed")
	}
	return &stubAgent{name: teamName}, nil
}

func writeTeam(t *testing.T, root, folder string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, folder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestLoadBotsFromDirectory_LoadsEachValidTeamFolder(t *testing.T) {
	root := t.TempDir()
	writeTeam(t, root, "alpha", map[string]string{"main.go": "package main"})
	writeTeam(t, root, "beta_v2", map[string]string{"main.go": "package main"})

	l := New(&stubProvider{}, Config{})
	handles, failures, err := l.LoadBotsFromDirectory(root)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, handles, 2)

	names := map[string]bool{}
	for _, h := range handles {
		names[h.TeamName] = true
	}
	assert.True(t, names["alpha"])
	assert.True(t, names["beta"])
}

func TestLoadBotsFromDirectory_SkipsEmptySubmissionAsFailure(t *testing.T) {
	root := t.TempDir()
	writeTeam(t, root, "empty", map[string]string{})

	l := New(&stubProvider{}, Config{})
	handles, failures, err := l.LoadBotsFromDirectory(root)
	require.NoError(t, err)
	assert.Empty(t, handles)
	require.Len(t, failures, 1)
	assert.Equal(t, "empty", failures[0].TeamName)
}

func TestLoadBotsFromDirectory_BuildErrorBecomesFailureNotAbort(t *testing.T) {
	root := t.TempDir()
	writeTeam(t, root, "good", map[string]string{"main.go": "package main"})
	writeTeam(t, root, "bad", map[string]string{"main.go": "package main"})

	l := New(&stubProvider{failFor: map[string]bool{"bad": true}}, Config{})
	handles, failures, err := l.LoadBotsFromDirectory(root)
	require.NoError(t, err)
	require.Len(t, handles, 1)
	assert.Equal(t, "good", handles[0].TeamName)
	require.Len(t, failures, 1)
	assert.Equal(t, "bad", failures[0].TeamName)
}

func TestLoadTeam_RejectsFileOverPerFileLimit(t *testing.T) {
	root := t.TempDir()
	writeTeam(t, root, "big", map[string]string{"main.go": "0123456789"})

	l := New(&stubProvider{}, Config{MaxFileBytes: 5, MaxTotalBytes: 100})
	_, err := l.LoadTeam("big", filepath.Join(root, "big"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds per-file limit")
}

func TestLoadTeam_RejectsAggregateOverTotalLimit(t *testing.T) {
	root := t.TempDir()
	writeTeam(t, root, "wide", map[string]string{"a.go": "0123456789", "b.go": "0123456789"})

	l := New(&stubProvider{}, Config{MaxFileBytes: 100, MaxTotalBytes: 15})
	_, err := l.LoadTeam("wide", filepath.Join(root, "wide"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds aggregate limit")
}

func TestLoadTeam_OversizeFileIsErrSubmissionTooLarge(t *testing.T) {
	root := t.TempDir()
	writeTeam(t, root, "big", map[string]string{"main.go": "0123456789"})

	l := New(&stubProvider{}, Config{MaxFileBytes: 5, MaxTotalBytes: 100})
	_, err := l.LoadTeam("big", filepath.Join(root, "big"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmissionTooLarge)
}

func TestVerify_OversizeFileIsErrSubmissionTooLarge(t *testing.T) {
	l := New(&stubProvider{}, Config{MaxFileBytes: 5, MaxTotalBytes: 100})
	err := l.Verify("big", []SourceFile{{FileName: "main.go", Code: []byte("0123456789")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmissionTooLarge)
}

func TestLoadTeam_BuildsHandleFromStagedDirectory(t *testing.T) {
	root := t.TempDir()
	writeTeam(t, root, "solo", map[string]string{"main.go": "package main"})

	l := New(&stubProvider{}, Config{})
	handle, err := l.LoadTeam("solo", filepath.Join(root, "solo"))
	require.NoError(t, err)
	assert.Equal(t, "solo", handle.TeamName)
}

func TestVerify_ReturnsErrorWithoutRegisteringAHandle(t *testing.T) {
	l := New(&stubProvider{failFor: map[string]bool{"bad": true}}, Config{})
	err := l.Verify("bad", []SourceFile{{FileName: "main.go", Code: []byte("package main")}})
	assert.Error(t, err)
}

func TestVerify_AcceptsWellFormedSubmission(t *testing.T) {
	l := New(&stubProvider{}, Config{})
	err := l.Verify("good", []SourceFile{{FileName: "main.go", Code: []byte("package main")}})
	assert.NoError(t, err)
}

func TestReloadAll_RebuildsFromKnownSource(t *testing.T) {
	root := t.TempDir()
	writeTeam(t, root, "alpha", map[string]string{"main.go": "package main"})

	l := New(&stubProvider{}, Config{})
	handles, _, err := l.LoadBotsFromDirectory(root)
	require.NoError(t, err)
	require.Len(t, handles, 1)

	rebuilt, failures := l.ReloadAll(handles)
	assert.Empty(t, failures)
	require.Len(t, rebuilt, 1)
	assert.Equal(t, "alpha", rebuilt[0].TeamName)
}

func TestReloadAll_UnknownHandleBecomesFailure(t *testing.T) {
	l := New(&stubProvider{}, Config{})
	orphan := agent.NewHandle("ghost", &stubAgent{name: "ghost"}, 0)

	rebuilt, failures := l.ReloadAll([]*agent.Handle{orphan})
	assert.Empty(t, rebuilt)
	require.Len(t, failures, 1)
	assert.Equal(t, "ghost", failures[0].TeamName)
}

func TestEventReloader_NeverReturnsErrorOnPartialFailure(t *testing.T) {
	l := New(&stubProvider{}, Config{})
	orphan := agent.NewHandle("ghost", &stubAgent{name: "ghost"}, 0)
	r := EventReloader{Loader: l}

	rebuilt, err := r.ReloadAll(context.Background(), []*agent.Handle{orphan})
	require.NoError(t, err)
	assert.Empty(t, rebuilt)
}

func TestValidTeamName(t *testing.T) {
	assert.True(t, ValidTeamName("Team_1-alpha"))
	assert.False(t, ValidTeamName(""))
	assert.False(t, ValidTeamName("team with spaces"))
	assert.False(t, ValidTeamName("team$"))
}
