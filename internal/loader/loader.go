// Package loader implements the agent-loader collaborator's directory
// contract. Compiling and sandboxing untrusted submissions
// is explicitly out of scope for the core; this package owns only the
// directory layout, size ceilings, and the seam (SourceProvider) a
// concrete compiler plugs into: team-scoped submission folders, and
// absorbing per-item failures rather than failing the whole call.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"go.uber.org/zap"
)

// ErrSubmissionTooLarge is returned (wrapped, check with errors.Is) when a
// submission exceeds the per-file or aggregate size ceiling. Distinguished
// from other load failures so the submission API can answer 413 rather
// than the generic 422 it gives every other rejection.
var ErrSubmissionTooLarge = errors.New("loader: submission exceeds size limit")

const (
	// DefaultTotalSubmissionBytes and DefaultPerFileBytes are the
	// documented submission ceilings.
	DefaultTotalSubmissionBytes = 500 * 1024
	DefaultPerFileBytes         = 50 * 1024
)

var teamFolderPattern = regexp.MustCompile(`^([A-Za-z0-9_-]+?)(?:_v(\d+))?$`)

// LoadFailure carries why one team's submission could not be turned
// into an AgentHandle. The core never fails the tournament because one
// agent failed to load; failures are returned alongside successes.
type LoadFailure struct {
	TeamName string
	Errors   []string
}

// SourceFile is one file within a team's submission folder.
type SourceFile struct {
	FileName string
	Code     []byte
}

// SourceProvider compiles a team's validated source files into a
// runnable agent. The concrete compiler (and any sandboxing) is a
// collaborator the core only sees through this seam, so loading can
// move to an out-of-process collaborator without the core's interface
// changing.
type SourceProvider interface {
	Build(teamName string, files []SourceFile) (agent.Agent, error)
}

// Config carries the loader's two size ceilings; zero values fall
// back to the documented defaults.
type Config struct {
	MaxTotalBytes int64
	MaxFileBytes  int64
	MemoryLimitMB int
}

func (c Config) withDefaults() Config {
	if c.MaxTotalBytes <= 0 {
		c.MaxTotalBytes = DefaultTotalSubmissionBytes
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = DefaultPerFileBytes
	}
	if c.MemoryLimitMB <= 0 {
		c.MemoryLimitMB = 512
	}
	return c
}

// Loader walks a submissions directory and builds agent handles via a
// pluggable SourceProvider. Scoped to one tournament's worth of
// handles — never a process-wide singleton.
type Loader struct {
	provider SourceProvider
	cfg      Config
	sources  map[*agent.Handle]handleSource
}

// handleSource records where a loaded agent's files came from, so
// ReloadAll can rebuild it from scratch.
type handleSource struct {
	teamName string
	dir      string
	files    []SourceFile
}

func New(provider SourceProvider, cfg Config) *Loader {
	return &Loader{provider: provider, cfg: cfg.withDefaults(), sources: make(map[*agent.Handle]handleSource)}
}

// LoadBotsFromDirectory implements loadBotsFromDirectory(path, config)
// each immediate subdirectory of path is one team's
// submission, named teamName or teamName_v<version>.
func (l *Loader) LoadBotsFromDirectory(path string) ([]*agent.Handle, []LoadFailure, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loader: read directory %s: %w", path, err)
	}

	var handles []*agent.Handle
	var failures []LoadFailure

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		match := teamFolderPattern.FindStringSubmatch(entry.Name())
		if match == nil {
			failures = append(failures, LoadFailure{TeamName: entry.Name(), Errors: []string{"folder name does not match teamName[_vN]"}})
			continue
		}
		teamName := match[1]
		teamDir := filepath.Join(path, entry.Name())

		files, errs := l.readSubmission(teamDir)
		if len(errs) > 0 {
			failures = append(failures, LoadFailure{TeamName: teamName, Errors: errs})
			continue
		}

		a, err := l.provider.Build(teamName, files)
		if err != nil {
			failures = append(failures, LoadFailure{TeamName: teamName, Errors: []string{err.Error()}})
			continue
		}

		handle := agent.NewHandle(teamName, a, int64(l.cfg.MemoryLimitMB)*1024*1024)
		l.sources[handle] = handleSource{teamName: teamName, dir: teamDir, files: files}
		handles = append(handles, handle)
	}

	return handles, failures, nil
}

// readSubmission reads and size-validates every source file directly
// under dir.
func (l *Loader) readSubmission(dir string) ([]SourceFile, []string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []string{fmt.Sprintf("read team directory: %v", err)}
	}

	var files []SourceFile
	var totalBytes int64
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, []string{fmt.Sprintf("stat %s: %v", entry.Name(), err)}
		}
		if seen[entry.Name()] {
			return nil, []string{fmt.Sprintf("duplicate file name %s", entry.Name())}
		}
		seen[entry.Name()] = true

		if info.Size() > l.cfg.MaxFileBytes {
			return nil, []string{fmt.Sprintf("%s exceeds per-file limit of %d bytes", entry.Name(), l.cfg.MaxFileBytes)}
		}
		totalBytes += info.Size()
		if totalBytes > l.cfg.MaxTotalBytes {
			return nil, []string{fmt.Sprintf("submission exceeds aggregate limit of %d bytes", l.cfg.MaxTotalBytes)}
		}

		code, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, []string{fmt.Sprintf("read %s: %v", entry.Name(), err)}
		}
		files = append(files, SourceFile{FileName: entry.Name(), Code: code})
	}

	if len(files) == 0 {
		return nil, []string{"submission contains no files"}
	}

	return files, nil
}

// checkSize reports an ErrSubmissionTooLarge-wrapped error if any file
// directly under dir exceeds the per-file ceiling or the directory's
// total exceeds the aggregate ceiling, without reading file contents.
func (l *Loader) checkSize(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read team directory: %w", err)
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		if info.Size() > l.cfg.MaxFileBytes {
			return fmt.Errorf("%w: %s exceeds per-file limit of %d bytes", ErrSubmissionTooLarge, entry.Name(), l.cfg.MaxFileBytes)
		}
		total += info.Size()
		if total > l.cfg.MaxTotalBytes {
			return fmt.Errorf("%w: submission exceeds aggregate limit of %d bytes", ErrSubmissionTooLarge, l.cfg.MaxTotalBytes)
		}
	}
	return nil
}

// LoadTeam builds a single agent handle from the files already staged
// under dir, the shape the submission API uses once it has written an
// upload to disk. Unlike LoadBotsFromDirectory it returns an error
// directly instead of a LoadFailure, since the caller is one HTTP
// request rather than a best-effort directory sweep.
func (l *Loader) LoadTeam(teamName, dir string) (*agent.Handle, error) {
	if err := l.checkSize(dir); err != nil {
		return nil, fmt.Errorf("loader: %s: %w", teamName, err)
	}

	files, errs := l.readSubmission(dir)
	if len(errs) > 0 {
		return nil, fmt.Errorf("loader: %s: %s", teamName, strings.Join(errs, "; "))
	}

	a, err := l.provider.Build(teamName, files)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: build: %w", teamName, err)
	}

	handle := agent.NewHandle(teamName, a, int64(l.cfg.MemoryLimitMB)*1024*1024)
	l.sources[handle] = handleSource{teamName: teamName, dir: dir, files: files}
	return handle, nil
}

// Verify validates and builds files without registering a handle,
// the submission API's dry-run check before a team commits a version.
func (l *Loader) Verify(teamName string, files []SourceFile) error {
	var total int64
	for _, f := range files {
		if int64(len(f.Code)) > l.cfg.MaxFileBytes {
			return fmt.Errorf("loader: %w: %s exceeds per-file limit of %d bytes", ErrSubmissionTooLarge, f.FileName, l.cfg.MaxFileBytes)
		}
		total += int64(len(f.Code))
	}
	if total > l.cfg.MaxTotalBytes {
		return fmt.Errorf("loader: %w: submission exceeds aggregate limit of %d bytes", ErrSubmissionTooLarge, l.cfg.MaxTotalBytes)
	}
	if _, err := l.provider.Build(teamName, files); err != nil {
		return fmt.Errorf("loader: %s: build: %w", teamName, err)
	}
	return nil
}

// ReloadAll rebuilds every handle from its original source files,
// resetting its memory accumulator. Handles whose
// origin directory is no longer known or no longer builds become
// LoadFailures, same absorption policy as the initial load.
func (l *Loader) ReloadAll(handles []*agent.Handle) ([]*agent.Handle, []LoadFailure) {
	var rebuilt []*agent.Handle
	var failures []LoadFailure

	for _, h := range handles {
		src, ok := l.sources[h]
		if !ok {
			failures = append(failures, LoadFailure{TeamName: h.TeamName, Errors: []string{"no known source to reload from"}})
			continue
		}

		a, err := l.provider.Build(src.teamName, src.files)
		if err != nil {
			failures = append(failures, LoadFailure{TeamName: src.teamName, Errors: []string{err.Error()}})
			continue
		}

		newHandle := agent.NewHandle(src.teamName, a, h.MemoryLimit)
		l.sources[newHandle] = src
		rebuilt = append(rebuilt, newHandle)
	}

	return rebuilt, failures
}

// EventReloader adapts Loader.ReloadAll to the event orchestrator's
// Reloader contract: a bot that fails to reload is excluded rather
// than aborting the tournament ("loader LoadFailure is
// absorbed (bot excluded, logged)" policy.
type EventReloader struct {
	Loader *Loader
	Logger *zap.SugaredLogger
}

func (r EventReloader) ReloadAll(_ context.Context, handles []*agent.Handle) ([]*agent.Handle, error) {
	rebuilt, failures := r.Loader.ReloadAll(handles)
	for _, f := range failures {
		if r.Logger != nil {
			r.Logger.Warnw("loader: bot excluded on reload", "teamName", f.TeamName, "errors", f.Errors)
		}
	}
	return rebuilt, nil
}

// ValidTeamName reports whether name matches the submission API's
// team-name validation rule: `[A-Za-z0-9_-]+`.
func ValidTeamName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-", r) {
			return false
		}
	}
	return true
}
