// Package scoring implements deterministic standings and rankings from
// match outcomes. Every function here is pure: same input always
// produces the same output, with no hidden state, so callers may call
// it from any goroutine against read-only snapshots.
package scoring

import (
	"fmt"
	"sort"

	"github.com/arcane-tourneys/botarena/internal/match"
)

// PointsPerWin and PointsPerDraw fix the points formula at build time,
// since the scoring formula itself is a constant.
const (
	PointsPerWin  = 3
	PointsPerDraw = 1
)

// Standing is one bot's accumulated record within a group or event.
type Standing struct {
	BotName  string
	Points   int
	Wins     int
	Losses   int
	Draws    int
	GoalDiff int
}

// Standings is a mutable, owned-by-one-scheduler map of bot name to its
// Standing, plus the set of matchIds already applied (the apply-once
// guard).
type Standings struct {
	byBot   map[string]*Standing
	applied map[string]bool
}

func NewStandings(botNames []string) *Standings {
	s := &Standings{
		byBot:   make(map[string]*Standing, len(botNames)),
		applied: make(map[string]bool),
	}
	for _, name := range botNames {
		s.byBot[name] = &Standing{BotName: name}
	}
	return s
}

// ErrAlreadyApplied is returned when ApplyResult sees a matchId it has
// already processed, the idempotence guard callers rely on.
var ErrAlreadyApplied = fmt.Errorf("scoring: result already applied")

// ApplyResult updates both participants' records from result. It is
// idempotent by MatchID: a second call with the same MatchID is
// rejected and leaves standings unchanged.
func (s *Standings) ApplyResult(result match.Result) error {
	if s.applied[result.MatchID] {
		return ErrAlreadyApplied
	}

	b1, ok1 := s.byBot[result.Bot1Name]
	b2, ok2 := s.byBot[result.Bot2Name]
	if !ok1 || !ok2 {
		return fmt.Errorf("scoring: match %s references unregistered bot(s)", result.MatchID)
	}

	switch result.Outcome {
	case match.Bot1Wins:
		b1.Wins++
		b1.Points += PointsPerWin
		b2.Losses++
	case match.Bot2Wins:
		b2.Wins++
		b2.Points += PointsPerWin
		b1.Losses++
	case match.Draw:
		b1.Draws++
		b2.Draws++
		b1.Points += PointsPerDraw
		b2.Points += PointsPerDraw
	case match.Bot1Error:
		// Bot2 faces no fault and wins; its score is left wherever it
		// stood (no automatic inflation), per the one-sided tie rule.
		b1.Losses++
		b2.Wins++
		b2.Points += PointsPerWin
	case match.Bot2Error:
		b2.Losses++
		b1.Wins++
		b1.Points += PointsPerWin
	case match.BothError:
		// Neither side receives ranking points from this match.
	default:
		return fmt.Errorf("scoring: unknown outcome %q", result.Outcome)
	}

	b1.GoalDiff += result.Bot1Score - result.Bot2Score
	b2.GoalDiff += result.Bot2Score - result.Bot1Score

	s.applied[result.MatchID] = true
	return nil
}

// Snapshot returns a stable, independently-owned copy of the current
// standings — safe for an external reader to hold onto.
func (s *Standings) Snapshot() []Standing {
	out := make([]Standing, 0, len(s.byBot))
	for _, st := range s.byBot {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BotName < out[j].BotName })
	return out
}

// RankGroup orders standings by the four-key deterministic tiebreaker:
// points desc, goalDiff desc, wins desc, name asc. Ties on the first
// three keys are possible and resolved by name; a full four-way tie is
// impossible because bot names are unique.
func RankGroup(standings []Standing) []Standing {
	out := make([]Standing, len(standings))
	copy(out, standings)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDiff != b.GoalDiff {
			return a.GoalDiff > b.GoalDiff
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.BotName < b.BotName
	})
	return out
}

// RankAggregate ranks totals accumulated across events/tournaments
// using the same four-key algorithm ("same algorithm but on
// aggregated totals"). Aggregate inputs are expressed as Standing
// values whose Points field carries the cross-event total.
func RankAggregate(totals []Standing) []Standing {
	return RankGroup(totals)
}

// TiedGroup returns the subset of ranked that shares the rank-1 entry's
// (points, goalDiff, wins) key — the set the tiebreaker bracket
// must adjudicate. An empty or singleton result means no tiebreaker is
// needed.
func TiedGroup(ranked []Standing) []Standing {
	if len(ranked) == 0 {
		return nil
	}
	top := ranked[0]
	var tied []Standing
	for _, s := range ranked {
		if s.Points == top.Points && s.GoalDiff == top.GoalDiff && s.Wins == top.Wins {
			tied = append(tied, s)
		}
	}
	return tied
}

// Statistics are derived, non-authoritative aggregates over a batch of
// match results.
type Statistics struct {
	TotalMatches   int
	ErrorCount     int
	AverageSeconds float64
}

func ComputeStatistics(results []match.Result) Statistics {
	stats := Statistics{TotalMatches: len(results)}
	if len(results) == 0 {
		return stats
	}

	var totalSeconds float64
	for _, r := range results {
		if r.Outcome == match.Bot1Error || r.Outcome == match.Bot2Error || r.Outcome == match.BothError {
			stats.ErrorCount++
		}
		totalSeconds += r.EndedAt.Sub(r.StartedAt).Seconds()
	}
	stats.AverageSeconds = totalSeconds / float64(len(results))
	return stats
}
