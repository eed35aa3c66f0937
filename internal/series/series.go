// Package series runs N tournaments back-to-back over the same agent
// set and aggregates a series champion.
package series

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/arcane-tourneys/botarena/internal/bus"
	"github.com/arcane-tourneys/botarena/internal/event"
)

// BotStanding is one bot's accumulated record across every tournament
// played so far in the series.
type BotStanding struct {
	BotName        string
	TotalScore     int
	TournamentsWon int
	Placements     []int
	ScoresByGame   map[agent.GameType]int
}

// Info is the full record of one series run.
type Info struct {
	SeriesID        string
	Tournaments     []event.TournamentInfo
	SeriesStandings []BotStanding
	SeriesChampion  string
	StartedAt       time.Time
	EndedAt         time.Time
}

// Orchestrator plays a fixed number of tournaments sequentially,
// cancelling cleanly if ctx is cancelled mid-series ("no
// partial series state is declared complete").
type Orchestrator struct {
	tournamentOrchestrator *event.Orchestrator
	tournamentCount        int
}

func NewOrchestrator(tournamentOrchestrator *event.Orchestrator, tournamentCount int) (*Orchestrator, error) {
	if tournamentOrchestrator == nil {
		return nil, fmt.Errorf("series: tournamentOrchestrator must not be nil")
	}
	if tournamentCount < 1 {
		return nil, fmt.Errorf("series: tournamentCount must be >= 1")
	}
	return &Orchestrator{tournamentOrchestrator: tournamentOrchestrator, tournamentCount: tournamentCount}, nil
}

// ErrCancelled wraps a context cancellation observed between
// tournaments, distinguishing it from an internal orchestration error.
var ErrCancelled = fmt.Errorf("series: cancelled")

// RunSeries plays every tournament in order, aggregating standings as
// it goes. On cancellation, no Info is returned — the caller sees a
// single cancellation failure, never a partially-complete series.
func (o *Orchestrator) RunSeries(ctx context.Context, seriesID string, bots []*agent.Handle, eventBus *bus.Bus, rng *rand.Rand) (Info, error) {
	names := make([]string, len(bots))
	for i, h := range bots {
		names[i] = h.TeamName
	}

	standings := make(map[string]*BotStanding, len(names))
	for _, name := range names {
		standings[name] = &BotStanding{BotName: name, ScoresByGame: make(map[agent.GameType]int)}
	}

	info := Info{SeriesID: seriesID, StartedAt: time.Now()}

	if eventBus != nil {
		eventBus.Publish(bus.TopicSeriesStarted, seriesID)
	}

	for i := 0; i < o.tournamentCount; i++ {
		if err := ctx.Err(); err != nil {
			return Info{}, fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		tournamentID := fmt.Sprintf("%s-t%d", seriesID, i+1)
		tInfo, err := o.tournamentOrchestrator.RunTournament(ctx, tournamentID, bots, rng)
		if err != nil {
			if ctx.Err() != nil {
				return Info{}, fmt.Errorf("%w: %v", ErrCancelled, err)
			}
			return Info{}, err
		}
		info.Tournaments = append(info.Tournaments, tInfo)

		applyTournament(standings, tInfo, i)
	}

	info.SeriesStandings = rankStandings(standings)
	info.SeriesChampion = info.SeriesStandings[0].BotName
	info.EndedAt = time.Now()

	if eventBus != nil {
		eventBus.Publish(bus.TopicSeriesCompleted, info)
	}

	return info, nil
}

// applyTournament folds one tournament's per-event match-win totals
// into the running series standings: "sum each bot's
// per-tournament match-win totals into seriesStandings.totalScore."
func applyTournament(standings map[string]*BotStanding, t event.TournamentInfo, placementIndex int) {
	tournamentWins := make(map[string]int, len(standings))

	for gt, eventInfo := range t.Events {
		for _, m := range eventInfo.Matches {
			var winner string
			switch {
			case m.WinnerName != "":
				winner = m.WinnerName
			default:
				continue
			}
			if st, ok := standings[winner]; ok {
				st.TotalScore++
				st.ScoresByGame[gt]++
				tournamentWins[winner]++
			}
		}
	}

	for name, st := range standings {
		placement := placementRank(tournamentWins, name)
		st.Placements = append(st.Placements, placement)
		if name == t.Champion {
			st.TournamentsWon++
		}
	}
}

// placementRank ranks name within tournamentWins (descending win
// count, name ascending to break ties), 1-indexed.
func placementRank(tournamentWins map[string]int, name string) int {
	type entry struct {
		name string
		wins int
	}
	entries := make([]entry, 0, len(tournamentWins))
	for n, w := range tournamentWins {
		entries = append(entries, entry{n, w})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].wins != entries[j].wins {
			return entries[i].wins > entries[j].wins
		}
		return entries[i].name < entries[j].name
	})
	for i, e := range entries {
		if e.name == name {
			return i + 1
		}
	}
	return len(entries) + 1
}

// rankStandings orders the series standings using tournament wins as
// an additional key before match wins.
func rankStandings(standings map[string]*BotStanding) []BotStanding {
	out := make([]BotStanding, 0, len(standings))
	for _, st := range standings {
		out = append(out, *st)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TournamentsWon != b.TournamentsWon {
			return a.TournamentsWon > b.TournamentsWon
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.BotName < b.BotName
	})
	return out
}
