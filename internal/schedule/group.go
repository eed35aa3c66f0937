package schedule

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/arcane-tourneys/botarena/internal/scoring"
)

// Group is a subset of agents playing a round-robin. Standings are
// owned by the scheduler goroutine driving this group's matches;
// external readers only ever see Snapshot() copies.
type Group struct {
	GroupID   string
	Bots      []*agent.Handle
	Complete  bool

	standings *scoring.Standings
	mu        sync.Mutex
}

func newGroup(id string, bots []*agent.Handle) *Group {
	names := make([]string, len(bots))
	for i, b := range bots {
		names[i] = b.TeamName
	}
	return &Group{
		GroupID:   id,
		Bots:      bots,
		standings: scoring.NewStandings(names),
	}
}

// applyResultLocked serialises a standings mutation under the group's
// lock, guaranteeing a deterministic, non-racy final state regardless
// of completion order (applyResult is commutative in its effect on
// points/wins/losses/draws, and goalDiff is additive).
func (g *Group) applyResultLocked(apply func(*scoring.Standings) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return apply(g.standings)
}

// Standings returns an immutable snapshot of the group's current
// standings, safe for concurrent external readers.
func (g *Group) Standings() []scoring.Standing {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.standings.Snapshot()
}

func (g *Group) Ranked() []scoring.Standing {
	return scoring.RankGroup(g.Standings())
}

// BuildGroups shuffles bots with a fresh random permutation (seeded by
// rng so the overall run can be made deterministic) then distributes
// them by ceil(N/K) into K groups. Trailing groups may
// be smaller but never empty; any resulting group of size < 2 is a
// configuration error surfaced immediately rather than at match time.
func BuildGroups(bots []*agent.Handle, groupCount int, rng *rand.Rand) ([]*Group, error) {
	n := len(bots)
	if n < 2 {
		return nil, ErrSchedulingImpossible
	}

	shuffled := make([]*agent.Handle, n)
	copy(shuffled, bots)
	rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	// The first n%groupCount groups take ceil(N/K) bots, the rest one fewer.
	base, extra := n/groupCount, n%groupCount

	var groups []*Group
	for i, g := 0, 0; i < n; g++ {
		size := base
		if g < extra {
			size++
		}
		slice := shuffled[i : i+size]
		if len(slice) < 2 {
			return nil, ErrSchedulingImpossible
		}
		groups = append(groups, newGroup(groupID(len(groups)), slice))
		i += size
	}

	return groups, nil
}

func groupID(index int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if index < len(letters) {
		return "group-" + string(letters[index])
	}
	return "group-" + string(rune('A'+index%26)) + itoa(index/26)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	return string(buf)
}

// Pairings enumerates every unordered pair within a group — the
// n*(n-1)/2 matches a full round robin requires.
func Pairings(bots []*agent.Handle) [][2]*agent.Handle {
	var pairs [][2]*agent.Handle
	for i := 0; i < len(bots); i++ {
		for j := i + 1; j < len(bots); j++ {
			pairs = append(pairs, [2]*agent.Handle{bots[i], bots[j]})
		}
	}
	return pairs
}

// seedOrder orders bot names by their original group ranking, falling
// back to name ascending — the seeding the tiebreaker bracket
// uses to seat a tied set.
func seedOrder(tied []scoring.Standing) []string {
	sorted := make([]scoring.Standing, len(tied))
	copy(sorted, tied)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].BotName < sorted[j].BotName })
	names := make([]string, len(sorted))
	for i, s := range sorted {
		names[i] = s.BotName
	}
	return names
}
