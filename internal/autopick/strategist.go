// Package autopick selects a player to draft on behalf of a picker that has
// run out of time or is a simulated participant.
package autopick

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/gridironlabs/draftroom/internal/models"
)

// ErrNoEligibleAutoPick means every remaining player would breach even the
// manual position caps. Callers must surface this rather than skip the turn.
var ErrNoEligibleAutoPick = errors.New("no eligible auto-pick")

// Caps are per-position roster maximums.
type Caps map[models.Position]int

// Strategist picks deterministically given a pool, a roster, and optional
// queue/rankings. Autodraft caps are strictly tighter than the manual caps so
// automatically-built rosters stay balanced; the manual caps are the hard
// floor below which no pick is ever made.
type Strategist struct {
	autoCaps   Caps
	manualCaps Caps
}

// New returns a Strategist with the given cap sets.
func New(autoCaps, manualCaps Caps) *Strategist {
	return &Strategist{autoCaps: autoCaps, manualCaps: manualCaps}
}

// Input carries everything a selection needs.
type Input struct {
	Available []models.Player
	Roster    []models.Player
	Queue     []uuid.UUID // user-curated priority list, highest first
	Rankings  []uuid.UUID // full replacement for ADP ordering when present
}

// Select returns the single best player to auto-draft:
//  (1) restrict to players under the autodraft cap, falling back to the
//      manual cap when that empties the pool entirely;
//  (2) honor queue order within the pool;
//  (3) else best-ranked by the rankings list;
//  (4) else lowest ADP, players without an ADP last; ties break on name
//      so the same pool always yields the same pick.
func (s *Strategist) Select(in Input) (models.Player, error) {
	counts := positionCounts(in.Roster)

	pool := filterByCaps(in.Available, counts, s.autoCaps)
	if len(pool) == 0 {
		pool = filterByCaps(in.Available, counts, s.manualCaps)
	}
	if len(pool) == 0 {
		return models.Player{}, ErrNoEligibleAutoPick
	}

	inPool := make(map[uuid.UUID]models.Player, len(pool))
	for _, p := range pool {
		inPool[p.ID] = p
	}

	for _, id := range in.Queue {
		if p, ok := inPool[id]; ok {
			return p, nil
		}
	}

	if len(in.Rankings) > 0 {
		for _, id := range in.Rankings {
			if p, ok := inPool[id]; ok {
				return p, nil
			}
		}
		// Ranked list covered none of the pool; fall through to ADP.
	}

	sorted := make([]models.Player, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].ADP, sorted[j].ADP
		switch {
		case a == nil && b == nil:
			return lessByName(sorted[i], sorted[j])
		case a == nil:
			return false
		case b == nil:
			return true
		case *a == *b:
			return lessByName(sorted[i], sorted[j])
		default:
			return *a < *b
		}
	})
	return sorted[0], nil
}

// lessByName is the total-order tiebreaker: the pool arrives in map
// iteration order, so without it equal-ADP picks would vary run to run.
func lessByName(a, b models.Player) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID.String() < b.ID.String()
}

func positionCounts(roster []models.Player) map[models.Position]int {
	counts := make(map[models.Position]int)
	for _, p := range roster {
		counts[p.Position]++
	}
	return counts
}

func filterByCaps(pool []models.Player, counts map[models.Position]int, caps Caps) []models.Player {
	var out []models.Player
	for _, p := range pool {
		if limit, ok := caps[p.Position]; ok && counts[p.Position] >= limit {
			continue
		}
		out = append(out, p)
	}
	return out
}
