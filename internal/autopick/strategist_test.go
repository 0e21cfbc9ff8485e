package autopick

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridironlabs/draftroom/internal/models"
)

var (
	testAutoCaps   = Caps{models.PositionQB: 3, models.PositionRB: 6, models.PositionWR: 7, models.PositionTE: 3}
	testManualCaps = Caps{models.PositionQB: 5, models.PositionRB: 11, models.PositionWR: 11, models.PositionTE: 6}
)

func player(name string, pos models.Position, adp float64) models.Player {
	p := models.Player{ID: uuid.New(), Name: name, Position: pos}
	if adp > 0 {
		p.ADP = &adp
	}
	return p
}

func repeat(pos models.Position, n int) []models.Player {
	out := make([]models.Player, n)
	for i := range out {
		out[i] = player("filler", pos, 0)
	}
	return out
}

func TestSelectLowestADP(t *testing.T) {
	s := New(testAutoCaps, testManualCaps)
	best := player("Best Value", models.PositionRB, 3.5)
	got, err := s.Select(Input{
		Available: []models.Player{
			player("Mid WR", models.PositionWR, 20),
			best,
			player("No ADP", models.PositionTE, 0),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, best.ID, got.ID)
}

func TestPlayersWithoutADPSortLast(t *testing.T) {
	s := New(testAutoCaps, testManualCaps)
	withADP := player("Ranked", models.PositionWR, 150)
	got, err := s.Select(Input{
		Available: []models.Player{player("Unranked", models.PositionWR, 0), withADP},
	})
	require.NoError(t, err)
	assert.Equal(t, withADP.ID, got.ID)
}

func TestQueueBeatsADP(t *testing.T) {
	s := New(testAutoCaps, testManualCaps)
	queued := player("Queued TE", models.PositionTE, 90)
	better := player("Better ADP", models.PositionRB, 1)
	got, err := s.Select(Input{
		Available: []models.Player{better, queued},
		Queue:     []uuid.UUID{uuid.New(), queued.ID}, // first entry already drafted
	})
	require.NoError(t, err)
	assert.Equal(t, queued.ID, got.ID)
}

func TestRankingsBeatADPButNotQueue(t *testing.T) {
	s := New(testAutoCaps, testManualCaps)
	ranked := player("Ranked High", models.PositionWR, 60)
	queued := player("Queued", models.PositionRB, 80)
	adpBest := player("ADP Best", models.PositionRB, 1)

	got, err := s.Select(Input{
		Available: []models.Player{adpBest, ranked, queued},
		Rankings:  []uuid.UUID{ranked.ID, adpBest.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, ranked.ID, got.ID, "rankings replace ADP ordering")

	got, err = s.Select(Input{
		Available: []models.Player{adpBest, ranked, queued},
		Queue:     []uuid.UUID{queued.ID},
		Rankings:  []uuid.UUID{ranked.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, queued.ID, got.ID, "queue outranks rankings")
}

func TestAutoCapRestrictsPool(t *testing.T) {
	s := New(testAutoCaps, testManualCaps)
	// Roster already has 3 QBs (the autodraft cap); the cheap QB must be
	// passed over for the RB.
	roster := repeat(models.PositionQB, 3)
	qb := player("Cheap QB", models.PositionQB, 1)
	rb := player("RB", models.PositionRB, 50)
	got, err := s.Select(Input{Available: []models.Player{qb, rb}, Roster: roster})
	require.NoError(t, err)
	assert.Equal(t, rb.ID, got.ID)
}

func TestManualCapFallback(t *testing.T) {
	s := New(testAutoCaps, testManualCaps)
	// Every available player is at the autodraft cap, but QBs are still
	// below the manual cap of 5, so the QB is drafted anyway.
	roster := append(repeat(models.PositionQB, 3), repeat(models.PositionRB, 11)...)
	qb := player("QB", models.PositionQB, 30)
	rb := player("RB", models.PositionRB, 2)
	got, err := s.Select(Input{Available: []models.Player{qb, rb}, Roster: roster})
	require.NoError(t, err)
	assert.Equal(t, qb.ID, got.ID, "manual cap fallback must still exclude capped RB")
}

func TestNoEligibleAutoPick(t *testing.T) {
	s := New(testAutoCaps, testManualCaps)
	roster := repeat(models.PositionQB, 5)
	_, err := s.Select(Input{
		Available: []models.Player{player("QB", models.PositionQB, 1)},
		Roster:    roster,
	})
	assert.ErrorIs(t, err, ErrNoEligibleAutoPick)

	_, err = s.Select(Input{})
	assert.ErrorIs(t, err, ErrNoEligibleAutoPick)
}

func TestSelectIsDeterministic(t *testing.T) {
	// The pool arrives in whatever order the caller iterated it, so an
	// ADP tie must resolve the same way for every permutation.
	s := New(testAutoCaps, testManualCaps)
	a := player("Aaron Tied", models.PositionWR, 10)
	z := player("Zane Tied", models.PositionWR, 10)
	for _, pool := range [][]models.Player{{a, z}, {z, a}} {
		got, err := s.Select(Input{Available: pool})
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID, "equal ADP breaks on name")
	}

	// Same for players with no ADP at all.
	noA := player("Alpha Unranked", models.PositionTE, 0)
	noZ := player("Zulu Unranked", models.PositionTE, 0)
	for _, pool := range [][]models.Player{{noA, noZ}, {noZ, noA}} {
		got, err := s.Select(Input{Available: pool})
		require.NoError(t, err)
		assert.Equal(t, noA.ID, got.ID)
	}
}
