package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridironlabs/draftroom/internal/models"
)

func TestStartingLineupFillsSlotsThenFlexThenBench(t *testing.T) {
	room := waitingRoom("alice", "bob")
	room.Settings.TotalRounds = 6
	f := newFixture(t, room, testCatalog(8), testConfig())
	order := f.startDraft(t)

	// order[0] drafts RB-heavy: picks 1,4,5,8,9,12 in a 2-seat snake.
	// Give them 4 RBs, a QB, and a WR across their six turns.
	want := map[int]models.Position{
		1: models.PositionRB, 4: models.PositionRB, 5: models.PositionRB,
		8: models.PositionRB, 9: models.PositionQB, 12: models.PositionWR,
	}
	for pick := 1; pick <= 12; pick++ {
		snap := f.session.Snapshot()
		picker := snap.CurrentPicker
		pos, targeted := want[pick]
		if !targeted {
			pos = models.PositionTE // filler for the other seat
		}
		var chosen models.Player
		for _, p := range f.session.AvailablePlayers() {
			if p.Position == pos {
				chosen = p
				break
			}
		}
		require.NotEmpty(t, chosen.Name, "pool exhausted at pick %d", pick)
		require.NoError(t, f.session.SubmitPick(f.ctx, picker, chosen.ID))
	}

	lineup := f.session.StartingLineup(order[0])
	assert.Len(t, lineup.QB, 1)
	assert.Len(t, lineup.RB, 2)
	assert.Len(t, lineup.WR, 1)
	assert.Empty(t, lineup.TE)
	// The third and fourth RBs spill into flex, nothing reaches the bench.
	assert.Len(t, lineup.Flex, 2)
	assert.Empty(t, lineup.Bench)
}

func TestStatsFromPickGaps(t *testing.T) {
	room := waitingRoom("alice", "bob")
	f := newFixture(t, room, testCatalog(8), testConfig())
	f.startDraft(t)

	gaps := []time.Duration{3 * time.Second, 7 * time.Second, 2 * time.Second}
	for i := 0; i < 4; i++ {
		if i > 0 {
			f.clock.Advance(gaps[i-1])
		}
		snap := f.session.Snapshot()
		pool := f.session.AvailablePlayers()
		require.NoError(t, f.session.SubmitPick(f.ctx, snap.CurrentPicker, pool[0].ID))
	}

	st := f.session.Stats()
	assert.Equal(t, 4, st.TotalPicks)
	assert.Equal(t, 4, st.MadePicks)
	assert.InDelta(t, 100.0, st.CompletionPct, 0.001)
	assert.Equal(t, 2*time.Second, st.MinPickTime)
	assert.Equal(t, 7*time.Second, st.MaxPickTime)
	assert.Equal(t, 4*time.Second, st.MeanPickTime)
}

func TestSnapshotUpcomingFollowsSnakeOrder(t *testing.T) {
	f := newFixture(t, waitingRoom("alice", "bob", "carol"), testCatalog(8), testConfig())
	order := f.startDraft(t)

	snap := f.session.Snapshot()
	require.GreaterOrEqual(t, len(snap.Upcoming), 6)
	// Round 1 forward, round 2 reversed.
	assert.Equal(t, order[0], snap.Upcoming[0].Picker)
	assert.Equal(t, order[1], snap.Upcoming[1].Picker)
	assert.Equal(t, order[2], snap.Upcoming[2].Picker)
	assert.Equal(t, order[2], snap.Upcoming[3].Picker)
	assert.Equal(t, order[1], snap.Upcoming[4].Picker)
	assert.Equal(t, order[0], snap.Upcoming[5].Picker)
}

func TestQueueValidationAndResolution(t *testing.T) {
	f := newFixture(t, waitingRoom("alice", "bob"), testCatalog(8), testConfig())

	pool := f.catalog.Draftable()
	require.NoError(t, f.session.QueueAdd("alice", pool[0].ID))
	require.NoError(t, f.session.QueueAdd("alice", pool[1].ID))
	require.NoError(t, f.session.QueueAdd("alice", pool[2].ID))

	// Re-adding keeps the original position; unknown ids are rejected.
	require.NoError(t, f.session.QueueAdd("alice", pool[0].ID))
	assert.ErrorIs(t, f.session.QueueAdd("alice", uuid.New()), ErrPlayerUnavailable)

	queued := f.session.Queue("alice")
	require.Len(t, queued, 3)
	assert.Equal(t, pool[0].ID, queued[0].ID)

	// Reorder honors only already-queued entries.
	f.session.QueueReorder("alice", []uuid.UUID{pool[2].ID, uuid.New(), pool[0].ID})
	queued = f.session.Queue("alice")
	require.Len(t, queued, 2)
	assert.Equal(t, pool[2].ID, queued[0].ID)
	assert.Equal(t, pool[0].ID, queued[1].ID)

	f.session.QueueRemove("alice", pool[2].ID)
	require.Len(t, f.session.Queue("alice"), 1)
}

func TestImportRankingsFuzzyAndDedupe(t *testing.T) {
	f := newFixture(t, waitingRoom("alice", "bob"), testCatalog(8), testConfig())

	matched := f.session.ImportRankings("alice", []string{
		"RB Player 3",
		"rb player 3", // duplicate, different casing
		"WR Player 0",
		"No Such Player Anywhere",
	})
	assert.Equal(t, 2, matched)

	f.session.ClearRankings("alice")
	assert.Equal(t, 1, f.session.ImportRankings("alice", []string{"TE Player 1"}))
}
