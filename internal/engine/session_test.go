package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridironlabs/draftroom/internal/catalog"
	"github.com/gridironlabs/draftroom/internal/events"
	"github.com/gridironlabs/draftroom/internal/models"
	"github.com/gridironlabs/draftroom/internal/store"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PreDraftCountdown = 3 * time.Second
	cfg.MockStallAfter = 10 * time.Second
	cfg.LiveStallAfter = 15 * time.Second
	cfg.StallSettleDelay = 2 * time.Second
	return cfg
}

// testCatalog builds count players per draftable position with ascending ADP.
func testCatalog(count int) *catalog.Catalog {
	var players []models.Player
	adp := 1.0
	for _, pos := range []models.Position{models.PositionQB, models.PositionRB, models.PositionWR, models.PositionTE} {
		for i := 0; i < count; i++ {
			v := adp
			players = append(players, models.Player{
				ID:       uuid.New(),
				Name:     fmt.Sprintf("%s Player %d", pos, i),
				Position: pos,
				Team:     "FA",
				ByeWeek:  7,
				ADP:      &v,
			})
			adp++
		}
	}
	return catalog.New(players)
}

type fixture struct {
	session *Session
	store   *store.Memory
	clock   *clockwork.FakeClock
	catalog *catalog.Catalog
	ctx     context.Context
}

func newFixture(t *testing.T, room models.Room, cat *catalog.Catalog, cfg Config) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.CreateRoom(ctx, room))

	fc := clockwork.NewFakeClock()
	s := NewSession(room.ID, mem, cat, events.NopPublisher{}, fc, cfg)
	require.NoError(t, s.attach(ctx))
	t.Cleanup(s.Stop)

	return &fixture{session: s, store: mem, clock: fc, catalog: cat, ctx: ctx}
}

func waitingRoom(participants ...string) models.Room {
	return models.Room{
		ID:           "room1",
		Owner:        participants[0],
		Participants: participants,
		Settings:     models.RoomSettings{TimerSeconds: 30, TotalRounds: 2},
		Status:       models.RoomStatusWaiting,
	}
}

// startDraft randomizes and force-starts the room.
func (f *fixture) startDraft(t *testing.T) []string {
	t.Helper()
	order, err := f.session.RandomizeOrder(f.ctx, f.session.Snapshot().Room.Owner)
	require.NoError(t, err)
	require.NoError(t, f.session.ForceStart(f.ctx, f.session.Snapshot().Room.Owner))
	return order
}

func (f *fixture) tick(n int) {
	for i := 0; i < n; i++ {
		f.clock.Advance(time.Second)
		f.session.Tick(f.ctx)
	}
}

func TestJoinCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 3
	f := newFixture(t, waitingRoom("alice", "bob"), testCatalog(8), cfg)

	room, err := f.session.Join(f.ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, room.Participants)

	_, err = f.session.Join(f.ctx, "dave")
	assert.ErrorIs(t, err, ErrRoomFull)

	// Idempotent for an existing participant even at capacity.
	room, err = f.session.Join(f.ctx, "carol")
	require.NoError(t, err)
	assert.Len(t, room.Participants, 3)
}

func TestRandomizeOrderOwnerOnlyAndPermutation(t *testing.T) {
	f := newFixture(t, waitingRoom("alice", "bob", "carol"), testCatalog(8), testConfig())

	_, err := f.session.RandomizeOrder(f.ctx, "bob")
	assert.ErrorIs(t, err, ErrNotOwner)

	order, err := f.session.RandomizeOrder(f.ctx, "alice")
	require.NoError(t, err)

	sorted := append([]string(nil), order...)
	sort.Strings(sorted)
	assert.Equal(t, []string{"alice", "bob", "carol"}, sorted, "order must be a permutation of participants")
}

func TestSettingsMutableOnlyWhileWaiting(t *testing.T) {
	f := newFixture(t, waitingRoom("alice", "bob"), testCatalog(8), testConfig())

	assert.ErrorIs(t, f.session.UpdateSettings(f.ctx, "bob", 45, 3), ErrNotOwner)
	require.NoError(t, f.session.UpdateSettings(f.ctx, "alice", 45, 3))
	assert.Equal(t, 45, f.session.Snapshot().Room.Settings.TimerSeconds)

	f.startDraft(t)
	err := f.session.UpdateSettings(f.ctx, "alice", 20, 4)
	assert.ErrorIs(t, err, ErrSettingsLocked)
	assert.NotErrorIs(t, err, ErrOrderExists)
}

func TestPreDraftCountdownActivates(t *testing.T) {
	f := newFixture(t, waitingRoom("alice", "bob"), testCatalog(8), testConfig())

	_, err := f.session.RandomizeOrder(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusWaiting, f.session.Snapshot().Room.Status)

	f.tick(2)
	assert.Equal(t, models.RoomStatusWaiting, f.session.Snapshot().Room.Status)

	// Re-randomize is still allowed before the transition.
	_, err = f.session.RandomizeOrder(f.ctx, "alice")
	require.NoError(t, err)

	f.tick(3)
	snap := f.session.Snapshot()
	assert.Equal(t, models.RoomStatusActive, snap.Room.Status)
	assert.Equal(t, 1, snap.CurrentPick)
	assert.Equal(t, snap.Room.DraftOrder[0], snap.CurrentPicker)

	// randomize after activation is rejected.
	_, err = f.session.RandomizeOrder(f.ctx, "alice")
	assert.ErrorIs(t, err, ErrOrderExists)
}

func TestSubmitPickPreconditionChain(t *testing.T) {
	f := newFixture(t, waitingRoom("alice", "bob"), testCatalog(8), testConfig())
	someID := f.catalog.Draftable()[0].ID

	// Not active yet.
	assert.ErrorIs(t, f.session.SubmitPick(f.ctx, "alice", someID), ErrDraftNotActive)

	order := f.startDraft(t)
	first, second := order[0], order[1]

	// Wrong identity.
	assert.ErrorIs(t, f.session.SubmitPick(f.ctx, second, someID), ErrNotYourTurn)

	// Unknown player id.
	assert.ErrorIs(t, f.session.SubmitPick(f.ctx, first, uuid.New()), ErrPlayerUnavailable)

	// Success advances the turn.
	require.NoError(t, f.session.SubmitPick(f.ctx, first, someID))
	snap := f.session.Snapshot()
	assert.Equal(t, 1, snap.PickCount)
	assert.Equal(t, second, snap.CurrentPicker)

	// Already drafted player is unavailable.
	assert.ErrorIs(t, f.session.SubmitPick(f.ctx, second, someID), ErrPlayerUnavailable)
}

func TestSubmitPickInFlightRejected(t *testing.T) {
	f := newFixture(t, waitingRoom("alice", "bob"), testCatalog(8), testConfig())
	order := f.startDraft(t)

	f.session.mu.Lock()
	f.session.inFlight = true
	f.session.mu.Unlock()

	err := f.session.SubmitPick(f.ctx, order[0], f.catalog.Draftable()[0].ID)
	assert.ErrorIs(t, err, ErrSubmissionInProgress)
}

func TestPositionLimitExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.ManualCaps[models.PositionQB] = 1
	room := waitingRoom("alice", "bob")
	room.Settings.TotalRounds = 4
	f := newFixture(t, room, testCatalog(8), cfg)
	order := f.startDraft(t)

	var qbs []models.Player
	for _, p := range f.catalog.Draftable() {
		if p.Position == models.PositionQB {
			qbs = append(qbs, p)
		}
	}
	require.GreaterOrEqual(t, len(qbs), 3)

	require.NoError(t, f.session.SubmitPick(f.ctx, order[0], qbs[0].ID))
	require.NoError(t, f.session.SubmitPick(f.ctx, order[1], qbs[1].ID))

	// Round 2 is reversed: order[1] picks again and is at the QB cap.
	assert.ErrorIs(t, f.session.SubmitPick(f.ctx, order[1], qbs[2].ID), ErrPositionLimitExceeded)
}

func TestRacingSessionsExactlyOneWinner(t *testing.T) {
	// Two engine instances over the same store race to submit the same
	// slot; the store's create-if-absent must arbitrate to one stored pick.
	ctx := context.Background()
	mem := store.NewMemory()
	room := waitingRoom("alice", "bob")
	require.NoError(t, mem.CreateRoom(ctx, room))
	cat := testCatalog(8)

	newAttached := func() *Session {
		s := NewSession(room.ID, mem, cat, events.NopPublisher{}, clockwork.NewFakeClock(), testConfig())
		require.NoError(t, s.attach(ctx))
		t.Cleanup(s.Stop)
		return s
	}
	a, b := newAttached(), newAttached()

	order, err := a.RandomizeOrder(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, a.ForceStart(ctx, "alice"))

	target := cat.Draftable()[0].ID
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, s := range []*Session{a, b} {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			results <- s.SubmitPick(ctx, order[0], target)
		}(s)
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		}
	}
	picks, err := mem.ListPicks(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, picks, 1, "exactly one pick stored for the slot")
	assert.LessOrEqual(t, successes, 1)
	assert.Equal(t, target, picks[0].PlayerID)
}

func TestCountdownTriggersAutoPickHonoringQueue(t *testing.T) {
	room := waitingRoom("alice", "bob")
	room.Settings.TimerSeconds = 3
	f := newFixture(t, room, testCatalog(8), testConfig())
	order := f.startDraft(t)

	// Queue a TE with a poor ADP for the first picker; the countdown
	// auto-pick must still take it over the ADP-best player.
	var queued models.Player
	for _, p := range f.catalog.Draftable() {
		if p.Position == models.PositionTE {
			queued = p
			break
		}
	}
	require.NoError(t, f.session.QueueAdd(order[0], queued.ID))

	f.tick(3)
	snap := f.session.Snapshot()
	require.Equal(t, 1, snap.PickCount)
	assert.Equal(t, order[0], snap.Picks[0].Picker)
	assert.Equal(t, queued.ID, snap.Picks[0].PlayerID)
}

func TestAutoPickDebounce(t *testing.T) {
	room := waitingRoom("alice", "bob")
	room.Settings.TimerSeconds = 1
	f := newFixture(t, room, testCatalog(8), testConfig())
	f.startDraft(t)

	// Countdown expired, but the last attempt was just recorded at the
	// current fake time: a tick with no elapsed time must not fire again.
	f.session.mu.Lock()
	f.session.countdown = 0
	f.session.lastAttempt = f.clock.Now()
	f.session.mu.Unlock()

	f.session.Tick(f.ctx)
	assert.Equal(t, 0, f.session.Snapshot().PickCount)
}

func TestMockStallRecovery(t *testing.T) {
	room := waitingRoom("alice", "mock1")
	room.MockDrafters = []string{"mock1"}
	room.Settings.TimerSeconds = 100 // countdown never the trigger here
	f := newFixture(t, room, testCatalog(8), testConfig())

	// Pin the order so the mock drafter is on the clock first.
	order := []string{"mock1", "alice"}
	_, err := f.store.UpdateRoom(f.ctx, "room1", store.RoomUpdate{DraftOrder: &order})
	require.NoError(t, err)
	require.NoError(t, f.session.ForceStart(f.ctx, "alice"))

	// Simulate a lost in-flight flag wedging the turn.
	f.session.mu.Lock()
	f.session.inFlight = true
	f.session.mu.Unlock()

	// Past the stall window the flag is force-cleared...
	f.clock.Advance(11 * time.Second)
	f.session.Tick(f.ctx)
	f.session.mu.Lock()
	cleared := !f.session.inFlight
	f.session.mu.Unlock()
	assert.True(t, cleared, "stuck in-flight flag must be force-cleared")
	assert.Equal(t, 0, f.session.Snapshot().PickCount, "retry waits for the settle delay")

	// ...and after the settle delay the retry fires exactly once.
	f.tick(2)
	assert.Equal(t, 1, f.session.Snapshot().PickCount)
	assert.Equal(t, "mock1", f.session.Snapshot().Picks[0].Picker)
}

func TestLiveStallForcesAutoPick(t *testing.T) {
	room := waitingRoom("alice", "bob")
	room.Settings.TimerSeconds = 100
	f := newFixture(t, room, testCatalog(8), testConfig())
	f.startDraft(t)

	f.clock.Advance(16 * time.Second)
	f.session.Tick(f.ctx)
	assert.Equal(t, 0, f.session.Snapshot().PickCount, "forced pick waits for the settle delay")

	f.tick(2)
	require.Equal(t, 1, f.session.Snapshot().PickCount, "live stall must force an auto-pick")
}

func TestLiveStallRecoversLostInFlightFlag(t *testing.T) {
	room := waitingRoom("alice", "bob")
	room.Settings.TimerSeconds = 100
	f := newFixture(t, room, testCatalog(8), testConfig())
	f.startDraft(t)

	// A submission that never resolved leaves the flag set with no pick
	// recorded. The stall path must not let the flag veto its own rescue.
	f.session.mu.Lock()
	f.session.inFlight = true
	f.session.mu.Unlock()

	f.clock.Advance(16 * time.Second)
	f.session.Tick(f.ctx)
	f.session.mu.Lock()
	cleared := !f.session.inFlight
	f.session.mu.Unlock()
	assert.True(t, cleared, "stuck in-flight flag must be force-cleared for a live picker")
	assert.Equal(t, 0, f.session.Snapshot().PickCount, "retry waits for the settle delay")

	// The turn must not wedge: one forced pick lands after the settle delay.
	f.tick(2)
	snap := f.session.Snapshot()
	require.Equal(t, 1, snap.PickCount)
	assert.Equal(t, snap.Room.DraftOrder[0], snap.Picks[0].Picker)

	// The forced pick advanced the turn; further ticks stay quiet until the
	// next picker's own clock runs down.
	f.tick(3)
	assert.Equal(t, 1, f.session.Snapshot().PickCount)
}

func TestFullDraftRunsToCompletion(t *testing.T) {
	room := waitingRoom("alice", "mock1")
	room.MockDrafters = []string{"mock1"}
	room.Settings.TimerSeconds = 2
	room.Settings.TotalRounds = 3
	f := newFixture(t, room, testCatalog(8), testConfig())
	f.startDraft(t)

	// 6 picks at 2s each, all by timeout.
	f.tick(30)

	snap := f.session.Snapshot()
	assert.Equal(t, models.RoomStatusCompleted, snap.Room.Status)
	assert.Equal(t, 6, snap.PickCount)

	// Pick numbers are strictly increasing and each slot went to the snake
	// picker for that slot.
	for i, p := range snap.Picks {
		assert.Equal(t, i+1, p.PickNumber)
	}

	// No further submissions accepted.
	err := f.session.SubmitPick(f.ctx, "alice", uuid.New())
	assert.ErrorIs(t, err, ErrDraftNotActive)
}

func TestZeroAvailablePlayersFailsCleanly(t *testing.T) {
	// 4 draftable players, 2 seats x 3 rounds = 6 owed: the pool runs dry
	// with picks outstanding. Both paths must fail typed, not advance.
	cat := testCatalog(1) // 1 per position = 4 draftable
	room := waitingRoom("alice", "bob")
	room.Settings.TotalRounds = 3
	f := newFixture(t, room, cat, testConfig())
	order := f.startDraft(t)

	pool := cat.Draftable()
	require.NoError(t, f.session.SubmitPick(f.ctx, order[0], pool[0].ID))
	require.NoError(t, f.session.SubmitPick(f.ctx, order[1], pool[1].ID))
	require.NoError(t, f.session.SubmitPick(f.ctx, order[1], pool[2].ID))
	require.NoError(t, f.session.SubmitPick(f.ctx, order[0], pool[3].ID))

	snap := f.session.Snapshot()
	require.Equal(t, 4, snap.PickCount)
	require.Equal(t, models.RoomStatusActive, snap.Room.Status)

	assert.ErrorIs(t, f.session.SubmitPick(f.ctx, order[0], pool[0].ID), ErrPlayerUnavailable)
	assert.ErrorIs(t, f.session.AutoPick(f.ctx, order[0]), ErrNoEligibleAutoPick)
	assert.Equal(t, 4, f.session.Snapshot().PickCount, "pick counter must not advance")
}

func TestResetPurgesPicksBeforeNewDraft(t *testing.T) {
	room := waitingRoom("alice", "mock1")
	room.MockDrafters = []string{"mock1"}
	room.Settings.TimerSeconds = 1
	room.Settings.TotalRounds = 2
	f := newFixture(t, room, testCatalog(8), testConfig())
	f.startDraft(t)
	f.tick(20)
	require.Equal(t, models.RoomStatusCompleted, f.session.Snapshot().Room.Status)
	require.Equal(t, 4, f.session.Snapshot().PickCount)

	// External reset back to waiting.
	status := models.RoomStatusWaiting
	_, err := f.store.UpdateRoom(f.ctx, room.ID, store.RoomUpdate{Status: &status})
	require.NoError(t, err)

	picks, err := f.store.ListPicks(f.ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, picks, "stale picks must not leak into a new draft")

	// A fresh draft starts clean.
	order := f.startDraft(t)
	require.NoError(t, f.session.SubmitPick(f.ctx, order[0], f.catalog.Draftable()[0].ID))
	assert.Equal(t, 1, f.session.Snapshot().PickCount)
}

func TestAvailableIsCatalogMinusPicks(t *testing.T) {
	f := newFixture(t, waitingRoom("alice", "bob"), testCatalog(8), testConfig())
	f.startDraft(t)

	total := len(f.catalog.Draftable())
	for i := 0; i < 4; i++ {
		available := f.session.AvailablePlayers()
		require.Len(t, available, total-i)
		picker := f.session.Snapshot().CurrentPicker
		require.NoError(t, f.session.SubmitPick(f.ctx, picker, available[0].ID))
	}

	// Every drafted player is gone from the pool.
	drafted := make(map[uuid.UUID]bool)
	for _, p := range f.session.Snapshot().Picks {
		drafted[p.PlayerID] = true
	}
	for _, p := range f.session.AvailablePlayers() {
		assert.False(t, drafted[p.ID])
	}
}
