// Package engine owns the per-room draft session: pick admission, countdown
// and stall timers, auto-drafting, and the derived views the presentation
// layer reads. One Session is the single authority for a room; everything it
// serves is recomputed from the room snapshot and the full ordered pick list,
// never from incremental caches.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/gridironlabs/draftroom/internal/autopick"
	"github.com/gridironlabs/draftroom/internal/catalog"
	"github.com/gridironlabs/draftroom/internal/events"
	"github.com/gridironlabs/draftroom/internal/models"
	"github.com/gridironlabs/draftroom/internal/snake"
	"github.com/gridironlabs/draftroom/internal/store"
)

// Session coordinates a single draft room. The in-flight flag only suppresses
// redundant writes; correctness under racing writers comes from the store's
// create-if-absent pick slots.
type Session struct {
	roomID  string
	store   store.RoomStore
	catalog *catalog.Catalog
	strat   *autopick.Strategist
	pub     events.Publisher
	clock   clockwork.Clock
	cfg     Config
	rng     *rand.Rand

	mu       sync.Mutex
	room     models.Room
	haveRoom bool
	picks    []models.Pick
	queues   map[string][]uuid.UUID
	rankings map[string][]uuid.UUID

	countdown    int // seconds left on the current pick
	preDraft     int // seconds until activation; 0 = unarmed
	inFlight     bool
	turnStarted  time.Time
	lastAttempt  time.Time
	stallCleared map[int]time.Time // pick number → when the stuck flag was force-cleared
	stallRetried map[int]bool      // pick numbers whose stall retry already fired
	resetPending bool              // completed→waiting observed; picks not yet purged
	completing   bool
	startedAt    time.Time
	lastStatus   models.RoomStatus

	ctx        context.Context
	cancel     context.CancelFunc
	unsubRoom  store.Unsubscribe
	unsubPicks store.Unsubscribe
}

// NewSession builds a session for roomID. Call Start before use.
func NewSession(roomID string, st store.RoomStore, cat *catalog.Catalog, pub events.Publisher, clock clockwork.Clock, cfg Config) *Session {
	return &Session{
		roomID:       roomID,
		store:        st,
		catalog:      cat,
		strat:        autopick.New(cfg.AutoCaps, cfg.ManualCaps),
		pub:          pub,
		clock:        clock,
		cfg:          cfg,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		queues:       make(map[string][]uuid.UUID),
		rankings:     make(map[string][]uuid.UUID),
		stallCleared: make(map[int]time.Time),
		stallRetried: make(map[int]bool),
	}
}

// Start subscribes to the store and begins the one-second scheduler loop.
func (s *Session) Start(ctx context.Context) error {
	if err := s.attach(ctx); err != nil {
		return err
	}
	go s.run()
	return nil
}

// attach wires the store subscriptions without starting the loop.
func (s *Session) attach(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	unsubRoom, err := s.store.SubscribeRoom(s.ctx, s.roomID, s.onRoomChange)
	if err != nil {
		return fmt.Errorf("subscribe room: %w", err)
	}
	s.unsubRoom = unsubRoom

	unsubPicks, err := s.store.SubscribePicks(s.ctx, s.roomID, s.onPicksChange)
	if err != nil {
		unsubRoom()
		return fmt.Errorf("subscribe picks: %w", err)
	}
	s.unsubPicks = unsubPicks

	s.mu.Lock()
	if !s.haveRoom {
		s.mu.Unlock()
		unsubRoom()
		unsubPicks()
		return ErrRoomNotFound
	}
	s.mu.Unlock()
	return nil
}

// Stop tears the session down.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.unsubRoom != nil {
		s.unsubRoom()
	}
	if s.unsubPicks != nil {
		s.unsubPicks()
	}
}

func (s *Session) run() {
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.Chan():
			s.Tick(s.ctx)
		}
	}
}

// RoomID returns the room this session coordinates.
func (s *Session) RoomID() string { return s.roomID }

// Join admits identity to the room, idempotently for an existing
// participant, rejecting with ErrRoomFull at capacity.
func (s *Session) Join(ctx context.Context, identity string) (*models.Room, error) {
	return s.store.JoinRoom(ctx, s.roomID, identity, s.cfg.Capacity)
}

// RandomizeOrder shuffles the current participants into a draft order and
// arms the pre-draft countdown. Owner-only, waiting-only; re-invocable until
// the room activates.
func (s *Session) RandomizeOrder(ctx context.Context, identity string) ([]string, error) {
	s.mu.Lock()
	if !s.haveRoom {
		s.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	if identity != s.room.Owner {
		s.mu.Unlock()
		return nil, ErrNotOwner
	}
	if s.room.Status != models.RoomStatusWaiting {
		s.mu.Unlock()
		return nil, ErrOrderExists
	}
	order := append([]string(nil), s.room.Participants...)
	s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	s.preDraft = int(s.cfg.PreDraftCountdown / time.Second)
	s.mu.Unlock()

	if _, err := s.store.UpdateRoom(ctx, s.roomID, store.RoomUpdate{DraftOrder: &order}); err != nil {
		return nil, err
	}
	log.Info().Str("room_id", s.roomID).Strs("order", order).Msg("draft order randomized")
	return order, nil
}

// UpdateSettings changes timer and round settings. Owner-only, waiting-only.
func (s *Session) UpdateSettings(ctx context.Context, identity string, timerSeconds, totalRounds int) error {
	if timerSeconds <= 0 || totalRounds <= 0 {
		return fmt.Errorf("settings must be positive: timer=%d rounds=%d", timerSeconds, totalRounds)
	}
	s.mu.Lock()
	if !s.haveRoom {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	if identity != s.room.Owner {
		s.mu.Unlock()
		return ErrNotOwner
	}
	if s.room.Status != models.RoomStatusWaiting {
		s.mu.Unlock()
		return ErrSettingsLocked
	}
	s.mu.Unlock()

	settings := models.RoomSettings{TimerSeconds: timerSeconds, TotalRounds: totalRounds}
	_, err := s.store.UpdateRoom(ctx, s.roomID, store.RoomUpdate{Settings: &settings})
	return err
}

// ForceStart activates the room immediately instead of waiting out the
// pre-draft countdown. Owner-only.
func (s *Session) ForceStart(ctx context.Context, identity string) error {
	s.mu.Lock()
	if !s.haveRoom {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	if identity != s.room.Owner {
		s.mu.Unlock()
		return ErrNotOwner
	}
	if s.room.Status != models.RoomStatusWaiting || len(s.room.DraftOrder) == 0 {
		s.mu.Unlock()
		return ErrDraftNotActive
	}
	s.mu.Unlock()
	return s.activate(ctx)
}

// SubmitPick is the primary state transition: identity drafts playerID.
// Preconditions are checked in a fixed order, each with its own failure.
func (s *Session) SubmitPick(ctx context.Context, identity string, playerID uuid.UUID) error {
	pick, err := s.admitPick(identity, playerID)
	if err != nil {
		return err
	}
	return s.writePick(ctx, pick, false)
}

// SubmitPickByName resolves an externally-spelled player name through the
// catalog's fuzzy lookup and submits it.
func (s *Session) SubmitPickByName(ctx context.Context, identity, playerName string) error {
	player, ok := s.catalog.Lookup(playerName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrPlayerUnavailable, playerName)
	}
	return s.SubmitPick(ctx, identity, player.ID)
}

// admitPick runs the ordered precondition chain and, on success, claims the
// in-flight flag and returns the pick record to write.
func (s *Session) admitPick(identity string, playerID uuid.UUID) (models.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.haveRoom {
		return models.Pick{}, ErrRoomNotFound
	}
	if s.room.Status != models.RoomStatusActive || s.resetPending {
		return models.Pick{}, ErrDraftNotActive
	}
	if s.inFlight {
		return models.Pick{}, ErrSubmissionInProgress
	}

	n := len(s.room.DraftOrder)
	next := len(s.picks) + 1
	if snake.IsComplete(len(s.picks), n, s.room.Settings.TotalRounds) {
		return models.Pick{}, ErrDraftNotActive
	}
	if snake.Picker(s.room.DraftOrder, next) != identity {
		return models.Pick{}, ErrNotYourTurn
	}

	player, ok := s.availableLocked()[playerID]
	if !ok {
		return models.Pick{}, ErrPlayerUnavailable
	}

	if limit, capped := s.cfg.ManualCaps[player.Position]; capped {
		count := 0
		for _, rp := range s.rosterLocked(identity) {
			if rp.Position == player.Position {
				count++
			}
		}
		if count >= limit {
			return models.Pick{}, fmt.Errorf("%w: %s", ErrPositionLimitExceeded, player.Position)
		}
	}

	s.inFlight = true
	return models.Pick{
		RoomID:     s.roomID,
		PickNumber: next,
		Round:      snake.Round(next, n),
		Picker:     identity,
		PlayerID:   player.ID,
		PlayerName: player.Name,
		PickedAt:   s.clock.Now(),
	}, nil
}

// writePick performs the atomic slot write and releases the in-flight flag.
func (s *Session) writePick(ctx context.Context, pick models.Pick, auto bool) error {
	created, err := s.store.CreatePickIfAbsent(ctx, pick)

	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("submit pick %d: %w", pick.PickNumber, err)
	}
	if !created {
		// Another writer won the slot; the pick subscription will deliver
		// the advanced state. Stand down rather than retry.
		log.Info().Str("room_id", s.roomID).Int("pick", pick.PickNumber).Msg("pick slot already taken, standing down")
		return ErrSubmissionInProgress
	}

	s.emit(events.TypePickMade, events.PickMadePayload{
		RoomID:     pick.RoomID,
		PickNumber: pick.PickNumber,
		Round:      pick.Round,
		Picker:     pick.Picker,
		PlayerID:   pick.PlayerID.String(),
		PlayerName: pick.PlayerName,
		Auto:       auto,
		MadeAt:     pick.PickedAt,
	})
	return nil
}

// Tick advances the session by one scheduler beat. It runs on a fixed
// one-second cadence independent of I/O latency.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	if !s.haveRoom {
		s.mu.Unlock()
		return
	}

	var (
		activate bool
		autoFor  string
	)

	switch s.room.Status {
	case models.RoomStatusWaiting:
		if s.preDraft > 0 {
			s.preDraft--
			if s.preDraft == 0 && len(s.room.DraftOrder) > 0 {
				activate = true
			}
		}

	case models.RoomStatusActive:
		if s.resetPending {
			break
		}
		n := len(s.room.DraftOrder)
		if snake.IsComplete(len(s.picks), n, s.room.Settings.TotalRounds) {
			break
		}
		if s.countdown > 0 {
			s.countdown--
		}

		next := len(s.picks) + 1
		picker := snake.Picker(s.room.DraftOrder, next)
		now := s.clock.Now()
		elapsed := now.Sub(s.turnStarted)
		isMock := s.room.IsMockDrafter(picker)

		needAuto := s.countdown <= 0

		// Stalled turn: a lost in-flight flag would block the countdown
		// auto-pick forever, and a live picker past the bound needs a
		// forced pick regardless. Both directions recover the same way:
		// force-clear the flag once, then force a single auto-pick after
		// a settle delay. Live pickers get the longer bound.
		stallAfter := s.cfg.MockStallAfter
		if !isMock {
			stallAfter = s.cfg.LiveStallAfter
		}
		if elapsed >= stallAfter {
			if _, cleared := s.stallCleared[next]; !cleared {
				if s.inFlight {
					log.Warn().Str("room_id", s.roomID).Str("picker", picker).Int("pick", next).
						Bool("simulated", isMock).Msg("stalled turn; force-clearing in-flight flag")
					s.inFlight = false
				}
				s.stallCleared[next] = now
			} else if !s.stallRetried[next] && now.Sub(s.stallCleared[next]) >= s.cfg.StallSettleDelay {
				s.stallRetried[next] = true
				log.Warn().Str("room_id", s.roomID).Str("picker", picker).Int("pick", next).
					Bool("simulated", isMock).Msg("stalled turn; forcing auto-pick")
				needAuto = true
			}
		}

		if needAuto && s.inFlight {
			needAuto = false // a submission is outstanding; let it land
		}
		if needAuto && now.Sub(s.lastAttempt) < s.cfg.AutoPickDebounce {
			needAuto = false
		}
		if needAuto {
			s.lastAttempt = now
			autoFor = picker
		}
	}
	s.mu.Unlock()

	if activate {
		if err := s.activate(ctx); err != nil {
			log.Error().Err(err).Str("room_id", s.roomID).Msg("activation failed")
		}
	}
	if autoFor != "" {
		if err := s.AutoPick(ctx, autoFor); err != nil {
			log.Error().Err(err).Str("room_id", s.roomID).Str("picker", autoFor).Msg("auto-pick failed")
		}
	}
}

// AutoPick selects and submits a player on behalf of picker. Uniform for
// live users and simulated participants.
func (s *Session) AutoPick(ctx context.Context, picker string) error {
	s.mu.Lock()
	if !s.haveRoom || s.room.Status != models.RoomStatusActive || s.resetPending {
		s.mu.Unlock()
		return ErrDraftNotActive
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrSubmissionInProgress
	}
	n := len(s.room.DraftOrder)
	next := len(s.picks) + 1
	if snake.IsComplete(len(s.picks), n, s.room.Settings.TotalRounds) {
		s.mu.Unlock()
		return ErrDraftNotActive
	}
	if snake.Picker(s.room.DraftOrder, next) != picker {
		s.mu.Unlock()
		return ErrNotYourTurn
	}

	available := s.availableLocked()
	pool := make([]models.Player, 0, len(available))
	for _, p := range available {
		pool = append(pool, p)
	}
	in := autopick.Input{
		Available: pool,
		Roster:    s.rosterLocked(picker),
		Queue:     append([]uuid.UUID(nil), s.queues[picker]...),
		Rankings:  append([]uuid.UUID(nil), s.rankings[picker]...),
	}
	timer := s.room.Settings.TimerSeconds
	round := snake.Round(next, n)
	s.mu.Unlock()

	choice, err := s.strat.Select(in)
	if err != nil {
		// Every remaining player would breach caps. Surface it and grant
		// the picker more time instead of silently skipping the turn.
		log.Error().Err(err).Str("room_id", s.roomID).Str("picker", picker).Int("pick", next).
			Msg("no eligible auto-pick; granting additional time")
		s.mu.Lock()
		s.countdown = timer
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrSubmissionInProgress
	}
	s.inFlight = true
	s.mu.Unlock()

	return s.writePick(ctx, models.Pick{
		RoomID:     s.roomID,
		PickNumber: next,
		Round:      round,
		Picker:     picker,
		PlayerID:   choice.ID,
		PlayerName: choice.Name,
		PickedAt:   s.clock.Now(),
	}, true)
}

func (s *Session) activate(ctx context.Context) error {
	s.mu.Lock()
	if !s.haveRoom || s.room.Status != models.RoomStatusWaiting {
		s.mu.Unlock()
		return nil
	}
	timer := s.room.Settings.TimerSeconds
	rounds := s.room.Settings.TotalRounds
	total := s.room.TotalPicks()
	now := s.clock.Now()
	s.startedAt = now
	s.countdown = timer
	s.turnStarted = now
	s.preDraft = 0
	s.mu.Unlock()

	status := models.RoomStatusActive
	if _, err := s.store.UpdateRoom(ctx, s.roomID, store.RoomUpdate{Status: &status}); err != nil {
		return fmt.Errorf("activate room: %w", err)
	}

	log.Info().Str("room_id", s.roomID).Int("rounds", rounds).Int("total_picks", total).Msg("draft activated")
	s.emit(events.TypeDraftStarted, events.DraftStartedPayload{
		RoomID:      s.roomID,
		StartedAt:   now,
		TotalRounds: rounds,
		TotalPicks:  total,
	})
	s.emitPickStarted()
	return nil
}

func (s *Session) onRoomChange(room models.Room) {
	s.mu.Lock()
	prev := s.lastStatus
	s.room = room
	s.haveRoom = true
	s.lastStatus = room.Status
	if room.Status == models.RoomStatusActive && s.startedAt.IsZero() {
		now := s.clock.Now()
		s.startedAt = now
		if s.turnStarted.IsZero() {
			s.turnStarted = now
			s.countdown = room.Settings.TimerSeconds
		}
	}
	reset := prev == models.RoomStatusCompleted && room.Status == models.RoomStatusWaiting
	if reset {
		// Stale picks must never leak into a new draft: block submissions
		// until the purge is reflected back through the subscription.
		s.resetPending = true
		s.completing = false
		s.preDraft = 0
		s.startedAt = time.Time{}
		s.turnStarted = time.Time{}
	}
	s.mu.Unlock()

	if reset {
		deleted, err := s.store.DeleteAllPicks(s.ctx, s.roomID)
		if err != nil {
			log.Error().Err(err).Str("room_id", s.roomID).Msg("pick purge after reset failed")
			return
		}
		log.Info().Str("room_id", s.roomID).Int("deleted", deleted).Msg("purged picks after room reset")
		s.emit(events.TypePicksPurged, events.PicksPurgedPayload{
			RoomID:  s.roomID,
			Deleted: deleted,
			At:      s.clock.Now(),
		})
	}
}

func (s *Session) onPicksChange(picks []models.Pick) {
	s.mu.Lock()
	prevCount := len(s.picks)
	s.picks = picks
	if len(picks) == 0 && s.resetPending {
		s.resetPending = false
	}

	turnAdvanced := len(picks) != prevCount
	if turnAdvanced {
		// Any outstanding submission for the old slot is moot; observers of
		// the same race stand down here.
		s.inFlight = false
		s.stallCleared = make(map[int]time.Time)
		s.stallRetried = make(map[int]bool)
		if s.room.Status == models.RoomStatusActive {
			s.countdown = s.room.Settings.TimerSeconds
			s.turnStarted = s.clock.Now()
		}
	}

	n := len(s.room.DraftOrder)
	complete := s.haveRoom && s.room.Status == models.RoomStatusActive &&
		snake.IsComplete(len(picks), n, s.room.Settings.TotalRounds) && !s.completing
	if complete {
		s.completing = true
	}
	emitStart := turnAdvanced && !complete && s.room.Status == models.RoomStatusActive
	s.mu.Unlock()

	if emitStart {
		s.emitPickStarted()
	}
	if complete {
		s.completeDraft()
	}
}

func (s *Session) completeDraft() {
	s.mu.Lock()
	started := s.startedAt
	total := len(s.picks)
	s.mu.Unlock()

	status := models.RoomStatusCompleted
	if _, err := s.store.UpdateRoom(s.ctx, s.roomID, store.RoomUpdate{Status: &status}); err != nil {
		log.Error().Err(err).Str("room_id", s.roomID).Msg("failed to mark draft completed")
		s.mu.Lock()
		s.completing = false
		s.mu.Unlock()
		return
	}

	now := s.clock.Now()
	var duration string
	if !started.IsZero() {
		duration = now.Sub(started).String()
	}
	log.Info().Str("room_id", s.roomID).Int("total_picks", total).Str("duration", duration).Msg("draft completed")
	s.emit(events.TypeDraftCompleted, events.DraftCompletedPayload{
		RoomID:      s.roomID,
		CompletedAt: now,
		Duration:    duration,
		TotalPicks:  total,
	})
}

func (s *Session) emitPickStarted() {
	s.mu.Lock()
	if !s.haveRoom || s.room.Status != models.RoomStatusActive {
		s.mu.Unlock()
		return
	}
	n := len(s.room.DraftOrder)
	next := len(s.picks) + 1
	if snake.IsComplete(len(s.picks), n, s.room.Settings.TotalRounds) {
		s.mu.Unlock()
		return
	}
	payload := events.PickStartedPayload{
		RoomID:       s.roomID,
		PickNumber:   next,
		Round:        snake.Round(next, n),
		Picker:       snake.Picker(s.room.DraftOrder, next),
		StartedAt:    s.turnStarted,
		TimeoutAt:    s.turnStarted.Add(time.Duration(s.room.Settings.TimerSeconds) * time.Second),
		TimerSeconds: s.room.Settings.TimerSeconds,
	}
	s.mu.Unlock()

	s.emit(events.TypePickStarted, payload)
}

func (s *Session) emit(eventType string, payload any) {
	if err := s.pub.Publish(eventType, s.roomID, payload); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Str("room_id", s.roomID).Msg("event publish failed")
	}
}
