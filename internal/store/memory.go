package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gridironlabs/draftroom/internal/models"
)

// Memory is an in-process RoomStore used in tests and single-node local
// mode. Snapshots are deep-copied so subscribers never observe later
// mutations through shared slices.
type Memory struct {
	mu      sync.Mutex
	rooms   map[string]models.Room
	picks   map[string]map[int]models.Pick
	roomSub map[string]map[int]func(models.Room)
	pickSub map[string]map[int]func([]models.Pick)
	nextSub int

	// pickNotifyMu spans snapshot plus delivery so two racing writers
	// cannot hand subscribers a shorter pick list after a longer one.
	// Never acquired while holding mu.
	pickNotifyMu sync.Mutex
}

var _ RoomStore = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rooms:   make(map[string]models.Room),
		picks:   make(map[string]map[int]models.Pick),
		roomSub: make(map[string]map[int]func(models.Room)),
		pickSub: make(map[string]map[int]func([]models.Pick)),
	}
}

func (m *Memory) CreateRoom(ctx context.Context, room models.Room) error {
	m.mu.Lock()
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now
	m.rooms[room.ID] = copyRoom(room)
	m.mu.Unlock()
	m.notifyRoom(room.ID)
	return nil
}

func (m *Memory) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := copyRoom(room)
	return &out, nil
}

func (m *Memory) UpdateRoom(ctx context.Context, roomID string, update RoomUpdate) (*models.Room, error) {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	if update.DraftOrder != nil {
		room.DraftOrder = append([]string(nil), (*update.DraftOrder)...)
	}
	if update.Settings != nil {
		room.Settings = *update.Settings
	}
	if update.Status != nil {
		room.Status = *update.Status
	}
	room.UpdatedAt = time.Now()
	m.rooms[roomID] = room
	out := copyRoom(room)
	m.mu.Unlock()

	m.notifyRoom(roomID)
	return &out, nil
}

func (m *Memory) JoinRoom(ctx context.Context, roomID, name string, capacity int) (*models.Room, error) {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	if room.HasParticipant(name) {
		out := copyRoom(room)
		m.mu.Unlock()
		return &out, nil
	}
	if len(room.Participants) >= capacity {
		m.mu.Unlock()
		return nil, ErrRoomFull
	}
	room.Participants = append(append([]string(nil), room.Participants...), name)
	room.UpdatedAt = time.Now()
	m.rooms[roomID] = room
	out := copyRoom(room)
	m.mu.Unlock()

	m.notifyRoom(roomID)
	return &out, nil
}

func (m *Memory) SubscribeRoom(ctx context.Context, roomID string, onChange func(models.Room)) (Unsubscribe, error) {
	m.mu.Lock()
	if m.roomSub[roomID] == nil {
		m.roomSub[roomID] = make(map[int]func(models.Room))
	}
	id := m.nextSub
	m.nextSub++
	m.roomSub[roomID][id] = onChange
	room, ok := m.rooms[roomID]
	m.mu.Unlock()

	if ok {
		onChange(copyRoom(room))
	}
	return func() {
		m.mu.Lock()
		delete(m.roomSub[roomID], id)
		m.mu.Unlock()
	}, nil
}

func (m *Memory) ListPicks(ctx context.Context, roomID string) ([]models.Pick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderedPicks(roomID), nil
}

func (m *Memory) SubscribePicks(ctx context.Context, roomID string, onChange func([]models.Pick)) (Unsubscribe, error) {
	m.pickNotifyMu.Lock()
	defer m.pickNotifyMu.Unlock()
	m.mu.Lock()
	if m.pickSub[roomID] == nil {
		m.pickSub[roomID] = make(map[int]func([]models.Pick))
	}
	id := m.nextSub
	m.nextSub++
	m.pickSub[roomID][id] = onChange
	snapshot := m.orderedPicks(roomID)
	m.mu.Unlock()

	onChange(snapshot)
	return func() {
		m.mu.Lock()
		delete(m.pickSub[roomID], id)
		m.mu.Unlock()
	}, nil
}

func (m *Memory) CreatePickIfAbsent(ctx context.Context, pick models.Pick) (bool, error) {
	m.mu.Lock()
	if _, ok := m.rooms[pick.RoomID]; !ok {
		m.mu.Unlock()
		return false, ErrRoomNotFound
	}
	slots := m.picks[pick.RoomID]
	if slots == nil {
		slots = make(map[int]models.Pick)
		m.picks[pick.RoomID] = slots
	}
	if _, taken := slots[pick.PickNumber]; taken {
		m.mu.Unlock()
		return false, nil
	}
	slots[pick.PickNumber] = pick
	m.mu.Unlock()

	m.notifyPicks(pick.RoomID)
	return true, nil
}

func (m *Memory) DeleteAllPicks(ctx context.Context, roomID string) (int, error) {
	m.mu.Lock()
	n := len(m.picks[roomID])
	delete(m.picks, roomID)
	m.mu.Unlock()

	if n > 0 {
		m.notifyPicks(roomID)
	}
	return n, nil
}

// orderedPicks must be called with the lock held.
func (m *Memory) orderedPicks(roomID string) []models.Pick {
	slots := m.picks[roomID]
	out := make([]models.Pick, 0, len(slots))
	for _, p := range slots {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PickNumber < out[j].PickNumber })
	return out
}

func (m *Memory) notifyRoom(roomID string) {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	subs := make([]func(models.Room), 0, len(m.roomSub[roomID]))
	for _, fn := range m.roomSub[roomID] {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	for _, fn := range subs {
		fn(copyRoom(room))
	}
}

func (m *Memory) notifyPicks(roomID string) {
	m.pickNotifyMu.Lock()
	defer m.pickNotifyMu.Unlock()
	m.mu.Lock()
	snapshot := m.orderedPicks(roomID)
	subs := make([]func([]models.Pick), 0, len(m.pickSub[roomID]))
	for _, fn := range m.pickSub[roomID] {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(append([]models.Pick(nil), snapshot...))
	}
}

func copyRoom(r models.Room) models.Room {
	r.Participants = append([]string(nil), r.Participants...)
	r.DraftOrder = append([]string(nil), r.DraftOrder...)
	r.MockDrafters = append([]string(nil), r.MockDrafters...)
	return r
}
